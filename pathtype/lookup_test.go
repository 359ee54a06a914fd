package pathtype_test

import (
	"git.fiblab.net/sim/pathtype/pathtype"
)

type skimKey struct {
	variable    string
	mode        pathtype.Mode
	pathType    pathtype.PathType
	origin      int
	destination int
}

type combo struct {
	mode     pathtype.Mode
	pathType pathtype.PathType
}

// fakeLookup 以小区对为键的内存阻抗表，所有时段共用
type fakeLookup struct {
	values map[skimKey]float64
	combos map[combo]bool
	// 以NodeID对为键
	nodeDistances map[[2]int]float64
	lastVOT       float64
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		values:        make(map[skimKey]float64),
		combos:        make(map[combo]bool),
		nodeDistances: make(map[[2]int]float64),
	}
}

// set 写入o->d与d->o两个方向
func (f *fakeLookup) set(variable string, mode pathtype.Mode, pt pathtype.PathType, o, d int, v float64) *fakeLookup {
	f.combos[combo{mode, pt}] = true
	f.values[skimKey{variable, mode, pt, o, d}] = v
	f.values[skimKey{variable, mode, pt, d, o}] = v
	return f
}

func (f *fakeLookup) GetValue(req pathtype.SkimRequest) pathtype.SkimValue {
	f.lastVOT = req.VOT
	key := skimKey{req.Variable, req.Mode, req.PathType, req.Origin.ZoneKey(), req.Destination.ZoneKey()}
	v := f.values[key]
	if req.Variable != pathtype.SkimTime && req.Variable != pathtype.SkimIVTime {
		return pathtype.SkimValue{Variable: v, BlendVariable: v}
	}
	key.variable = pathtype.SkimDistance
	raw := f.values[key]
	if req.Distance > 0 && raw > 0 {
		return pathtype.SkimValue{Variable: v * req.Distance / raw, BlendVariable: req.Distance}
	}
	return pathtype.SkimValue{Variable: v, BlendVariable: raw}
}

func (f *fakeLookup) IsActualCombination(mode pathtype.Mode, pt pathtype.PathType) bool {
	return f.combos[combo{mode, pt}]
}

func (f *fakeLookup) NodeDistance(o, d *pathtype.Parcel) (float64, bool) {
	v, ok := f.nodeDistances[[2]int{o.NodeID, d.NodeID}]
	return v, ok
}
