package skim

import (
	"fmt"

	"git.fiblab.net/sim/pathtype/pathtype"
	"gonum.org/v1/gonum/mat"
)

const MinutesPerDay = 24 * 60

// Table 单个出行方式、路径类型、变量在某时段与VOT区间上的小区间阻抗矩阵
type Table struct {
	Mode     pathtype.Mode
	PathType pathtype.PathType
	Variable string
	// 时段 [MinuteStart, MinuteEnd)，MinuteEnd为0表示全天
	MinuteStart int
	MinuteEnd   int
	// VOT区间 [VOTMin, VOTMax)，均为0表示不区分
	VOTMin float64
	VOTMax float64

	Zones  []int
	Values *mat.Dense
	// zone key -> 矩阵下标
	index map[int]int
}

func NewTable(doc TableDoc) (*Table, error) {
	mode, err := pathtype.ParseMode(doc.Mode)
	if err != nil {
		return nil, err
	}
	pt, err := pathtype.ParsePathType(doc.PathType)
	if err != nil {
		return nil, err
	}
	if doc.Variable == "" {
		return nil, fmt.Errorf("empty variable for %s/%s table", doc.Mode, doc.PathType)
	}
	n := len(doc.Zones)
	if n == 0 {
		return nil, fmt.Errorf("%s/%s/%s table has no zones", doc.Mode, doc.PathType, doc.Variable)
	}
	if len(doc.Values) != n*n {
		return nil, fmt.Errorf("%s/%s/%s table has %d values, want %d",
			doc.Mode, doc.PathType, doc.Variable, len(doc.Values), n*n)
	}
	t := &Table{
		Mode:        mode,
		PathType:    pt,
		Variable:    doc.Variable,
		MinuteStart: doc.MinuteStart,
		MinuteEnd:   doc.MinuteEnd,
		VOTMin:      doc.VOTMin,
		VOTMax:      doc.VOTMax,
		Zones:       append([]int(nil), doc.Zones...),
		Values:      mat.NewDense(n, n, append([]float64(nil), doc.Values...)),
		index:       make(map[int]int, n),
	}
	for i, z := range t.Zones {
		if _, ok := t.index[z]; ok {
			return nil, fmt.Errorf("%s/%s/%s table has duplicate zone %d", doc.Mode, doc.PathType, doc.Variable, z)
		}
		t.index[z] = i
	}
	return t, nil
}

func (t *Table) covers(minute int, vot float64) bool {
	if t.MinuteEnd != 0 {
		m := ((minute % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
		if m < t.MinuteStart || m >= t.MinuteEnd {
			return false
		}
	}
	if t.VOTMin != 0 || t.VOTMax != 0 {
		if vot < t.VOTMin || vot >= t.VOTMax {
			return false
		}
	}
	return true
}

func (t *Table) cellIndex(origin, destination int) (int, int, bool) {
	i, ok := t.index[origin]
	if !ok {
		return 0, 0, false
	}
	j, ok := t.index[destination]
	if !ok {
		return 0, 0, false
	}
	return i, j, true
}
