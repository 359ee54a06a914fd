package skim

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"git.fiblab.net/sim/pathtype/pathtype"
	"git.fiblab.net/sim/pathtype/skim/network"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
)

var (
	// 错误：找不到对应的阻抗矩阵
	ErrTableNotFound = errors.New("skim table not found")
	// 错误：小区不在矩阵中
	ErrZoneNotFound = errors.New("zone not found in skim table")
	// 错误：未加载路网
	ErrNoNetwork = errors.New("no road network loaded")
)

type tableKey struct {
	mode     pathtype.Mode
	pathType pathtype.PathType
	variable string
}

// routedDistance 路网上算出的距离，version与路网修改次数对应
type routedDistance struct {
	distance float64
	version  uint64
}

type combination struct {
	mode     pathtype.Mode
	pathType pathtype.PathType
}

// Store 阻抗矩阵集合，实现pathtype.ImpedanceLookup与pathtype.NodeDistancer
// 加载完成后并发只读；SetValue与读之间由RBMutex保护
type Store struct {
	tables *xsync.MapOf[tableKey, []*Table]
	combos *xsync.MapOf[combination, struct{}]

	network *network.Graph
	// node id pair -> distance，显式给定
	nodeDistances *xsync.MapOf[[2]int, float64]
	// node id pair -> 路网上算出的距离，路网修改后旧版本失效
	routed        *xsync.MapOf[[2]int, routedDistance]
	routedVersion atomic.Uint64

	mu *xsync.RBMutex
}

var (
	_ pathtype.ImpedanceLookup = (*Store)(nil)
	_ pathtype.NodeDistancer   = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		tables:        xsync.NewMapOf[tableKey, []*Table](),
		combos:        xsync.NewMapOf[combination, struct{}](),
		nodeDistances: xsync.NewMapOf[[2]int, float64](),
		routed:        xsync.NewMapOf[[2]int, routedDistance](),
		mu:            xsync.NewRBMutex(),
	}
}

// AddTable 加入矩阵，同一键下按加入顺序匹配时段与VOT
func (s *Store) AddTable(t *Table) error {
	if t == nil || t.Values == nil {
		return fmt.Errorf("nil skim table")
	}
	key := tableKey{t.Mode, t.PathType, t.Variable}
	s.tables.Compute(key, func(old []*Table, loaded bool) ([]*Table, bool) {
		return append(old, t), false
	})
	s.combos.Store(combination{t.Mode, t.PathType}, struct{}{})
	return nil
}

func (s *Store) SetNetwork(g *network.Graph) {
	s.network = g
}

func (s *Store) AddNodeDistance(fromNode, toNode int, distance float64) {
	s.nodeDistances.Store([2]int{fromNode, toNode}, distance)
}

func (s *Store) TableCount() int {
	count := 0
	s.tables.Range(func(_ tableKey, ts []*Table) bool {
		count += len(ts)
		return true
	})
	return count
}

// Zones 所有矩阵中出现过的小区，升序
func (s *Store) Zones() []int {
	zones := make([]int, 0)
	s.tables.Range(func(_ tableKey, ts []*Table) bool {
		for _, t := range ts {
			zones = append(zones, t.Zones...)
		}
		return true
	})
	zones = lo.Uniq(zones)
	sort.Ints(zones)
	return zones
}

func (s *Store) findTable(mode pathtype.Mode, pt pathtype.PathType, variable string, minute int, vot float64) *Table {
	ts, ok := s.tables.Load(tableKey{mode, pt, variable})
	if !ok {
		return nil
	}
	t, _ := lo.Find(ts, func(t *Table) bool {
		return t.covers(minute, vot)
	})
	return t
}

// cell 缺失的矩阵或小区返回0
func (s *Store) cell(mode pathtype.Mode, pt pathtype.PathType, variable string, minute int, vot float64, o, d int) float64 {
	t := s.findTable(mode, pt, variable, minute, vot)
	if t == nil {
		return 0
	}
	i, j, ok := t.cellIndex(o, d)
	if !ok {
		return 0
	}
	token := s.mu.RLock()
	defer s.mu.RUnlock(token)
	return t.Values.At(i, j)
}

// GetValue 对time/ivtime，BlendVariable为采用的距离；
// 给定精细化距离且矩阵距离为正时，时间按距离比例缩放
func (s *Store) GetValue(req pathtype.SkimRequest) pathtype.SkimValue {
	o, d := req.Origin.ZoneKey(), req.Destination.ZoneKey()
	v := s.cell(req.Mode, req.PathType, req.Variable, req.Minute, req.VOT, o, d)
	switch req.Variable {
	case pathtype.SkimTime, pathtype.SkimIVTime:
		raw := s.cell(req.Mode, req.PathType, pathtype.SkimDistance, req.Minute, req.VOT, o, d)
		if req.Distance > 0 && raw > 0 {
			return pathtype.SkimValue{Variable: v * req.Distance / raw, BlendVariable: req.Distance}
		}
		return pathtype.SkimValue{Variable: v, BlendVariable: raw}
	default:
		return pathtype.SkimValue{Variable: v, BlendVariable: v}
	}
}

func (s *Store) IsActualCombination(mode pathtype.Mode, pt pathtype.PathType) bool {
	_, ok := s.combos.Load(combination{mode, pt})
	return ok
}

// NodeDistance 优先使用显式给定的节点距离，否则在路网上搜索并缓存
func (s *Store) NodeDistance(o, d *pathtype.Parcel) (float64, bool) {
	if o.NodeID == 0 || d.NodeID == 0 {
		return 0, false
	}
	key := [2]int{o.NodeID, d.NodeID}
	if v, ok := s.nodeDistances.Load(key); ok {
		return v, true
	}
	if s.network == nil {
		return 0, false
	}
	// 先取版本再搜索，搜索期间路网被修改时结果按旧版本存入
	version := s.routedVersion.Load()
	if r, ok := s.routed.Load(key); ok && r.version == version {
		return r.distance, true
	}
	v, ok := s.network.ShortestDistance(o.NodeID, d.NodeID)
	if !ok {
		return 0, false
	}
	s.routed.Store(key, routedDistance{distance: v, version: version})
	return v, true
}

// SetLinkLength 运行时修改路网边长，之前算出的节点距离全部失效
func (s *Store) SetLinkLength(fromNode, toNode int, length float64) error {
	if s.network == nil {
		return ErrNoNetwork
	}
	if err := s.network.SetLinkLength(fromNode, toNode, length); err != nil {
		return err
	}
	s.routedVersion.Add(1)
	s.routed.Clear()
	return nil
}

// GetCell 精确读取单元格，找不到时返回错误
func (s *Store) GetCell(mode pathtype.Mode, pt pathtype.PathType, variable string, minute int, vot float64, o, d int) (float64, error) {
	t := s.findTable(mode, pt, variable, minute, vot)
	if t == nil {
		return 0, fmt.Errorf("%w: %v/%v/%s at minute %d", ErrTableNotFound, mode, pt, variable, minute)
	}
	i, j, ok := t.cellIndex(o, d)
	if !ok {
		return 0, fmt.Errorf("%w: %d->%d", ErrZoneNotFound, o, d)
	}
	token := s.mu.RLock()
	defer s.mu.RUnlock(token)
	return t.Values.At(i, j), nil
}

// SetValue 运行时修改单元格
func (s *Store) SetValue(mode pathtype.Mode, pt pathtype.PathType, variable string, minute int, vot float64, o, d int, value float64) error {
	t := s.findTable(mode, pt, variable, minute, vot)
	if t == nil {
		return fmt.Errorf("%w: %v/%v/%s at minute %d", ErrTableNotFound, mode, pt, variable, minute)
	}
	i, j, ok := t.cellIndex(o, d)
	if !ok {
		return fmt.Errorf("%w: %d->%d", ErrZoneNotFound, o, d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Values.Set(i, j, value)
	return nil
}
