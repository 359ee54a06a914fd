package network

import (
	"container/heap"
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
)

type node struct {
	id int // 外部节点ID
	p  geometry.Point
}

// Graph 全路网（all-streets）无向图，用于地块所在节点之间的最短距离
type Graph struct {
	// 邻接表，in node -> out node -> length
	// 加载后拓扑不变，但边长可在运行时修改，因此需要考虑并发问题
	edges []map[int]float64
	nodes []node
	// 外部节点ID -> 内部下标
	index map[int]int
	// 坐标长度单位/距离单位，用于A*启发函数，<=0时退化为Dijkstra
	lengthUnitsPerDistanceUnit float64

	mu *xsync.RBMutex
}

func NewGraph(lengthUnitsPerDistanceUnit float64) *Graph {
	return &Graph{
		edges:                      make([]map[int]float64, 0),
		nodes:                      make([]node, 0),
		index:                      make(map[int]int),
		lengthUnitsPerDistanceUnit: lengthUnitsPerDistanceUnit,
		mu:                         xsync.NewRBMutex(),
	}
}

func (g *Graph) AddNode(id int, p geometry.Point) error {
	if _, ok := g.index[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateNode, id)
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, node{id: id, p: p})
	g.edges = append(g.edges, make(map[int]float64))
	return nil
}

// AddLink 加入双向边，重复加入时覆盖长度
func (g *Graph) AddLink(fromID, toID int, length float64) error {
	from, to, err := g.lookupPair(fromID, toID)
	if err != nil {
		return err
	}
	if length < 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidLength, length)
	}
	g.edges[from][to] = length
	g.edges[to][from] = length
	return nil
}

// SetLinkLength 运行时修改已有边的长度
func (g *Graph) SetLinkLength(fromID, toID int, length float64) error {
	from, to, err := g.lookupPair(fromID, toID)
	if err != nil {
		return err
	}
	if length < 0 || math.IsNaN(length) || math.IsInf(length, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidLength, length)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.edges[from][to]; !ok {
		return fmt.Errorf("%w: %d and %d", ErrNoLink, fromID, toID)
	}
	g.edges[from][to] = length
	g.edges[to][from] = length
	return nil
}

func (g *Graph) lookupPair(fromID, toID int) (int, int, error) {
	from, ok := g.index[fromID]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", ErrUnknownNode, fromID)
	}
	to, ok := g.index[toID]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %d", ErrUnknownNode, toID)
	}
	return from, to, nil
}

func (g *Graph) heuristic(from, to int) float64 {
	if g.lengthUnitsPerDistanceUnit <= 0 {
		return 0
	}
	return geometry.Distance(g.nodes[from].p, g.nodes[to].p) / g.lengthUnitsPerDistanceUnit
}

func (g *Graph) reconstructPath(cameFrom map[int]int, cur int) []int {
	pathBeforeReversed := []int{g.nodes[cur].id}
	for {
		from, ok := cameFrom[cur]
		if !ok {
			break
		}
		cur = from
		pathBeforeReversed = append(pathBeforeReversed, g.nodes[cur].id)
	}
	return lo.Reverse(pathBeforeReversed)
}

// ShortestDistance 两节点间最短距离，不可达或节点不存在时返回false
func (g *Graph) ShortestDistance(fromID, toID int) (float64, bool) {
	path, cost := g.ShortestPath(fromID, toID)
	return cost, path != nil
}

// ShortestPath A Star算法求最短路，返回外部节点ID序列
func (g *Graph) ShortestPath(fromID, toID int) ([]int, float64) {
	start, end, err := g.lookupPair(fromID, toID)
	if err != nil {
		log.Debugf("shortest path: %v", err)
		return nil, math.Inf(0)
	}
	token := g.mu.RLock()
	defer g.mu.RUnlock(token)
	if start == end {
		return []int{fromID}, 0
	}
	openSet := make(PriorityQueue, 1)
	openSetMap := make(map[int]*Item, 1) // openSet value -> openSet item
	closed := make(map[int]bool)
	cameFrom := make(map[int]int)
	gScore := map[int]float64{start: 0}
	openSet[0] = &Item{Value: start, Priority: g.heuristic(start, end), Index: 0}
	openSetMap[start] = openSet[0]
	heap.Init(&openSet)
	for openSet.Len() > 0 {
		cur := heap.Pop(&openSet).(*Item).Value
		if cur == end {
			return g.reconstructPath(cameFrom, cur), gScore[cur]
		}
		closed[cur] = true
		for neighbor, length := range g.edges[cur] {
			if closed[neighbor] {
				continue
			}
			gScoreTentative := gScore[cur] + length
			gScoreNeighbor, ok := gScore[neighbor]
			if !ok {
				gScoreNeighbor = math.Inf(0)
			}
			if gScoreTentative < gScoreNeighbor {
				cameFrom[neighbor] = cur
				gScore[neighbor] = gScoreTentative
				fScore := gScoreTentative + g.heuristic(neighbor, end)
				if item, inOpen := openSetMap[neighbor]; inOpen && item.Index >= 0 {
					// 已在堆中，修改其优先级
					item.Priority = fScore
					heap.Fix(&openSet, item.Index)
				} else {
					item := &Item{Value: neighbor, Priority: fScore}
					heap.Push(&openSet, item)
					openSetMap[neighbor] = item
				}
			}
		}
	}
	return nil, math.Inf(0)
}
