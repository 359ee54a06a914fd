package skim

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/sim/pathtype/skim/network"
)

// TableDoc 阻抗矩阵的存储形式，values按行优先展开
type TableDoc struct {
	Mode        string    `bson:"mode" yaml:"mode"`
	PathType    string    `bson:"path_type" yaml:"path_type"`
	Variable    string    `bson:"variable" yaml:"variable"`
	MinuteStart int       `bson:"minute_start" yaml:"minute_start"`
	MinuteEnd   int       `bson:"minute_end" yaml:"minute_end"`
	VOTMin      float64   `bson:"vot_min" yaml:"vot_min"`
	VOTMax      float64   `bson:"vot_max" yaml:"vot_max"`
	Zones       []int     `bson:"zones" yaml:"zones"`
	Values      []float64 `bson:"values" yaml:"values"`
}

type NodeDoc struct {
	ID int     `bson:"id" yaml:"id"`
	X  float64 `bson:"x" yaml:"x"`
	Y  float64 `bson:"y" yaml:"y"`
}

type LinkDoc struct {
	From   int     `bson:"from" yaml:"from"`
	To     int     `bson:"to" yaml:"to"`
	Length float64 `bson:"length" yaml:"length"`
}

type NodeDistanceDoc struct {
	From     int     `bson:"from" yaml:"from"`
	To       int     `bson:"to" yaml:"to"`
	Distance float64 `bson:"distance" yaml:"distance"`
}

// Dataset 一次加载的全部阻抗数据
type Dataset struct {
	Tables        []TableDoc        `bson:"tables" yaml:"tables"`
	Nodes         []NodeDoc         `bson:"nodes" yaml:"nodes"`
	Links         []LinkDoc         `bson:"links" yaml:"links"`
	NodeDistances []NodeDistanceDoc `bson:"node_distances" yaml:"node_distances"`
}

// Build 由数据集构建Store；无节点时不建路网
func Build(ds *Dataset, lengthUnitsPerDistanceUnit float64) (*Store, error) {
	s := NewStore()
	for i, doc := range ds.Tables {
		t, err := NewTable(doc)
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", i, err)
		}
		if err := s.AddTable(t); err != nil {
			return nil, err
		}
	}
	for _, nd := range ds.NodeDistances {
		s.AddNodeDistance(nd.From, nd.To, nd.Distance)
	}
	if len(ds.Nodes) > 0 {
		g := network.NewGraph(lengthUnitsPerDistanceUnit)
		for _, n := range ds.Nodes {
			if err := g.AddNode(n.ID, geometry.Point{X: n.X, Y: n.Y}); err != nil {
				return nil, err
			}
		}
		for _, l := range ds.Links {
			if err := g.AddLink(l.From, l.To, l.Length); err != nil {
				return nil, err
			}
		}
		s.SetNetwork(g)
	}
	log.Infof("built skim store: %d tables, %d zones, %d network nodes",
		s.TableCount(), len(s.Zones()), len(ds.Nodes))
	return s, nil
}
