package skim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"gopkg.in/yaml.v3"
)

// mongo中每条记录的class
const (
	ClassTable        = "table"
	ClassNode         = "node"
	ClassLink         = "link"
	ClassNodeDistance = "node_distance"
)

// record mongo中的记录形式 {class: ..., data: {...}}
type record struct {
	Class string   `bson:"class"`
	Data  bson.Raw `bson:"data"`
}

// LoadFile 读取.yaml/.yml（yaml）或其他扩展名（bson）的数据集文件
func LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ds := &Dataset{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, ds)
	default:
		err = bson.Unmarshal(data, ds)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ds, nil
}

// SaveFile 以bson写出数据集
func SaveFile(path string, ds *Dataset) error {
	data, err := bson.Marshal(ds)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadMongo 从collection读取全部记录
func LoadMongo(ctx context.Context, coll *mongo.Collection) (*Dataset, error) {
	log.Infof("get skims from %s.%s", coll.Database().Name(), coll.Name())
	cur, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	ds := &Dataset{}
	var errs []error
	for cur.Next(ctx) {
		var r record
		if err := cur.Decode(&r); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := ds.appendRecord(r); err != nil {
			errs = append(errs, err)
		}
	}
	if err := cur.Err(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ds, nil
}

func (ds *Dataset) appendRecord(r record) error {
	switch r.Class {
	case ClassTable:
		var doc TableDoc
		if err := bson.Unmarshal(r.Data, &doc); err != nil {
			return err
		}
		ds.Tables = append(ds.Tables, doc)
	case ClassNode:
		var doc NodeDoc
		if err := bson.Unmarshal(r.Data, &doc); err != nil {
			return err
		}
		ds.Nodes = append(ds.Nodes, doc)
	case ClassLink:
		var doc LinkDoc
		if err := bson.Unmarshal(r.Data, &doc); err != nil {
			return err
		}
		ds.Links = append(ds.Links, doc)
	case ClassNodeDistance:
		var doc NodeDistanceDoc
		if err := bson.Unmarshal(r.Data, &doc); err != nil {
			return err
		}
		ds.NodeDistances = append(ds.NodeDistances, doc)
	default:
		return fmt.Errorf("unknown record class %q", r.Class)
	}
	return nil
}

// LoadWithCache cacheDir非空时优先读取缓存文件，否则调用fetch并写缓存
func LoadWithCache(cacheDir, name string, fetch func() (*Dataset, error)) (*Dataset, error) {
	if cacheDir == "" {
		return fetch()
	}
	cachePath := filepath.Join(cacheDir, name+".bson")
	if _, err := os.Stat(cachePath); err == nil {
		log.Infof("load skims from cache %s", cachePath)
		return LoadFile(cachePath)
	}
	ds, err := fetch()
	if err != nil {
		return nil, err
	}
	if err := SaveFile(cachePath, ds); err != nil {
		log.Warnf("failed to write skim cache %s: %v", cachePath, err)
	}
	return ds, nil
}
