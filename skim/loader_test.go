package skim_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.fiblab.net/sim/pathtype/skim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const datasetYAML = `
tables:
  - mode: walk
    path_type: full_network
    variable: time
    zones: [1, 2]
    values: [1, 20, 21, 1]
  - mode: walk
    path_type: full_network
    variable: distance
    zones: [1, 2]
    values: [0.05, 1, 1.05, 0.05]
nodes:
  - {id: 1, x: 0, y: 0}
  - {id: 2, x: 100, y: 0}
links:
  - {from: 1, to: 2, length: 0.02}
node_distances:
  - {from: 2, to: 1, distance: 0.03}
`

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skims.yaml")
	require.NoError(t, os.WriteFile(path, []byte(datasetYAML), 0o644))

	ds, err := skim.LoadFile(path)
	require.NoError(t, err)
	require.Len(t, ds.Tables, 2)
	assert.Equal(t, "walk", ds.Tables[0].Mode)
	assert.Equal(t, []float64{1, 20, 21, 1}, ds.Tables[0].Values)
	assert.Len(t, ds.Nodes, 2)
	assert.Len(t, ds.Links, 1)
	assert.Equal(t, 0.03, ds.NodeDistances[0].Distance)

	s, err := skim.Build(ds, 5280)
	require.NoError(t, err)
	assert.Equal(t, 2, s.TableCount())
	assert.Equal(t, []int{1, 2}, s.Zones())
}

func TestSaveAndLoadBSON(t *testing.T) {
	yamlPath := filepath.Join(t.TempDir(), "skims.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(datasetYAML), 0o644))
	ds, err := skim.LoadFile(yamlPath)
	require.NoError(t, err)

	bsonPath := filepath.Join(t.TempDir(), "nested", "skims.bson")
	require.NoError(t, skim.SaveFile(bsonPath, ds))
	loaded, err := skim.LoadFile(bsonPath)
	require.NoError(t, err)
	assert.Equal(t, ds, loaded)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := skim.LoadFile(filepath.Join(t.TempDir(), "missing.bson"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables: {"), 0o644))
	_, err = skim.LoadFile(path)
	assert.Error(t, err)
}

func TestLoadWithCache(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	fetch := func() (*skim.Dataset, error) {
		calls++
		return &skim.Dataset{Tables: []skim.TableDoc{{
			Mode: "bike", PathType: "full_network", Variable: "time",
			Zones: []int{7}, Values: []float64{3},
		}}}, nil
	}

	ds, err := skim.LoadWithCache(dir, "skims.region", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.FileExists(t, filepath.Join(dir, "skims.region.bson"))

	cached, err := skim.LoadWithCache(dir, "skims.region", fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ds.Tables, cached.Tables)

	// 不使用缓存时每次都调用fetch
	_, err = skim.LoadWithCache("", "skims.region", fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	_, err = skim.LoadWithCache(t.TempDir(), "other", func() (*skim.Dataset, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

// 需要MONGO_URI环境变量指向可写的mongo
func TestLoadMongo(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	coll := client.Database("pathtype_test").Collection("skims_" + time.Now().Format("20060102150405"))
	defer coll.Drop(ctx)
	_, err = coll.InsertMany(ctx, []any{
		map[string]any{"class": skim.ClassTable, "data": skim.TableDoc{
			Mode: "walk", PathType: "full_network", Variable: "time",
			Zones: []int{1, 2}, Values: []float64{1, 2, 3, 4},
		}},
		map[string]any{"class": skim.ClassNode, "data": skim.NodeDoc{ID: 1}},
		map[string]any{"class": skim.ClassNode, "data": skim.NodeDoc{ID: 2, X: 10}},
		map[string]any{"class": skim.ClassLink, "data": skim.LinkDoc{From: 1, To: 2, Length: 0.5}},
	})
	require.NoError(t, err)

	ds, err := skim.LoadMongo(ctx, coll)
	require.NoError(t, err)
	assert.Len(t, ds.Tables, 1)
	assert.Len(t, ds.Nodes, 2)
	assert.Len(t, ds.Links, 1)
}
