package main

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/pathtype/pathtype"
	"git.fiblab.net/sim/pathtype/skim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset() *skim.Dataset {
	zones := []int{1, 2}
	doc := func(mode, pt, variable string, values ...float64) skim.TableDoc {
		return skim.TableDoc{Mode: mode, PathType: pt, Variable: variable, Zones: zones, Values: values}
	}
	return &skim.Dataset{
		Tables: []skim.TableDoc{
			doc("walk", "full_network", "time", 1, 30, 32, 1),
			doc("walk", "full_network", "distance", 0.05, 1.5, 1.6, 0.05),
			doc("sov", "full_network", "time", 1, 10, 11, 1),
			doc("sov", "full_network", "ivtime", 1, 10, 11, 1),
			doc("sov", "full_network", "distance", 0.5, 5, 5.2, 0.5),
			doc("sov", "full_network", "toll", 0, 2, 2, 0),
			doc("sov", "no_tolls", "time", 1, 14, 15, 1),
			doc("sov", "no_tolls", "ivtime", 1, 14, 15, 1),
			doc("sov", "no_tolls", "distance", 0.5, 6, 6.2, 0.5),
		},
	}
}

func newTestServer(t testing.TB) *PathTypeServer {
	store, err := skim.Build(testDataset(), 5280)
	require.NoError(t, err)
	server, err := NewPathTypeServer(pathtype.DefaultConfig(), store, 4, 7)
	require.NoError(t, err)
	return server
}

func newTestClient(t *testing.T, server *PathTypeServer) (*PathTypeServiceClient, string) {
	mux := http.NewServeMux()
	mux.Handle(NewPathTypeServiceHandler(server))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewPathTypeServiceClient(srv.Client(), srv.URL), srv.URL
}

func testQuery(entity int64) QueryMsg {
	return QueryMsg{
		EntityID:        entity,
		Origin:          EndpointMsg{Zone: 1},
		Destination:     EndpointMsg{Zone: 2},
		OutboundMinute:  480,
		ReturnMinute:    1020,
		Purpose:         pathtype.PurposeWork,
		CostCoefficient: -0.2,
		TimeCoefficient: -0.05,
		DrivingAge:      true,
		HouseholdCars:   1,
	}
}

func TestEvaluate(t *testing.T) {
	client, _ := newTestClient(t, newTestServer(t))

	res, err := client.Evaluate(context.Background(), connect.NewRequest(&EvaluateRequest{
		Query: testQuery(1),
		Modes: []pathtype.Mode{pathtype.ModeWalk, pathtype.ModeSOV, pathtype.ModeTransit},
	}))
	require.NoError(t, err)
	results := res.Msg.Results
	require.Len(t, results, 3)

	assert.Equal(t, pathtype.ModeWalk, results[0].Mode)
	assert.True(t, results[0].Available)
	assert.Equal(t, 62.0, results[0].PathTime)

	assert.Equal(t, pathtype.ModeSOV, results[1].Mode)
	assert.True(t, results[1].Available)
	// 确定性选择取效用最高的无收费路径
	assert.Equal(t, pathtype.PathTypeNoTolls, results[1].PathType)
	assert.Equal(t, 29.0, results[1].PathTime)

	assert.Equal(t, pathtype.ModeTransit, results[2].Mode)
	assert.False(t, results[2].Available)
	assert.Equal(t, pathtype.GeneralizedTimeUnavailable, results[2].GeneralizedTimeLogsum)
}

func TestEvaluateAllModes(t *testing.T) {
	client, _ := newTestClient(t, newTestServer(t))

	res, err := client.Evaluate(context.Background(), connect.NewRequest(&EvaluateRequest{
		Query:    testQuery(1),
		AllModes: true,
	}))
	require.NoError(t, err)
	assert.Len(t, res.Msg.Results, len(pathtype.SurfaceModes()))

	res, err = client.Evaluate(context.Background(), connect.NewRequest(&EvaluateRequest{
		Query:              testQuery(1),
		AllModes:           true,
		IncludeParkAndRide: true,
	}))
	require.NoError(t, err)
	require.Len(t, res.Msg.Results, len(pathtype.SurfaceModesWithParkAndRide()))
	for i, m := range pathtype.SurfaceModesWithParkAndRide() {
		assert.Equal(t, m, res.Msg.Results[i].Mode)
	}
}

func TestEvaluateInvalidArgument(t *testing.T) {
	client, url := newTestClient(t, newTestServer(t))

	q := testQuery(1)
	q.Destination.Zone = 99
	_, err := client.Evaluate(context.Background(), connect.NewRequest(&EvaluateRequest{
		Query: q,
		Modes: []pathtype.Mode{pathtype.ModeWalk},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	q = testQuery(1)
	q.Origin.Parcel = &ParcelMsg{ID: 5, ZoneKey: 42}
	_, err = client.Evaluate(context.Background(), connect.NewRequest(&EvaluateRequest{
		Query: q,
		Modes: []pathtype.Mode{pathtype.ModeWalk},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	// 缺少ID的地块
	q = testQuery(1)
	q.Origin.Parcel = &ParcelMsg{ZoneKey: 1}
	q.Destination.Parcel = &ParcelMsg{ZoneKey: 2, X: 7000}
	_, err = client.Evaluate(context.Background(), connect.NewRequest(&EvaluateRequest{
		Query: q,
		Modes: []pathtype.Mode{pathtype.ModeWalk},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = client.Evaluate(context.Background(), connect.NewRequest(&EvaluateRequest{
		Query: testQuery(1),
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	// 未知出行方式在解码时被拒绝
	body := `{"query":{"origin":{"zone":1},"destination":{"zone":2},"purpose":"work"},"modes":["plane"]}`
	resp, err := http.Post(url+PathTypeServiceEvaluateProcedure, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEvaluateBatch(t *testing.T) {
	client, _ := newTestClient(t, newTestServer(t))

	items := make([]EvaluateRequest, 20)
	for i := range items {
		q := testQuery(int64(i))
		q.RandomChoice = true
		items[i] = EvaluateRequest{Query: q, Modes: []pathtype.Mode{pathtype.ModeSOV, pathtype.ModeWalk}}
	}
	first, err := client.EvaluateBatch(context.Background(), connect.NewRequest(&EvaluateBatchRequest{Items: items}))
	require.NoError(t, err)
	second, err := client.EvaluateBatch(context.Background(), connect.NewRequest(&EvaluateBatchRequest{Items: items}))
	require.NoError(t, err)
	require.Len(t, first.Msg.Items, len(items))
	// 随机选择只依赖种子与entity id
	assert.Equal(t, first.Msg.Items, second.Msg.Items)

	single, err := client.Evaluate(context.Background(), connect.NewRequest(&items[3]))
	require.NoError(t, err)
	assert.Equal(t, first.Msg.Items[3], *single.Msg)

	items[5].Query.Origin.Zone = 99
	_, err = client.EvaluateBatch(context.Background(), connect.NewRequest(&EvaluateBatchRequest{Items: items}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestSkimValues(t *testing.T) {
	server := newTestServer(t)
	client, _ := newTestClient(t, server)
	ctx := context.Background()

	cell := SkimCell{
		Mode:        pathtype.ModeWalk,
		PathType:    pathtype.PathTypeFullNetwork,
		Variable:    pathtype.SkimTime,
		Minute:      480,
		Origin:      1,
		Destination: 2,
	}
	got, err := client.GetSkimValues(ctx, connect.NewRequest(&GetSkimValuesRequest{Cells: []SkimCell{cell}}))
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.Msg.Cells[0].Value)

	cell.Value = 500
	_, err = client.SetSkimValues(ctx, connect.NewRequest(&SetSkimValuesRequest{Cells: []SkimCell{cell}}))
	require.NoError(t, err)
	got, err = client.GetSkimValues(ctx, connect.NewRequest(&GetSkimValuesRequest{Cells: []SkimCell{cell}}))
	require.NoError(t, err)
	assert.Equal(t, 500.0, got.Msg.Cells[0].Value)

	// 修改后步行超过时间上限
	res, err := client.Evaluate(ctx, connect.NewRequest(&EvaluateRequest{
		Query: testQuery(1),
		Modes: []pathtype.Mode{pathtype.ModeWalk},
	}))
	require.NoError(t, err)
	assert.False(t, res.Msg.Results[0].Available)

	missing := cell
	missing.Mode = pathtype.ModeBike
	_, err = client.SetSkimValues(ctx, connect.NewRequest(&SetSkimValuesRequest{Cells: []SkimCell{missing}}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	missing = cell
	missing.Origin = 99
	_, err = client.GetSkimValues(ctx, connect.NewRequest(&GetSkimValuesRequest{Cells: []SkimCell{missing}}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestSetLinkLengths(t *testing.T) {
	ds := testDataset()
	ds.Nodes = []skim.NodeDoc{{ID: 11, X: 0, Y: 0}, {ID: 12, X: 0, Y: 5280}}
	ds.Links = []skim.LinkDoc{{From: 11, To: 12, Length: 1}}
	store, err := skim.Build(ds, 5280)
	require.NoError(t, err)
	cfg := pathtype.DefaultConfig()
	cfg.UseNodeDistances = true
	server, err := NewPathTypeServer(cfg, store, 1, 7)
	require.NoError(t, err)
	client, _ := newTestClient(t, server)
	ctx := context.Background()

	q := testQuery(1)
	q.Origin = EndpointMsg{Parcel: &ParcelMsg{ID: 1, ZoneKey: 1, NodeID: 11}}
	q.Destination = EndpointMsg{Parcel: &ParcelMsg{ID: 2, ZoneKey: 2, NodeID: 12}}
	walkTime := func() float64 {
		res, err := client.Evaluate(ctx, connect.NewRequest(&EvaluateRequest{
			Query: q,
			Modes: []pathtype.Mode{pathtype.ModeWalk},
		}))
		require.NoError(t, err)
		require.True(t, res.Msg.Results[0].Available)
		return res.Msg.Results[0].PathTime
	}
	// 30*1/1.5 + 32*1/1.6
	assert.InDelta(t, 40.0, walkTime(), 1e-9)

	_, err = client.SetLinkLengths(ctx, connect.NewRequest(&SetLinkLengthsRequest{
		Links: []LinkLength{{From: 11, To: 12, Length: 3}},
	}))
	require.NoError(t, err)
	assert.InDelta(t, 120.0, walkTime(), 1e-9)

	_, err = client.SetLinkLengths(ctx, connect.NewRequest(&SetLinkLengthsRequest{
		Links: []LinkLength{{From: 11, To: 42, Length: 1}},
	}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	_, err = client.SetLinkLengths(ctx, connect.NewRequest(&SetLinkLengthsRequest{
		Links: []LinkLength{{From: 11, To: 12, Length: -1}},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	// 未加载路网
	_, err = newTestServer(t).SetLinkLengths(ctx, connect.NewRequest(&SetLinkLengthsRequest{
		Links: []LinkLength{{From: 11, To: 12, Length: 1}},
	}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestSuspendResumeClose(t *testing.T) {
	server := newTestServer(t)
	req := connect.NewRequest(&EvaluateRequest{
		Query: testQuery(1),
		Modes: []pathtype.Mode{pathtype.ModeWalk},
	})

	server.Suspend()
	done := make(chan error, 1)
	go func() {
		_, err := server.Evaluate(context.Background(), req)
		done <- err
	}()
	select {
	case <-done:
		t.Fatal("evaluate returned while suspended")
	case <-time.After(50 * time.Millisecond):
	}
	server.Resume()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("evaluate did not resume")
	}

	server.Close()
	_, err := server.Evaluate(context.Background(), req)
	assert.Equal(t, connect.CodeUnavailable, connect.CodeOf(err))
}

func TestNewPath(t *testing.T) {
	p, err := NewPath("")
	assert.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewPath("region.skims")
	require.NoError(t, err)
	assert.Equal(t, "region", p.GetDb())
	assert.Equal(t, "skims", p.GetColl())
	assert.Equal(t, "region.skims", p.GetCacheName())

	_, err = NewPath("a.b.c")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "skims.bson")
	require.NoError(t, skim.SaveFile(file, testDataset()))
	p, err = NewPath(file)
	require.NoError(t, err)
	assert.Equal(t, file, p.File)

	store, err := LoadSkims("", p, "", 5280)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, store.Zones())

	_, err = LoadSkims("", nil, "", 5280)
	assert.Error(t, err)
}

func TestBenchmarkRequests(t *testing.T) {
	server := newTestServer(t)
	reqs := benchmarkRequests(server.store.Zones(), 50, rand.New(rand.NewSource(3)))
	require.Len(t, reqs, 50)
	for _, req := range reqs {
		res, err := server.Evaluate(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, res.Msg.Results, len(pathtype.SurfaceModesWithParkAndRide()))
	}
}

func FuzzEvaluate(f *testing.F) {
	server := newTestServer(f)
	if path := os.Getenv("SKIMS_PATH"); path != "" {
		p, err := NewPath(path)
		require.NoError(f, err)
		store, err := LoadSkims(os.Getenv("MONGO_URI"), p, "./data", 5280)
		require.NoError(f, err)
		server, err = NewPathTypeServer(pathtype.DefaultConfig(), store, 4, 0)
		require.NoError(f, err)
	}
	zones := server.store.Zones()

	f.Add(uint8(0), uint16(0), uint16(1), uint16(480), uint16(0), false, int64(0))
	f.Fuzz(func(t *testing.T, mode uint8, origin uint16, destination uint16, outbound uint16, ret uint16, random bool, entity int64) {
		q := testQuery(entity)
		q.Origin.Zone = zones[int(origin)%len(zones)]
		q.Destination.Zone = zones[int(destination)%len(zones)]
		q.OutboundMinute = int(outbound)
		q.ReturnMinute = int(ret)
		q.RandomChoice = random
		res, err := server.Evaluate(context.Background(), connect.NewRequest(&EvaluateRequest{
			Query: q,
			Modes: []pathtype.Mode{pathtype.Mode(int(mode) % pathtype.NumModes)},
		}))
		// 有且只有一个是nil
		assert.True(t, (res == nil) != (err == nil))
		if err == nil {
			assert.Len(t, res.Msg.Results, 1)
		}
	})
}
