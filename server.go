package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"connectrpc.com/connect"
	"git.fiblab.net/general/common/v2/mongoutil"
	"git.fiblab.net/sim/pathtype/pathtype"
	"git.fiblab.net/sim/pathtype/skim"
	"git.fiblab.net/sim/pathtype/skim/network"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

var errServiceClosed = errors.New("path type service closed")

// LoadSkims 从文件或mongo加载阻抗数据，mongo来源使用缓存
func LoadSkims(mongoURI string, skimsPath *Path, cacheDir string, lengthUnitsPerDistanceUnit float64) (*skim.Store, error) {
	if skimsPath == nil {
		return nil, errors.New("no skims path")
	}
	var ds *skim.Dataset
	var err error
	if skimsPath.File != "" {
		ds, err = skim.LoadFile(skimsPath.File)
	} else {
		var client *mongo.Client
		defer func() {
			if client != nil {
				client.Disconnect(context.Background())
			}
		}()
		ds, err = skim.LoadWithCache(cacheDir, skimsPath.GetCacheName(), func() (*skim.Dataset, error) {
			client = mongoutil.NewClient(mongoURI)
			return skim.LoadMongo(context.Background(), mongoutil.GetMongoColl(client, skimsPath))
		})
	}
	if err != nil {
		return nil, fmt.Errorf("load skims from %s: %w", skimsPath, err)
	}
	return skim.Build(ds, lengthUnitsPerDistanceUnit)
}

type PathTypeServer struct {
	engine *pathtype.Engine
	store  *skim.Store
	zones  map[int]struct{}

	// 批量求值的并发上限
	workers int
	// 随机选择的基础种子
	seed int64

	// 接口开启true或关闭false
	ok     bool
	closed bool
	// 条件变量
	cond *sync.Cond
}

var _ PathTypeServiceHandler = (*PathTypeServer)(nil)

func NewPathTypeServer(cfg pathtype.Config, store *skim.Store, workers int, seed int64) (*PathTypeServer, error) {
	engine, err := pathtype.New(cfg, store)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 1
	}
	zones := lo.SliceToMap(store.Zones(), func(z int) (int, struct{}) {
		return z, struct{}{}
	})
	log.Infof("path type server ready: %d zones, %d workers", len(zones), workers)
	return &PathTypeServer{
		engine:  engine,
		store:   store,
		zones:   zones,
		workers: workers,
		seed:    seed,
		ok:      true,
		cond:    sync.NewCond(&sync.Mutex{}),
	}, nil
}

// wait 暂停-恢复机制
func (s *PathTypeServer) wait() error {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	for !s.ok && !s.closed {
		// 暂停中
		s.cond.Wait()
	}
	if s.closed {
		return connect.NewError(connect.CodeUnavailable, errServiceClosed)
	}
	return nil
}

func (s *PathTypeServer) checkEndpoint(name string, e EndpointMsg) error {
	zone := e.Zone
	if e.Parcel != nil {
		if e.Parcel.ID == 0 {
			return connect.NewError(
				connect.CodeInvalidArgument,
				fmt.Errorf("no %s parcel id", name),
			)
		}
		zone = e.Parcel.ZoneKey
	}
	if _, ok := s.zones[zone]; !ok {
		return connect.NewError(
			connect.CodeInvalidArgument,
			fmt.Errorf("no %s zone: %v", name, zone),
		)
	}
	return nil
}

func (s *PathTypeServer) query(in QueryMsg) (*pathtype.Query, error) {
	if err := s.checkEndpoint("origin", in.Origin); err != nil {
		return nil, err
	}
	if err := s.checkEndpoint("destination", in.Destination); err != nil {
		return nil, err
	}
	q := &pathtype.Query{
		Origin:          in.Origin.endpoint(),
		Destination:     in.Destination.endpoint(),
		OutboundMinute:  in.OutboundMinute,
		ReturnMinute:    in.ReturnMinute,
		Purpose:         in.Purpose,
		CostCoefficient: in.CostCoefficient,
		TimeCoefficient: in.TimeCoefficient,
		DrivingAge:      in.DrivingAge,
		HouseholdCars:   in.HouseholdCars,
		FareDiscount:    in.FareDiscount,
		RandomChoice:    in.RandomChoice,
	}
	if q.RandomChoice {
		// 每个请求独立的随机数源，结果只依赖种子与entity id
		q.Random = rand.New(rand.NewSource(s.seed + in.EntityID))
	}
	return q, nil
}

// evaluate 单个请求的求值，不做暂停检查
func (s *PathTypeServer) evaluate(in *EvaluateRequest) (*EvaluateResponse, error) {
	q, err := s.query(in.Query)
	if err != nil {
		return nil, err
	}
	var results []pathtype.Result
	switch {
	case in.AllModes && in.IncludeParkAndRide:
		results, err = s.engine.EvaluateAllModesWithParkAndRide(q)
	case in.AllModes:
		results, err = s.engine.EvaluateAllModes(q)
	case len(in.Modes) == 0:
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("no modes in request"))
	default:
		results, err = s.engine.EvaluateMany(q, in.Modes)
	}
	if err != nil {
		return nil, engineError(err)
	}
	return &EvaluateResponse{Results: newResultMsgs(results)}, nil
}

// engineError 将求值错误映射为connect错误码
func engineError(err error) error {
	switch {
	case errors.Is(err, pathtype.ErrUnknownMode), errors.Is(err, pathtype.ErrNilQuery):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, pathtype.ErrNumericCorruption):
		log.Errorf("numeric corruption: %v", err)
		return connect.NewError(connect.CodeInternal, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func (s *PathTypeServer) Evaluate(
	ctx context.Context,
	req *connect.Request[EvaluateRequest],
) (*connect.Response[EvaluateResponse], error) {
	if err := s.wait(); err != nil {
		return nil, err
	}
	log.Debugf("evaluate entity %d with modes %v", req.Msg.Query.EntityID, req.Msg.Modes)
	res, err := s.evaluate(req.Msg)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(res), nil
}

func (s *PathTypeServer) EvaluateBatch(
	ctx context.Context,
	req *connect.Request[EvaluateBatchRequest],
) (*connect.Response[EvaluateBatchResponse], error) {
	if err := s.wait(); err != nil {
		return nil, err
	}
	items := req.Msg.Items
	out := &EvaluateBatchResponse{Items: make([]EvaluateResponse, len(items))}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range items {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return connect.NewError(connect.CodeCanceled, err)
			}
			res, err := s.evaluate(&items[i])
			if err != nil {
				return err
			}
			out.Items[i] = *res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return connect.NewResponse(out), nil
}

func (s *PathTypeServer) SetSkimValues(
	ctx context.Context,
	req *connect.Request[SetSkimValuesRequest],
) (*connect.Response[SetSkimValuesResponse], error) {
	for _, c := range req.Msg.Cells {
		if err := s.store.SetValue(c.Mode, c.PathType, c.Variable, c.Minute, c.VOT, c.Origin, c.Destination, c.Value); err != nil {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
	}
	log.Infof("set %d skim values", len(req.Msg.Cells))
	return connect.NewResponse(&SetSkimValuesResponse{}), nil
}

func (s *PathTypeServer) GetSkimValues(
	ctx context.Context,
	req *connect.Request[GetSkimValuesRequest],
) (*connect.Response[GetSkimValuesResponse], error) {
	out := &GetSkimValuesResponse{
		Cells: append([]SkimCell(nil), req.Msg.Cells...),
	}
	for i := range out.Cells {
		c := &out.Cells[i]
		v, err := s.store.GetCell(c.Mode, c.PathType, c.Variable, c.Minute, c.VOT, c.Origin, c.Destination)
		if err != nil {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
		c.Value = v
	}
	return connect.NewResponse(out), nil
}

// SetLinkLengths 修改路网边长，已缓存的节点距离随之失效
func (s *PathTypeServer) SetLinkLengths(
	ctx context.Context,
	req *connect.Request[SetLinkLengthsRequest],
) (*connect.Response[SetLinkLengthsResponse], error) {
	for _, l := range req.Msg.Links {
		if err := s.store.SetLinkLength(l.From, l.To, l.Length); err != nil {
			if errors.Is(err, network.ErrInvalidLength) {
				return nil, connect.NewError(connect.CodeInvalidArgument, err)
			}
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
	}
	log.Infof("set %d link lengths", len(req.Msg.Links))
	return connect.NewResponse(&SetLinkLengthsResponse{}), nil
}

// 暂停服务
func (s *PathTypeServer) Suspend() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.ok = false
}

// 恢复服务
func (s *PathTypeServer) Resume() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.ok = true
	s.cond.Broadcast()
}

// 关闭服务，等待中与之后的求值请求返回Unavailable
func (s *PathTypeServer) Close() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.closed = true
	s.cond.Broadcast()
	log.Info("path type service closed")
}
