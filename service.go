package main

import (
	"context"
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
	"git.fiblab.net/general/common/v2/geometry"
	"git.fiblab.net/sim/pathtype/pathtype"
	"github.com/samber/lo"
)

const (
	PathTypeServiceName = "pathtype.v1.PathTypeService"

	PathTypeServiceEvaluateProcedure       = "/" + PathTypeServiceName + "/Evaluate"
	PathTypeServiceEvaluateBatchProcedure  = "/" + PathTypeServiceName + "/EvaluateBatch"
	PathTypeServiceSetSkimValuesProcedure  = "/" + PathTypeServiceName + "/SetSkimValues"
	PathTypeServiceGetSkimValuesProcedure  = "/" + PathTypeServiceName + "/GetSkimValues"
	PathTypeServiceSetLinkLengthsProcedure = "/" + PathTypeServiceName + "/SetLinkLengths"
)

// jsonCodec 请求与响应均为普通Go结构体，以JSON编码
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// ParcelMsg ID必须非0
type ParcelMsg struct {
	ID       int     `json:"id"`
	ZoneKey  int     `json:"zone_key"`
	NodeID   int     `json:"node_id,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Circuity float64 `json:"circuity,omitempty"`
}

// EndpointMsg 给出parcel时zone被忽略
type EndpointMsg struct {
	Zone   int        `json:"zone"`
	Parcel *ParcelMsg `json:"parcel,omitempty"`
}

func (e EndpointMsg) endpoint() pathtype.Endpoint {
	if e.Parcel == nil {
		return pathtype.ZoneEndpoint(e.Zone)
	}
	return pathtype.ParcelEndpoint(&pathtype.Parcel{
		ID:       e.Parcel.ID,
		ZoneKey:  e.Parcel.ZoneKey,
		NodeID:   e.Parcel.NodeID,
		Position: geometry.Point{X: e.Parcel.X, Y: e.Parcel.Y},
		Circuity: e.Parcel.Circuity,
	})
}

type QueryMsg struct {
	// 随机选择时与服务的种子相加作为随机数种子
	EntityID        int64            `json:"entity_id"`
	Origin          EndpointMsg      `json:"origin"`
	Destination     EndpointMsg      `json:"destination"`
	OutboundMinute  int              `json:"outbound_minute"`
	ReturnMinute    int              `json:"return_minute,omitempty"`
	Purpose         pathtype.Purpose `json:"purpose"`
	CostCoefficient float64          `json:"cost_coefficient"`
	TimeCoefficient float64          `json:"time_coefficient"`
	DrivingAge      bool             `json:"driving_age"`
	HouseholdCars   int              `json:"household_cars"`
	FareDiscount    float64          `json:"fare_discount,omitempty"`
	RandomChoice    bool             `json:"random_choice,omitempty"`
}

type EvaluateRequest struct {
	Query QueryMsg        `json:"query"`
	Modes []pathtype.Mode `json:"modes,omitempty"`
	// AllModes为真时忽略Modes，按固定顺序求值全部地面出行方式
	AllModes           bool `json:"all_modes,omitempty"`
	IncludeParkAndRide bool `json:"include_park_and_ride,omitempty"`
}

type ResultMsg struct {
	Mode                  pathtype.Mode     `json:"mode"`
	Available             bool              `json:"available"`
	PathType              pathtype.PathType `json:"path_type"`
	PathTime              float64           `json:"path_time"`
	PathDistance          float64           `json:"path_distance"`
	PathCost              float64           `json:"path_cost"`
	GeneralizedTimeLogsum float64           `json:"generalized_time_logsum"`
	GeneralizedTimeChosen float64           `json:"generalized_time_chosen"`
	ParkAndRideNodeID     int               `json:"park_and_ride_node_id,omitempty"`
}

func newResultMsgs(results []pathtype.Result) []ResultMsg {
	return lo.Map(results, func(r pathtype.Result, _ int) ResultMsg {
		return ResultMsg{
			Mode:                  r.Mode,
			Available:             r.Available,
			PathType:              r.PathType,
			PathTime:              r.PathTime,
			PathDistance:          r.PathDistance,
			PathCost:              r.PathCost,
			GeneralizedTimeLogsum: r.GeneralizedTimeLogsum,
			GeneralizedTimeChosen: r.GeneralizedTimeChosen,
			ParkAndRideNodeID:     r.ParkAndRideNodeID,
		}
	})
}

type EvaluateResponse struct {
	Results []ResultMsg `json:"results"`
}

type EvaluateBatchRequest struct {
	Items []EvaluateRequest `json:"items"`
}

type EvaluateBatchResponse struct {
	Items []EvaluateResponse `json:"items"`
}

// SkimCell 单个阻抗矩阵单元格
type SkimCell struct {
	Mode        pathtype.Mode     `json:"mode"`
	PathType    pathtype.PathType `json:"path_type"`
	Variable    string            `json:"variable"`
	Minute      int               `json:"minute"`
	VOT         float64           `json:"vot,omitempty"`
	Origin      int               `json:"origin"`
	Destination int               `json:"destination"`
	Value       float64           `json:"value"`
}

type SetSkimValuesRequest struct {
	Cells []SkimCell `json:"cells"`
}

type SetSkimValuesResponse struct{}

// GetSkimValuesRequest 请求中的Value被忽略
type GetSkimValuesRequest struct {
	Cells []SkimCell `json:"cells"`
}

type GetSkimValuesResponse struct {
	Cells []SkimCell `json:"cells"`
}

// LinkLength 路网边长，单位与阻抗矩阵距离相同
type LinkLength struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Length float64 `json:"length"`
}

type SetLinkLengthsRequest struct {
	Links []LinkLength `json:"links"`
}

type SetLinkLengthsResponse struct{}

// PathTypeServiceHandler 服务端接口
type PathTypeServiceHandler interface {
	Evaluate(context.Context, *connect.Request[EvaluateRequest]) (*connect.Response[EvaluateResponse], error)
	EvaluateBatch(context.Context, *connect.Request[EvaluateBatchRequest]) (*connect.Response[EvaluateBatchResponse], error)
	SetSkimValues(context.Context, *connect.Request[SetSkimValuesRequest]) (*connect.Response[SetSkimValuesResponse], error)
	GetSkimValues(context.Context, *connect.Request[GetSkimValuesRequest]) (*connect.Response[GetSkimValuesResponse], error)
	SetLinkLengths(context.Context, *connect.Request[SetLinkLengthsRequest]) (*connect.Response[SetLinkLengthsResponse], error)
}

// NewPathTypeServiceHandler 返回挂载路径前缀与handler
func NewPathTypeServiceHandler(svc PathTypeServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(PathTypeServiceEvaluateProcedure, connect.NewUnaryHandler(
		PathTypeServiceEvaluateProcedure, svc.Evaluate, opts...,
	))
	mux.Handle(PathTypeServiceEvaluateBatchProcedure, connect.NewUnaryHandler(
		PathTypeServiceEvaluateBatchProcedure, svc.EvaluateBatch, opts...,
	))
	mux.Handle(PathTypeServiceSetSkimValuesProcedure, connect.NewUnaryHandler(
		PathTypeServiceSetSkimValuesProcedure, svc.SetSkimValues, opts...,
	))
	mux.Handle(PathTypeServiceGetSkimValuesProcedure, connect.NewUnaryHandler(
		PathTypeServiceGetSkimValuesProcedure, svc.GetSkimValues, opts...,
	))
	mux.Handle(PathTypeServiceSetLinkLengthsProcedure, connect.NewUnaryHandler(
		PathTypeServiceSetLinkLengthsProcedure, svc.SetLinkLengths, opts...,
	))
	return "/" + PathTypeServiceName + "/", mux
}

// PathTypeServiceClient 客户端，供调用方与测试使用
type PathTypeServiceClient struct {
	evaluate       *connect.Client[EvaluateRequest, EvaluateResponse]
	evaluateBatch  *connect.Client[EvaluateBatchRequest, EvaluateBatchResponse]
	setSkimValues  *connect.Client[SetSkimValuesRequest, SetSkimValuesResponse]
	getSkimValues  *connect.Client[GetSkimValuesRequest, GetSkimValuesResponse]
	setLinkLengths *connect.Client[SetLinkLengthsRequest, SetLinkLengthsResponse]
}

func NewPathTypeServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PathTypeServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &PathTypeServiceClient{
		evaluate: connect.NewClient[EvaluateRequest, EvaluateResponse](
			httpClient, baseURL+PathTypeServiceEvaluateProcedure, opts...,
		),
		evaluateBatch: connect.NewClient[EvaluateBatchRequest, EvaluateBatchResponse](
			httpClient, baseURL+PathTypeServiceEvaluateBatchProcedure, opts...,
		),
		setSkimValues: connect.NewClient[SetSkimValuesRequest, SetSkimValuesResponse](
			httpClient, baseURL+PathTypeServiceSetSkimValuesProcedure, opts...,
		),
		getSkimValues: connect.NewClient[GetSkimValuesRequest, GetSkimValuesResponse](
			httpClient, baseURL+PathTypeServiceGetSkimValuesProcedure, opts...,
		),
		setLinkLengths: connect.NewClient[SetLinkLengthsRequest, SetLinkLengthsResponse](
			httpClient, baseURL+PathTypeServiceSetLinkLengthsProcedure, opts...,
		),
	}
}

func (c *PathTypeServiceClient) Evaluate(ctx context.Context, req *connect.Request[EvaluateRequest]) (*connect.Response[EvaluateResponse], error) {
	return c.evaluate.CallUnary(ctx, req)
}

func (c *PathTypeServiceClient) EvaluateBatch(ctx context.Context, req *connect.Request[EvaluateBatchRequest]) (*connect.Response[EvaluateBatchResponse], error) {
	return c.evaluateBatch.CallUnary(ctx, req)
}

func (c *PathTypeServiceClient) SetSkimValues(ctx context.Context, req *connect.Request[SetSkimValuesRequest]) (*connect.Response[SetSkimValuesResponse], error) {
	return c.setSkimValues.CallUnary(ctx, req)
}

func (c *PathTypeServiceClient) GetSkimValues(ctx context.Context, req *connect.Request[GetSkimValuesRequest]) (*connect.Response[GetSkimValuesResponse], error) {
	return c.getSkimValues.CallUnary(ctx, req)
}

func (c *PathTypeServiceClient) SetLinkLengths(ctx context.Context, req *connect.Request[SetLinkLengthsRequest]) (*connect.Response[SetLinkLengthsResponse], error) {
	return c.setLinkLengths.CallUnary(ctx, req)
}
