package pathtype

import (
	"git.fiblab.net/general/common/v2/geometry"
)

// Parcel 精细粒度的位置（地块）
type Parcel struct {
	ID       int
	ZoneKey  int
	NodeID   int            // 所在全路网节点，0表示无
	Position geometry.Point // 坐标，单位为Config.LengthUnitsPerDistanceUnit所述的长度单位
	Circuity float64        // 直线距离到路网距离的绕行系数，<=0视为1
}

// Endpoint 出行起讫点，地块或交通小区二选一
type Endpoint struct {
	Zone   int
	Parcel *Parcel
}

func ParcelEndpoint(p *Parcel) Endpoint {
	return Endpoint{Zone: p.ZoneKey, Parcel: p}
}

func ZoneEndpoint(zone int) Endpoint {
	return Endpoint{Zone: zone}
}

func (e Endpoint) ZoneKey() int {
	if e.Parcel != nil {
		return e.Parcel.ZoneKey
	}
	return e.Zone
}

// RandomSource 调用方持有的随机数源，*rand.Rand满足此接口
type RandomSource interface {
	Float64() float64
}

// Query 单个出行方式的路径类型查询，求值期间只读
type Query struct {
	Origin      Endpoint
	Destination Endpoint
	// 出发时刻（分钟），ReturnMinute为0表示单程
	OutboundMinute int
	ReturnMinute   int
	Purpose        Purpose
	// 出行链层面的成本系数（效用/货币单位）与时间系数（效用/分钟），均为负
	CostCoefficient float64
	TimeCoefficient float64
	DrivingAge      bool
	HouseholdCars   int
	// 公交票价折扣比例 [0,1]
	FareDiscount float64
	RandomChoice bool
	Random       RandomSource
	Mode         Mode
}

func (q *Query) roundTrip() bool {
	return q.ReturnMinute > 0
}

// Result 单个出行方式的路径类型选择结果
type Result struct {
	Mode                  Mode
	Available             bool
	PathType              PathType
	PathTime              float64
	PathDistance          float64
	PathCost              float64
	GeneralizedTimeLogsum float64
	GeneralizedTimeChosen float64
	ParkAndRideNodeID     int
}

func unavailableResult(m Mode) Result {
	return Result{
		Mode:                  m,
		GeneralizedTimeLogsum: GeneralizedTimeUnavailable,
		GeneralizedTimeChosen: GeneralizedTimeUnavailable,
	}
}

// SkimRequest 阻抗查询参数
type SkimRequest struct {
	Variable    string
	Mode        Mode // 已映射为SkimMode
	PathType    PathType
	VOT         float64 // 元/小时
	Minute      int
	Origin      Endpoint
	Destination Endpoint
	// 精细化后的距离，0表示不做混合
	Distance float64
}

// SkimValue 阻抗查询结果
// 对time/ivtime，BlendVariable为实际采用的距离
type SkimValue struct {
	Variable      float64
	BlendVariable float64
}

// ImpedanceLookup 阻抗矩阵查询，加载后只读，需支持并发读
// 缺失的数据返回0，由调用方视为"不适用"
type ImpedanceLookup interface {
	GetValue(req SkimRequest) SkimValue
	IsActualCombination(mode Mode, pathType PathType) bool
}

// NodeDistancer 可选接口：地块所在路网节点之间的距离
type NodeDistancer interface {
	NodeDistance(origin, destination *Parcel) (float64, bool)
}
