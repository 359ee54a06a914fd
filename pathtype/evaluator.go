package pathtype

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
)

// pathEval 单个路径类型的求值结果
type pathEval struct {
	utility    float64
	expUtility float64
	time       float64
	distance   float64
	cost       float64
	pnrNodeID  int
}

// evaluator 按出行方式族划分的路径类型求值策略
// 返回false表示该路径类型被筛除
type evaluator interface {
	evaluate(c *evalContext, pt PathType) (pathEval, bool)
}

// evalContext 一次查询内各路径类型共享的只读参数
type evalContext struct {
	cfg      *Config
	lookup   ImpedanceLookup
	q        *Query
	skimMode Mode
	costCoef float64
	timeCoef float64
	vot      float64
}

// leg 单程的起讫点与时刻
type leg struct {
	origin, destination Endpoint
	minute              int
}

// legs 去程，以及往返时的返程
func (c *evalContext) legs() []leg {
	ls := []leg{{origin: c.q.Origin, destination: c.q.Destination, minute: c.q.OutboundMinute}}
	if c.q.roundTrip() {
		ls = append(ls, leg{origin: c.q.Destination, destination: c.q.Origin, minute: c.q.ReturnMinute})
	}
	return ls
}

func (c *evalContext) value(variable string, pt PathType, l leg, distance float64) SkimValue {
	return c.lookupValue(variable, c.skimMode, pt, l, distance)
}

func (c *evalContext) lookupValue(variable string, mode Mode, pt PathType, l leg, distance float64) SkimValue {
	return c.lookup.GetValue(SkimRequest{
		Variable:    variable,
		Mode:        mode,
		PathType:    pt,
		VOT:         c.vot,
		Minute:      l.minute,
		Origin:      l.origin,
		Destination: l.destination,
		Distance:    distance,
	})
}

// timeLimit 可用路径的时间上限，往返加倍
func (c *evalContext) timeLimit() float64 {
	if c.q.roundTrip() {
		return 2 * c.cfg.AvailablePathUpperTimeLimit
	}
	return c.cfg.AvailablePathUpperTimeLimit
}

// refinedDistance 地块级精细化距离，0表示沿用小区矩阵距离
func (c *evalContext) refinedDistance(pt PathType, l leg) float64 {
	o, d := l.origin.Parcel, l.destination.Parcel
	if o == nil || d == nil {
		return 0
	}
	raw := c.value(SkimDistance, pt, l, 0).Variable
	if c.cfg.MaxBlendingDistance > 0 && raw > c.cfg.MaxBlendingDistance {
		return 0
	}
	if c.cfg.UseNodeDistances {
		if nd, ok := c.lookup.(NodeDistancer); ok {
			if v, ok := nd.NodeDistance(o, d); ok {
				return v
			}
		}
	}
	if c.cfg.UseCircuityDistances {
		return circuityDistance(o, d, c.cfg.LengthUnitsPerDistanceUnit)
	}
	return 0
}

func circuityDistance(o, d *Parcel, lengthUnitsPerDistanceUnit float64) float64 {
	circuity := func(p *Parcel) float64 {
		if p.Circuity <= 0 {
			return 1
		}
		return p.Circuity
	}
	straight := geometry.Distance(o.Position, d.Position) / lengthUnitsPerDistanceUnit
	return straight * (circuity(o) + circuity(d)) / 2
}

// exponentiate 截断后取指数
func exponentiate(utility float64) (float64, float64) {
	utility = lo.Clamp(utility, MinUtility, MaxUtility)
	return utility, math.Exp(utility)
}

// sameParcel ID为0的地块只与自身相同
func sameParcel(o, d Endpoint) bool {
	if o.Parcel == nil || d.Parcel == nil {
		return false
	}
	if o.Parcel == d.Parcel {
		return true
	}
	return o.Parcel.ID != 0 && o.Parcel.ID == d.Parcel.ID && o.Parcel.ZoneKey == d.Parcel.ZoneKey
}
