package pathtype

import (
	"errors"
	"fmt"
)

const (
	// 指数效用下限，低于此值的路径类型视为不可用
	// 需小于exp(MIN_UTILITY)，否则截断后的效用会被误判为不可用
	Epsilon = 1e-40

	// 指数化前的效用截断区间，避免溢出
	MaxUtility = 80.
	MinUtility = -80.

	// 不可用时广义时间的哨兵值
	GeneralizedTimeUnavailable = -999.

	// 同地块步行出行的时间（分钟）与距离（英里）
	sameParcelWalkTime  = 1.
	sameParcelWalkMiles = 0.01
)

// 阻抗变量名
const (
	SkimDistance       = "distance"
	SkimTime           = "time"
	SkimIVTime         = "ivtime"
	SkimToll           = "toll"
	SkimFare           = "fare"
	SkimInitialWait    = "iwaittime"
	SkimTransferWait   = "xwaittime"
	SkimAccessEgress   = "accegrtime"
	SkimClass1Distance = "class1distance"
	SkimClass2Distance = "class2distance"
	SkimBadDistance    = "baddistance"
	SkimWorstDistance  = "worstdistance"
	SkimPnRNode        = "pnrnode"
)

// 公交分车型车内时间变量名，顺序与TransitWeights.classWeights一致
var transitClassTimes = [9]string{
	"ftime", "gtime", "btime", "ptime", "rtime", "stime", "xtime", "ytime", "ztime",
}

var (
	// 错误：请求为空
	ErrNilQuery = errors.New("nil path type query")
	// 错误：需要随机选择但未提供随机数源
	ErrNoRandomSource = errors.New("random path type choice requested without random source")
	// 错误：未定义的出行方式
	ErrUnknownMode = errors.New("unknown mode")
	// 错误：logsum计算出现非有限值
	ErrNumericCorruption = errors.New("non-finite value in path type logsum")
)

// NumericError 携带出错时的中间量，便于定位数据或系数问题
type NumericError struct {
	Mode                  Mode
	Sum                   float64
	Logsum                float64
	ScaledTimeCoefficient float64
	GeneralizedTimeLogsum float64
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("%v for mode %v: sum=%v logsum=%v scaledTimeCoefficient=%v generalizedTimeLogsum=%v",
		ErrNumericCorruption, e.Mode, e.Sum, e.Logsum, e.ScaledTimeCoefficient, e.GeneralizedTimeLogsum)
}

func (e *NumericError) Unwrap() error {
	return ErrNumericCorruption
}
