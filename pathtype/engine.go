package pathtype

import (
	"fmt"
	"math"
)

// Engine 路径类型选择模型
// 不持有可变状态，可被多个goroutine并发调用，前提是ImpedanceLookup支持并发读
type Engine struct {
	cfg    Config
	lookup ImpedanceLookup
	// 出行方式族 -> 求值策略
	evaluators map[modeFamily]evaluator
}

func New(cfg Config, lookup ImpedanceLookup) (*Engine, error) {
	if lookup == nil {
		return nil, fmt.Errorf("nil impedance lookup")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		lookup: lookup,
		evaluators: map[modeFamily]evaluator{
			familyWalkBike: walkBikeEvaluator{},
			familyAuto:     autoEvaluator{},
			familyTransit:  transitEvaluator{},
		},
	}, nil
}

// eligible 小汽车驾驶（含停车换乘）要求达到驾驶年龄且家庭有车
func eligible(q *Query) bool {
	switch q.Mode {
	case ModeSOV, ModeHOVDriver, ModeParkAndRide:
		return q.DrivingAge && q.HouseholdCars > 0
	case ModeWalk, ModeBike, ModeHOVPassenger, ModeTransit:
		return true
	default:
		return false
	}
}

func (e *Engine) costCoefficient(q *Query) float64 {
	switch q.Mode {
	case ModeHOVDriver, ModeHOVPassenger:
		if q.Purpose.IsWorkOrBusiness() {
			return q.CostCoefficient / e.cfg.HOVCostDivisorWork
		}
		return q.CostCoefficient / e.cfg.HOVCostDivisorOther
	default:
		return q.CostCoefficient
	}
}

// evaluate 对单个出行方式求所有路径类型的效用并选择
func (e *Engine) evaluate(q *Query) (Result, error) {
	costCoef := e.costCoefficient(q)
	c := &evalContext{
		cfg:      &e.cfg,
		lookup:   e.lookup,
		q:        q,
		skimMode: SkimMode(q.Mode),
		costCoef: costCoef,
		timeCoef: q.TimeCoefficient,
		vot:      60 * q.TimeCoefficient / costCoef,
	}

	var evals [NumPathTypes]pathEval
	var usable [NumPathTypes]bool
	sum, count := 0., 0
	best, bestExp := PathType(-1), 0.
	if eligible(q) {
		ev := e.evaluators[familyOf(q.Mode)]
		for _, pt := range AllPathTypes() {
			if !e.lookup.IsActualCombination(c.skimMode, pt) {
				continue
			}
			pe, ok := ev.evaluate(c, pt)
			if !ok || pe.expUtility < Epsilon {
				continue
			}
			evals[pt], usable[pt] = pe, true
			sum += pe.expUtility
			count++
			// 并列时保留先出现的路径类型
			if pe.expUtility > bestExp {
				best, bestExp = pt, pe.expUtility
			}
		}
	}
	if sum < Epsilon {
		return unavailableResult(q.Mode), nil
	}

	logsum := math.Log(sum)
	scaledTimeCoef := e.cfg.PathChoiceScaleFactor * q.TimeCoefficient
	gtLogsum := logsum / scaledTimeCoef
	if !finite(sum) || !finite(logsum) || !finite(scaledTimeCoef) || !finite(gtLogsum) {
		err := &NumericError{
			Mode:                  q.Mode,
			Sum:                   sum,
			Logsum:                logsum,
			ScaledTimeCoefficient: scaledTimeCoef,
			GeneralizedTimeLogsum: gtLogsum,
		}
		log.Warn(err)
		return Result{}, err
	}

	chosen := best
	if q.RandomChoice && count > 1 && !e.cfg.DeterministicSelection {
		if q.Random == nil {
			return Result{}, ErrNoRandomSource
		}
		chosen = draw(q.Random.Float64(), evals[:], usable[:], sum)
	}
	pe := evals[chosen]
	return Result{
		Mode:                  q.Mode,
		Available:             true,
		PathType:              chosen,
		PathTime:              pe.time,
		PathDistance:          pe.distance,
		PathCost:              pe.cost,
		GeneralizedTimeLogsum: gtLogsum,
		GeneralizedTimeChosen: pe.utility / scaledTimeCoef,
		ParkAndRideNodeID:     pe.pnrNodeID,
	}, nil
}

// draw 按累计概率抽取路径类型，r∈[0,1)
func draw(r float64, evals []pathEval, usable []bool, sum float64) PathType {
	last := PathType(-1)
	for i, pe := range evals {
		if !usable[i] {
			continue
		}
		last = PathType(i)
		r -= pe.expUtility / sum
		if r < 0 {
			return last
		}
	}
	// 浮点误差导致累计概率略小于1
	return last
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
