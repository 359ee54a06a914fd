package pathtype

import (
	"fmt"
)

// EvaluateOne 对q.Mode求路径类型选择结果
func (e *Engine) EvaluateOne(q *Query) (Result, error) {
	if q == nil {
		return Result{}, ErrNilQuery
	}
	if q.Mode < 0 || int(q.Mode) >= NumModes {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownMode, int(q.Mode))
	}
	res, err := e.evaluate(q)
	if err != nil {
		return res, err
	}
	log.Debugf("mode %v from zone %d to zone %d: available=%v path type=%v",
		q.Mode, q.Origin.ZoneKey(), q.Destination.ZoneKey(), res.Available, res.PathType)
	return res, nil
}

// EvaluateMany 按给定顺序对每个出行方式独立求值，q.Mode被忽略
func (e *Engine) EvaluateMany(q *Query, modes []Mode) ([]Result, error) {
	if q == nil {
		return nil, ErrNilQuery
	}
	results := make([]Result, 0, len(modes))
	for _, m := range modes {
		mq := *q
		mq.Mode = m
		res, err := e.EvaluateOne(&mq)
		if err != nil {
			return nil, fmt.Errorf("evaluate mode %v: %w", m, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (e *Engine) EvaluateAllModes(q *Query) ([]Result, error) {
	return e.EvaluateMany(q, SurfaceModes())
}

func (e *Engine) EvaluateAllModesWithParkAndRide(q *Query) ([]Result, error) {
	return e.EvaluateMany(q, SurfaceModesWithParkAndRide())
}
