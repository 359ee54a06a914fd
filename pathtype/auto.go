package pathtype

type autoEvaluator struct{}

func (autoEvaluator) evaluate(c *evalContext, pt PathType) (pathEval, bool) {
	var ev pathEval
	legs := c.legs()
	toll := 0.
	for _, l := range legs {
		toll += c.value(SkimToll, pt, l, 0).Variable
	}
	tollConstant := 0.
	if pt == PathTypeFullNetwork && c.lookup.IsActualCombination(c.skimMode, PathTypeNoTolls) {
		noToll := 0.
		for _, l := range legs {
			noToll += c.value(SkimToll, PathTypeNoTolls, l, 0).Variable
		}
		// 收费不高于免费路径时与免费路径重复
		if toll <= noToll+Epsilon {
			return ev, false
		}
		tollConstant = c.cfg.TollConstant
	}
	for _, l := range legs {
		v := c.value(SkimIVTime, pt, l, c.refinedDistance(pt, l))
		ev.time += v.Variable
		ev.distance += v.BlendVariable
	}
	// 缺失的时间按0返回，视为无此路径
	if ev.time > c.timeLimit() || ev.time < Epsilon {
		return ev, false
	}
	ev.cost = toll + ev.distance*c.cfg.AutoOperatingCostPerDistanceUnit
	ev.utility, ev.expUtility = exponentiate(c.cfg.PathChoiceScaleFactor *
		(c.costCoef*ev.cost + c.timeCoef*ev.time + tollConstant))
	return ev, true
}
