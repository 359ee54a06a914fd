package pathtype

type walkBikeEvaluator struct{}

func (walkBikeEvaluator) evaluate(c *evalContext, pt PathType) (pathEval, bool) {
	var ev pathEval
	for _, l := range c.legs() {
		if c.q.Mode == ModeWalk && sameParcel(l.origin, l.destination) {
			// 同地块步行，避免零时耗
			ev.time += sameParcelWalkTime
			ev.distance += sameParcelWalkMiles * c.cfg.DistanceUnitsPerMile
			continue
		}
		v := c.value(SkimTime, pt, l, c.refinedDistance(pt, l))
		ev.time += v.Variable
		ev.distance += v.BlendVariable
	}
	if c.q.Mode == ModeBike && c.cfg.UseBikeClassWeights {
		ev.time *= 1 + bikeClassAdjustment(c, pt, ev.distance)
	}
	if ev.time > c.timeLimit() || ev.time < Epsilon {
		return ev, false
	}
	weight := c.cfg.WalkTimeWeight
	if c.q.Mode == ModeBike {
		weight = c.cfg.BikeTimeWeight
	}
	ev.utility, ev.expUtility = exponentiate(c.cfg.PathChoiceScaleFactor * c.timeCoef * ev.time * weight)
	return ev, true
}

// bikeClassAdjustment 按设施等级距离占比加权的时间附加比例
// 缺失的等级距离按0计入
func bikeClassAdjustment(c *evalContext, pt PathType, totalDistance float64) float64 {
	if totalDistance < Epsilon {
		return 0
	}
	w := c.cfg.BikeClassWeights
	classes := []struct {
		variable string
		weight   float64
	}{
		{SkimClass1Distance, w.Class1},
		{SkimClass2Distance, w.Class2},
		{SkimBadDistance, w.Bad},
		{SkimWorstDistance, w.Worst},
	}
	adjustment := 0.
	for _, class := range classes {
		if class.weight > -Epsilon && class.weight < Epsilon {
			continue
		}
		classDistance := 0.
		for _, l := range c.legs() {
			classDistance += c.value(class.variable, pt, l, 0).Variable
		}
		adjustment += classDistance / totalDistance * class.weight
	}
	return adjustment
}
