package pathtype

type transitEvaluator struct{}

func (transitEvaluator) evaluate(c *evalContext, pt PathType) (pathEval, bool) {
	var ev pathEval
	legs := c.legs()
	ivTime := 0.
	for _, l := range legs {
		t := c.value(SkimIVTime, pt, l, 0).Variable
		if t < Epsilon {
			// 无此类服务
			return ev, false
		}
		ivTime += t
	}

	var initialWait, transferWait, fare, accessEgress float64
	var classTimes [len(transitClassTimes)]float64
	for _, l := range legs {
		initialWait += c.value(SkimInitialWait, pt, l, 0).Variable
		transferWait += c.value(SkimTransferWait, pt, l, 0).Variable
		fare += c.value(SkimFare, pt, l, 0).Variable
		accessEgress += c.value(SkimAccessEgress, pt, l, 0).Variable
		for i, variable := range transitClassTimes {
			classTimes[i] += c.value(variable, pt, l, 0).Variable
		}
	}
	// 距离取小汽车去程距离，往返加倍
	ev.distance = c.lookupValue(SkimDistance, ModeSOV, PathTypeFullNetwork, legs[0], 0).Variable
	if c.q.roundTrip() {
		ev.distance *= 2
	}
	fare *= 1 - c.q.FareDiscount
	ev.cost = fare
	ev.time = ivTime + initialWait + transferWait + accessEgress
	if ev.time > c.timeLimit() {
		return ev, false
	}

	w := c.cfg.TransitWeights
	weightedTime := 0.
	for i, weight := range w.classWeights() {
		weightedTime += weight * classTimes[i]
	}
	weightedTime += w.AccessEgress*accessEgress + w.FirstWait*initialWait + w.TransferWait*transferWait
	ev.utility, ev.expUtility = exponentiate(c.cfg.PathChoiceScaleFactor *
		(c.costCoef*fare + c.timeCoef*weightedTime))

	if c.q.Mode == ModeParkAndRide {
		if node := int(c.value(SkimPnRNode, pt, legs[0], 0).Variable); node > 0 {
			ev.pnrNodeID = node
		}
	}
	return ev, true
}
