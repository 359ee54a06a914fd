package main

import (
	"context"
	"flag"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/pathtype/pathtype"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var (
	benchmarkCount  = flag.Int("benchmark.count", 1000, "the random query count for benchmark")
	benchmarkSeed   = flag.Int64("benchmark.seed", 0, "the seed for benchmark")
	benchmarkCPU    = flag.Int("benchmark.cpu", 1, "the cpu count for benchmark")
	benchmarkRandom = flag.Bool("benchmark.random", false, "use random path type selection in benchmark")
)

// benchmarkRequests 随机起讫小区与时刻，求值全部出行方式（含停车换乘）
func benchmarkRequests(zones []int, count int, e *rand.Rand) []*connect.Request[EvaluateRequest] {
	purposes := []pathtype.Purpose{pathtype.PurposeWork, pathtype.PurposeShopping, pathtype.PurposeBusiness}
	reqs := make([]*connect.Request[EvaluateRequest], count)
	for i := 0; i < count; i++ {
		q := QueryMsg{
			EntityID:        int64(i),
			Origin:          EndpointMsg{Zone: zones[e.Intn(len(zones))]},
			Destination:     EndpointMsg{Zone: zones[e.Intn(len(zones))]},
			OutboundMinute:  e.Intn(24 * 60),
			Purpose:         purposes[e.Intn(len(purposes))],
			CostCoefficient: -0.15 - 0.1*e.Float64(),
			TimeCoefficient: -0.02 - 0.03*e.Float64(),
			DrivingAge:      e.Intn(5) > 0,
			HouseholdCars:   e.Intn(3),
			RandomChoice:    *benchmarkRandom,
		}
		if e.Intn(2) == 0 {
			q.ReturnMinute = q.OutboundMinute + 60 + e.Intn(480)
		}
		reqs[i] = connect.NewRequest(&EvaluateRequest{
			Query:              q,
			AllModes:           true,
			IncludeParkAndRide: true,
		})
	}
	return reqs
}

func runBenchmark(server *PathTypeServer) {
	log.Logger.SetLevel(logrus.WarnLevel)
	zones := server.store.Zones()
	if len(zones) == 0 {
		log.Error("benchmark skipped: no zones in skims")
		return
	}
	// 设置随机种子
	e := rand.New(rand.NewSource(*benchmarkSeed))
	reqs := benchmarkRequests(zones, *benchmarkCount, e)

	// 开始benchmark
	start := time.Now()
	var wg sync.WaitGroup
	var available atomic.Int32
	evaluate := func(req *connect.Request[EvaluateRequest]) {
		res, err := server.Evaluate(context.Background(), req)
		if err != nil {
			log.Error("benchmark failed, err:", err)
			return
		}
		available.Add(int32(lo.CountBy(res.Msg.Results, func(r ResultMsg) bool {
			return r.Available
		})))
	}
	if *benchmarkCPU == 1 {
		for _, req := range reqs {
			evaluate(req)
		}
	} else {
		// 设置cpu数量
		runtime.GOMAXPROCS(*benchmarkCPU)
		wg.Add(len(reqs))
		for _, req := range reqs {
			go func(req *connect.Request[EvaluateRequest]) {
				defer wg.Done()
				evaluate(req)
			}(req)
		}
		wg.Wait()
	}
	timeCost := time.Since(start) * time.Duration(*benchmarkCPU)
	log.Error(
		"benchmark finished", "\n",
		"count:", *benchmarkCount, "\n",
		"time:", timeCost, "\n",
		"avg:", timeCost/time.Duration(max(*benchmarkCount, 1)), "\n",
		"available modes:", available.Load(), "\n",
	)
}
