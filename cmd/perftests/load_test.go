package perftests

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"auction-engine/utils"

	"github.com/shopspring/decimal"
)

func quietLogs(b *testing.B) {
	utils.SetLogOutput(io.Discard)
	b.Cleanup(func() { utils.SetLogOutput(os.Stdout) })
}

// LoadScenario defines configurable benchmark parameters
type LoadScenario struct {
	Name            string
	NumAuctions     int
	ReadRatio       int // out of 10
	MaxBidIncrement int
	Burst           bool // if true, no delay between ops
}

// OperationMetrics collects latencies safely
type OperationMetrics struct {
	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(d time.Duration) {
	om.mu.Lock()
	om.latencies = append(om.latencies, d)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (lo, hi, avg, p95, p99 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return
	}
	latencies := om.latencies
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	lo = latencies[0]
	hi = latencies[len(latencies)-1]

	var total time.Duration
	for _, d := range latencies {
		total += d
	}
	avg = total / time.Duration(len(latencies))
	p95 = latencies[int(0.95*float64(len(latencies)))]
	p99 = latencies[int(0.99*float64(len(latencies)))]
	return
}

// Benchmark_Load_AuctionEngine runs multiple scenarios
func Benchmark_Load_AuctionEngine(b *testing.B) {
	scenarios := []LoadScenario{
		{"Low-Contention-WriteHeavy", 200, 0, 50, false},
		{"High-Contention-WriteHeavy", 10, 0, 20, false},
		{"Mixed-Workload", 50, 7, 30, false},
		{"ReadHeavy", 50, 9, 20, false},
		{"Edge-Case-SingleAuction", 1, 5, 10, false},
		{"Peak-Burst", 50, 0, 20, true},
	}

	for _, s := range scenarios {
		b.Run(s.Name, func(b *testing.B) {
			runParallelScenario(b, s)
		})
	}
}

func runParallelScenario(b *testing.B, s LoadScenario) {
	b.ReportAllocs()

	_, _, svc := newBenchService(b)
	ids := createAuctions(b, svc, s.NumAuctions)
	ctx := context.Background()

	var totalOps, successfulBids, failedBids, totalReads int64
	auctionSuccess := make([]int64, s.NumAuctions)
	metrics := &OperationMetrics{}

	start := time.Now()

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

		for pb.Next() {
			idx := rnd.Intn(s.NumAuctions)
			auctionID := ids[idx]

			opStart := time.Now()
			if rnd.Intn(10) < s.ReadRatio {
				if _, err := svc.GetWinningBid(ctx, auctionID); err != nil {
					b.Logf("ignored read error: %v", err)
				}
				atomic.AddInt64(&totalReads, 1)
			} else {
				a, err := svc.GetAuction(ctx, auctionID)
				if err != nil {
					b.Fatalf("failed to read auction: %v", err)
				}
				amount := a.CurrentPrice.Add(decimal.NewFromInt(int64(1 + rnd.Intn(s.MaxBidIncrement))))
				if _, err := svc.PlaceBid(ctx, auctionID, fmt.Sprintf("user_%d", rnd.Int()), amount); err != nil {
					atomic.AddInt64(&failedBids, 1)
				} else {
					atomic.AddInt64(&successfulBids, 1)
					atomic.AddInt64(&auctionSuccess[idx], 1)
				}
			}

			metrics.Record(time.Since(opStart))
			atomic.AddInt64(&totalOps, 1)

			if !s.Burst {
				time.Sleep(time.Millisecond)
			}
		}
	})

	elapsed := time.Since(start)
	throughput := float64(totalOps) / elapsed.Seconds()
	lo, hi, avg, p95, p99 := metrics.Stats()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	b.Logf(
		"Scenario: %s | Auctions: %d | Total Ops: %d | Accepted Bids: %d | Rejected Bids: %d | Reads: %d | Elapsed: %s | Throughput: %.2f ops/sec | Latency(us) min: %.2f avg: %.2f max: %.2f p95: %.2f p99: %.2f | Memory Alloc: %.2f MB",
		s.Name, s.NumAuctions, totalOps, successfulBids, failedBids, totalReads, elapsed,
		throughput,
		float64(lo.Microseconds()), float64(avg.Microseconds()), float64(hi.Microseconds()),
		float64(p95.Microseconds()), float64(p99.Microseconds()),
		float64(mem.Alloc)/1024/1024,
	)

	for i, v := range auctionSuccess {
		if v > 0 {
			b.Logf("Auction %d accepted bids: %d", i, v)
		}
	}
}
