package metrics_test

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/hermeslabs/hermes/internal/metrics"
)

func outcomeWithLatency(seq int64, latency time.Duration) metrics.Outcome {
	return metrics.Outcome{
		Seq:        seq,
		StatusCode: 200,
		Latency:    latency,
		LatencyMs:  float64(latency) / float64(time.Millisecond),
	}
}

func TestAggregatorLatencyStats(t *testing.T) {
	a := metrics.NewAggregator()

	// Record deterministic latencies.
	for i, latency := range []time.Duration{10, 20, 30, 40, 50} {
		a.Record(outcomeWithLatency(int64(i+1), latency*time.Millisecond))
	}

	summary := a.Snapshot(0)

	if summary.Total != 5 {
		t.Errorf("expected total 5, got %d", summary.Total)
	}
	if summary.Successes != 5 {
		t.Errorf("expected successes 5, got %d", summary.Successes)
	}
	if summary.Failures != 0 {
		t.Errorf("expected failures 0, got %d", summary.Failures)
	}
	if summary.MinLatency != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %s", summary.MinLatency)
	}
	if summary.MaxLatency != 50*time.Millisecond {
		t.Errorf("expected max 50ms, got %s", summary.MaxLatency)
	}
	if summary.MeanLatency != 30*time.Millisecond {
		t.Errorf("expected mean 30ms, got %s", summary.MeanLatency)
	}
}

func TestPercentilesCalculations(t *testing.T) {
	a := metrics.NewAggregator()

	// 100 samples: 1ms, 2ms, ..., 100ms.
	for i := 1; i <= 100; i++ {
		a.Record(outcomeWithLatency(int64(i), time.Duration(i)*time.Millisecond))
	}

	summary := a.Snapshot(0)

	if summary.P50Latency < 49*time.Millisecond || summary.P50Latency > 51*time.Millisecond {
		t.Errorf("expected P50 ~50ms, got %s", summary.P50Latency)
	}
	if summary.P90Latency < 89*time.Millisecond || summary.P90Latency > 91*time.Millisecond {
		t.Errorf("expected P90 ~90ms, got %s", summary.P90Latency)
	}
	if summary.P99Latency < 98*time.Millisecond || summary.P99Latency > 100*time.Millisecond {
		t.Errorf("expected P99 ~99ms, got %s", summary.P99Latency)
	}
}

// TestOrderIndependence feeds the same multiset of outcomes in shuffled
// orders and expects identical summaries.
func TestOrderIndependence(t *testing.T) {
	outcomes := make([]metrics.Outcome, 0, 200)
	for i := 1; i <= 150; i++ {
		outcomes = append(outcomes, outcomeWithLatency(int64(i), time.Duration(i)*time.Millisecond))
	}
	for i := 151; i <= 180; i++ {
		outcomes = append(outcomes, metrics.Outcome{Seq: int64(i), StatusCode: 429, Latency: 5 * time.Millisecond})
	}
	for i := 181; i <= 200; i++ {
		outcomes = append(outcomes, metrics.Outcome{Seq: int64(i), Kind: metrics.ErrorTimeout, Latency: 2 * time.Second})
	}

	reduce := func(perm []metrics.Outcome) metrics.Summary {
		a := metrics.NewAggregator()
		for _, o := range perm {
			a.Record(o)
		}
		s := a.Snapshot(time.Minute)
		s.StartedAt = time.Time{} // only the aggregates matter
		return s
	}

	base := reduce(outcomes)
	rnd := rand.New(rand.NewSource(1))
	for trial := 0; trial < 5; trial++ {
		perm := append([]metrics.Outcome(nil), outcomes...)
		rnd.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		got := reduce(perm)
		if !reflect.DeepEqual(base, got) {
			t.Fatalf("summary differs under permutation %d:\nbase=%+v\ngot=%+v", trial, base, got)
		}
	}
}

func TestSuccessPlusFailureEqualsTotal(t *testing.T) {
	a := metrics.NewAggregator()
	a.Record(outcomeWithLatency(1, 10*time.Millisecond))
	a.Record(metrics.Outcome{Seq: 2, StatusCode: 429, Latency: time.Millisecond})
	a.Record(metrics.Outcome{Seq: 3, StatusCode: 503, Latency: time.Millisecond})
	a.Record(metrics.Outcome{Seq: 4, Kind: metrics.ErrorTimeout})
	a.Record(metrics.Outcome{Seq: 5, Kind: metrics.ErrorOverloaded})

	summary := a.Snapshot(0)
	if summary.Successes+summary.Failures != summary.Total {
		t.Fatalf("successes (%d) + failures (%d) != total (%d)", summary.Successes, summary.Failures, summary.Total)
	}
	if summary.Total != 5 {
		t.Fatalf("expected total 5, got %d", summary.Total)
	}
	if summary.Successes != 1 {
		t.Fatalf("expected 1 success, got %d", summary.Successes)
	}
	if summary.StatusCounts[429] != 1 || summary.RateLimited() != 1 {
		t.Fatalf("expected one rate-limited response, got %v", summary.StatusCounts)
	}
	if summary.ErrorCounts[metrics.ErrorTimeout] != 1 || summary.ErrorCounts[metrics.ErrorOverloaded] != 1 {
		t.Fatalf("unexpected error histogram: %v", summary.ErrorCounts)
	}
}

func TestOverloadedCarriesNoLatencySample(t *testing.T) {
	a := metrics.NewAggregator()
	a.Record(outcomeWithLatency(1, 20*time.Millisecond))
	a.Record(metrics.Outcome{Seq: 2, Kind: metrics.ErrorOverloaded, Latency: time.Hour})

	summary := a.Snapshot(0)
	if summary.MaxLatency != 20*time.Millisecond {
		t.Fatalf("overloaded outcome polluted latency stats: max=%s", summary.MaxLatency)
	}
}

func TestJSONSummarySchema(t *testing.T) {
	a := metrics.NewAggregator()
	a.Record(outcomeWithLatency(1, 15*time.Millisecond))
	a.Record(outcomeWithLatency(2, 25*time.Millisecond))

	summary := a.Snapshot(100 * time.Millisecond)

	data, err := json.Marshal(summary)
	if err != nil {
		t.Fatalf("failed to marshal summary: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	requiredFields := []string{"total_sent", "successes", "failures", "min_latency_ms", "max_latency_ms", "mean_latency_ms", "p50_latency_ms", "p90_latency_ms", "p99_latency_ms", "duration_ms", "achieved_rps", "status_counts"}
	for _, field := range requiredFields {
		if _, ok := parsed[field]; !ok {
			t.Errorf("missing field %q in JSON output", field)
		}
	}
}

func TestConcurrentRecording(t *testing.T) {
	a := metrics.NewAggregator()

	var wg sync.WaitGroup
	workers := 10
	recordsPerWorker := 100

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < recordsPerWorker; j++ {
				a.Record(outcomeWithLatency(int64(worker*recordsPerWorker+j), time.Millisecond))
			}
		}(i)
	}
	wg.Wait()

	summary := a.Snapshot(0)
	expected := int64(workers * recordsPerWorker)
	if summary.Total != expected {
		t.Errorf("expected total %d, got %d", expected, summary.Total)
	}
}

func TestAchievedRPS(t *testing.T) {
	a := metrics.NewAggregator()
	for i := 0; i < 50; i++ {
		a.Record(outcomeWithLatency(int64(i+1), time.Millisecond))
	}

	summary := a.Snapshot(5 * time.Second)
	if summary.AchievedRPS < 9.9 || summary.AchievedRPS > 10.1 {
		t.Fatalf("expected achieved RPS ~10, got %f", summary.AchievedRPS)
	}
}
