package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Aggregator reduces the outcome stream into running aggregates in a
// thread-safe manner. Arrival order is irrelevant: every operation is
// commutative over the set of recorded outcomes.
type Aggregator struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	overruns     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	latencyCount int64
	statusCounts map[int]int64
	errorCounts  map[ErrorKind]int64
	start        time.Time
}

// Summary is the aggregated view of one run. Derived, immutable, and flat so
// collaborators can serialize it losslessly.
type Summary struct {
	RunID     string    `json:"run_id,omitempty"`
	State     string    `json:"state,omitempty"`
	StartedAt time.Time `json:"started_at"`

	Total     int64 `json:"total_sent"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	Overruns  int64 `json:"tick_overruns,omitempty"`

	StatusCounts map[int]int64       `json:"status_counts,omitempty"`
	ErrorCounts  map[ErrorKind]int64 `json:"errors,omitempty"`

	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P90Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`
	Duration    time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	AchievedRPS float64 `json:"achieved_rps"`
}

// RateLimited returns the count of 429 responses, the signal this tool
// exists to find.
func (s Summary) RateLimited() int64 {
	return s.StatusCounts[429]
}

func NewAggregator() *Aggregator {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Aggregator{
		hist:         h,
		statusCounts: make(map[int]int64),
		errorCounts:  make(map[ErrorKind]int64),
		start:        time.Now(),
	}
}

// Start marks the actual probe start time so snapshots taken by live
// reporters compute elapsed time from when attempts began firing.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.start = time.Now()
}

// Record folds a single outcome into the running aggregates.
func (a *Aggregator) Record(o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if o.Failed() {
		a.failures++
	} else {
		a.successes++
	}
	if o.Overrun {
		a.overruns++
	}
	if o.Kind != "" {
		a.errorCounts[o.Kind]++
	}
	if o.StatusCode > 0 {
		a.statusCounts[o.StatusCode]++
	}

	// Overloaded attempts never executed; they carry no latency sample.
	if o.Kind == ErrorOverloaded {
		return
	}

	latency := o.Latency
	if latency <= 0 && o.LatencyMs > 0 {
		latency = time.Duration(o.LatencyMs * float64(time.Millisecond))
	}
	if latency <= 0 {
		return
	}

	us := latency.Microseconds()
	if us < a.hist.LowestTrackableValue() {
		us = a.hist.LowestTrackableValue()
	}
	if us > a.hist.HighestTrackableValue() {
		us = a.hist.HighestTrackableValue()
	}
	_ = a.hist.RecordValue(us)

	a.sumLatency += latency
	a.latencyCount++
	if a.minLatency == 0 || latency < a.minLatency {
		a.minLatency = latency
	}
	if latency > a.maxLatency {
		a.maxLatency = latency
	}
}

// Snapshot computes the aggregated statistics over the given elapsed wall
// time. It may be called while recording continues; the result is a
// consistent point-in-time view.
func (a *Aggregator) Snapshot(elapsed time.Duration) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := a.successes + a.failures
	summary := Summary{
		StartedAt:  a.start,
		Total:      total,
		Successes:  a.successes,
		Failures:   a.failures,
		Overruns:   a.overruns,
		MinLatency: a.minLatency,
		MaxLatency: a.maxLatency,
	}

	if a.latencyCount > 0 {
		summary.MeanLatency = time.Duration(int64(a.sumLatency) / a.latencyCount)
	}
	if a.hist.TotalCount() > 0 {
		summary.P50Latency = time.Duration(a.hist.ValueAtQuantile(50)) * time.Microsecond
		summary.P90Latency = time.Duration(a.hist.ValueAtQuantile(90)) * time.Microsecond
		summary.P99Latency = time.Duration(a.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	summary.MinLatencyMs = float64(summary.MinLatency) / float64(time.Millisecond)
	summary.MaxLatencyMs = float64(summary.MaxLatency) / float64(time.Millisecond)
	summary.MeanLatencyMs = float64(summary.MeanLatency) / float64(time.Millisecond)
	summary.P50LatencyMs = float64(summary.P50Latency) / float64(time.Millisecond)
	summary.P90LatencyMs = float64(summary.P90Latency) / float64(time.Millisecond)
	summary.P99LatencyMs = float64(summary.P99Latency) / float64(time.Millisecond)

	summary.Duration = elapsed
	summary.DurationMs = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 && total > 0 {
		summary.AchievedRPS = float64(total) / elapsed.Seconds()
	}

	if len(a.statusCounts) > 0 {
		summary.StatusCounts = make(map[int]int64, len(a.statusCounts))
		for code, count := range a.statusCounts {
			summary.StatusCounts[code] = count
		}
	}
	if len(a.errorCounts) > 0 {
		summary.ErrorCounts = make(map[ErrorKind]int64, len(a.errorCounts))
		for kind, count := range a.errorCounts {
			summary.ErrorCounts[kind] = count
		}
	}

	return summary
}
