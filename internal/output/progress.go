package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/hermeslabs/hermes/internal/metrics"
)

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	snapshot func() metrics.Summary
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
}

// NewProgressReporter creates a progress reporter that polls the snapshot
// function at the given interval.
func NewProgressReporter(snapshot func() metrics.Summary, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		snapshot: snapshot,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			s := p.snapshot()
			line := fmt.Sprintf("\rAttempts: %d | Successes: %d | Failures: %d | 429s: %d | RPS: %.1f",
				s.Total, s.Successes, s.Failures, s.RateLimited(), s.AchievedRPS)
			if s.Overruns > 0 {
				line += fmt.Sprintf(" | Overruns: %d", s.Overruns)
			}
			fmt.Fprint(p.writer, line)
		case <-p.done:
			return
		}
	}
}
