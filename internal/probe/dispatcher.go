package probe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hermeslabs/hermes/internal/metrics"
)

// dispatcher turns ticks into request attempts without blocking the ticking
// cadence. Concurrency is bounded by a fixed pool of workers (the admission
// ceiling); ticks that arrive while every worker is busy wait in a bounded
// FIFO queue. When the queue bound is reached the oldest queued attempt is
// shed with an overloaded outcome so the prober's own resource usage stays
// bounded no matter how slow the target is.
type dispatcher struct {
	opt      Options
	execCtx  context.Context
	outcomes chan<- metrics.Outcome
	queue    chan attempt
	inflight int64
}

func newDispatcher(execCtx context.Context, opt Options, outcomes chan<- metrics.Outcome) *dispatcher {
	return &dispatcher{
		opt:      opt,
		execCtx:  execCtx,
		outcomes: outcomes,
		queue:    make(chan attempt, opt.QueueDepth),
	}
}

// run consumes ticks until the channel closes or ctx is cancelled, then waits
// for all admitted attempts to resolve. It closes the outcome channel when
// every attempt has produced its outcome.
func (d *dispatcher) run(ctx context.Context, ticks <-chan attempt) {
	var wg sync.WaitGroup
	wg.Add(d.opt.Ceiling)
	for i := 0; i < d.opt.Ceiling; i++ {
		go func() {
			defer wg.Done()
			for a := range d.queue {
				if ctx.Err() != nil || d.execCtx.Err() != nil {
					d.abandon(a)
					continue
				}
				d.execute(a)
			}
		}()
	}

	d.admit(ctx, ticks)
	close(d.queue)
	wg.Wait()
	close(d.outcomes)
}

// admit is the single producer for the queue. The ticker owns the cadence;
// admission must never block it for longer than one eviction.
func (d *dispatcher) admit(ctx context.Context, ticks <-chan attempt) {
	for {
		select {
		case <-ctx.Done():
			// Stop admitting; drain remaining ticks so the ticker can exit.
			for range ticks {
			}
			return
		case a, ok := <-ticks:
			if !ok {
				return
			}
			select {
			case d.queue <- a:
			default:
				// Queue full: shed the oldest queued attempt, then admit the
				// new one into the freed slot.
				select {
				case old := <-d.queue:
					d.shed(old)
				default:
				}
				select {
				case d.queue <- a:
				case <-ctx.Done():
					d.shed(a)
				}
			}
		}
	}
}

// execute performs one exchange under the per-attempt deadline and delivers
// exactly one outcome.
func (d *dispatcher) execute(a attempt) {
	atomic.AddInt64(&d.inflight, 1)
	defer atomic.AddInt64(&d.inflight, -1)

	started := time.Now()
	ctx, cancel := context.WithTimeout(d.execCtx, d.opt.Timeout)
	status, err := d.opt.Exchanger.Exchange(ctx)
	cancel()
	completed := time.Now()

	o := metrics.Outcome{
		Seq:         a.seq,
		ScheduledAt: a.scheduledAt,
		StartedAt:   started,
		CompletedAt: completed,
		Latency:     completed.Sub(started),
		LatencyMs:   float64(completed.Sub(started)) / float64(time.Millisecond),
		Overrun:     a.overrun,
	}
	if err != nil {
		o.Kind = metrics.Classify(err)
		o.ErrDetail = err.Error()
	} else {
		o.StatusCode = status
	}
	d.outcomes <- o
}

// shed finalizes a queued attempt that never executed.
func (d *dispatcher) shed(a attempt) {
	now := time.Now()
	d.outcomes <- metrics.Outcome{
		Seq:         a.seq,
		ScheduledAt: a.scheduledAt,
		StartedAt:   now,
		CompletedAt: now,
		Kind:        metrics.ErrorOverloaded,
		ErrDetail:   "attempt shed by admission backpressure",
		Overrun:     a.overrun,
	}
}

// abandon finalizes a queued attempt that the drain deadline reached before a
// worker did.
func (d *dispatcher) abandon(a attempt) {
	now := time.Now()
	d.outcomes <- metrics.Outcome{
		Seq:         a.seq,
		ScheduledAt: a.scheduledAt,
		StartedAt:   now,
		CompletedAt: now,
		Kind:        metrics.ErrorTimeout,
		ErrDetail:   "abandoned before execution at drain deadline",
		Overrun:     a.overrun,
	}
}

// Inflight reports the number of attempts currently executing.
func (d *dispatcher) Inflight() int64 {
	return atomic.LoadInt64(&d.inflight)
}
