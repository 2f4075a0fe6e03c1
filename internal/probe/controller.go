package probe

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hermeslabs/hermes/internal/metrics"
)

// State is a run lifecycle phase. A run moves Idle -> Running and ends in
// exactly one of Completed, Cancelled, or Failed; terminal states are never
// left. A new run requires fresh Options and a fresh Run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Run is the handle for one probe run. It owns the run's lifecycle and is the
// only way collaborators observe it.
type Run struct {
	id     string
	opt    Options
	cancel context.CancelFunc
	done   chan struct{}

	agg     *metrics.Aggregator
	started time.Time

	mu        sync.Mutex
	state     State
	err       error
	summary   metrics.Summary
	subs      []chan metrics.Outcome
	inflight  func() int64
	cancelled bool
}

// Start validates the options and launches a run. A validation failure
// returns an error without any attempt being made; the caller gets no handle
// and nothing to clean up.
func Start(ctx context.Context, opt Options) (*Run, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	opt.normalize()

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)

	r := &Run{
		id:      ulid.MustNew(ulid.Timestamp(time.Now()), rand.New(rand.NewSource(time.Now().UnixNano()))).String(),
		opt:     opt,
		cancel:  cancel,
		done:    make(chan struct{}),
		agg:     metrics.NewAggregator(),
		started: time.Now(),
		state:   StateRunning,
	}

	go r.run(runCtx)
	return r, nil
}

// ID returns the run's unique identifier.
func (r *Run) ID() string { return r.id }

// State returns the current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the start-time fault for a failed run, nil otherwise.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Cancel requests cooperative cancellation: the ticker stops emitting, no new
// attempts are admitted, and in-flight attempts race the drain window.
// Already-aggregated outcomes are never discarded.
func (r *Run) Cancel() {
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
	r.cancel()
}

// Wait blocks until the run reaches a terminal state and returns the final
// summary. Any run that produced at least one outcome yields a valid,
// possibly partial, summary.
func (r *Run) Wait() metrics.Summary {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// Done returns a channel closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} { return r.done }

// Snapshot returns a point-in-time summary while the run is in progress, or
// the final summary afterwards.
func (r *Run) Snapshot() metrics.Summary {
	r.mu.Lock()
	state := r.state
	final := r.summary
	r.mu.Unlock()
	if state.Terminal() {
		return final
	}
	s := r.agg.Snapshot(time.Since(r.started))
	s.RunID = r.id
	s.State = string(state)
	return s
}

// Inflight reports the number of attempts currently executing.
func (r *Run) Inflight() int64 {
	r.mu.Lock()
	fn := r.inflight
	r.mu.Unlock()
	if fn == nil {
		return 0
	}
	return fn()
}

// Outcomes subscribes to the live outcome stream for this run. The channel
// is closed when the run ends; slow consumers miss outcomes rather than
// stalling the pipeline. Subscriptions do not survive across runs.
func (r *Run) Outcomes() <-chan metrics.Outcome {
	ch := make(chan metrics.Outcome, 256)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		close(ch)
		return ch
	}
	r.subs = append(r.subs, ch)
	return ch
}

func (r *Run) publish(o metrics.Outcome) {
	r.mu.Lock()
	subs := r.subs
	r.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- o:
		default:
		}
	}
}

func (r *Run) closeSubs() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()
	for _, ch := range subs {
		close(ch)
	}
}

func (r *Run) run(ctx context.Context) {
	defer close(r.done)
	defer r.closeSubs()

	if r.opt.Preflight != nil {
		if err := r.opt.Preflight(ctx); err != nil {
			r.finalize(StateFailed, err)
			return
		}
	}

	// execCtx outlives the run ctx by the drain window so in-flight attempts
	// can resolve after cancellation or window end; per-attempt deadlines
	// still apply on top of it.
	execCtx, execCancel := context.WithCancel(context.Background())
	defer execCancel()

	ticks := make(chan attempt)
	outcomes := make(chan metrics.Outcome, r.opt.Ceiling+r.opt.QueueDepth)

	d := newDispatcher(execCtx, r.opt, outcomes)
	r.mu.Lock()
	r.inflight = d.Inflight
	r.mu.Unlock()

	r.agg.Start()

	tickerDone := make(chan struct{})
	go func() {
		runTicker(ctx, r.opt, ticks)
		close(tickerDone)
	}()

	dispatchDone := make(chan struct{})
	go func() {
		d.run(ctx, ticks)
		close(dispatchDone)
	}()

	// Grace period: once the window elapses (last tick emitted) or
	// cancellation fires, attempts get one timeout period to resolve before
	// the execution context is pulled and the rest are force-finalized.
	go func() {
		select {
		case <-ctx.Done():
		case <-tickerDone:
		}
		grace := time.NewTimer(r.opt.Timeout)
		defer grace.Stop()
		select {
		case <-dispatchDone:
		case <-grace.C:
		}
		execCancel()
	}()

	for o := range outcomes {
		r.agg.Record(o)
		r.publish(o)
	}

	// Release the run context on natural completion; Cancel() has already
	// done this on the cancelled path.
	r.cancel()

	r.mu.Lock()
	cancelled := r.cancelled
	r.mu.Unlock()
	if cancelled {
		r.finalize(StateCancelled, nil)
		return
	}
	r.finalize(StateCompleted, nil)
}

func (r *Run) finalize(state State, err error) {
	summary := r.agg.Snapshot(time.Since(r.started))
	summary.RunID = r.id
	summary.State = string(state)

	r.mu.Lock()
	r.state = state
	r.err = err
	r.summary = summary
	r.mu.Unlock()
}
