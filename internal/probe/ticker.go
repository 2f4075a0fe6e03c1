package probe

import (
	"context"
	"time"
)

// attempt identifies one logical request slot, created per tick regardless of
// whether the exchange ever executes.
type attempt struct {
	seq         int64
	scheduledAt time.Time
	overrun     bool
}

// runTicker emits one attempt per scheduled fire instant until the run window
// elapses or ctx is cancelled, then closes out.
//
// Fire instants are computed on an absolute schedule, base + n*interval,
// rather than by sleeping the interval repeatedly, so scheduling overhead
// never accumulates as drift. When emission lags by more than one interval
// the ticker does not burst to catch up: it fires immediately, rebases the
// schedule on current wall time, and flags the attempt as an overrun (or
// skips it entirely when SkipOverruns is set).
func runTicker(ctx context.Context, opt Options, out chan<- attempt) {
	defer close(out)

	interval := opt.interval()
	base := time.Now()
	deadline := base.Add(opt.Duration)
	timer := time.NewTimer(0)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}

	var seq int64
	var n int64
	for {
		target := base.Add(time.Duration(n) * interval)
		if !target.Before(deadline) {
			return
		}

		if wait := time.Until(target); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		now := time.Now()
		overrun := now.Sub(target) > interval
		if overrun {
			// Continue from current wall time; missed ticks are not
			// duplicated.
			base = now
			n = 0
			target = now
			if opt.SkipOverruns {
				n++
				continue
			}
		}

		seq++
		select {
		case out <- attempt{seq: seq, scheduledAt: target, overrun: overrun}:
		case <-ctx.Done():
			return
		}
		n++
	}
}
