package probe

import (
	"context"
	"testing"
	"time"
)

func collectTicks(t *testing.T, ctx context.Context, opt Options) []attempt {
	t.Helper()
	out := make(chan attempt)
	go runTicker(ctx, opt, out)
	var got []attempt
	for a := range out {
		got = append(got, a)
	}
	return got
}

// TestTickerCountMatchesRateTimesDuration checks totalAttempts ~= R*D within
// one tick's tolerance.
func TestTickerCountMatchesRateTimesDuration(t *testing.T) {
	opt := Options{Rate: 100, Duration: 300 * time.Millisecond}
	ticks := collectTicks(t, context.Background(), opt)

	expected := 30
	if len(ticks) < expected-2 || len(ticks) > expected+1 {
		t.Fatalf("expected ~%d ticks, got %d", expected, len(ticks))
	}
}

func TestTickerSequenceIsMonotonic(t *testing.T) {
	opt := Options{Rate: 200, Duration: 100 * time.Millisecond}
	ticks := collectTicks(t, context.Background(), opt)
	if len(ticks) == 0 {
		t.Fatal("expected ticks")
	}
	for i, a := range ticks {
		if a.seq != int64(i+1) {
			t.Fatalf("sequence gap at %d: seq=%d", i, a.seq)
		}
	}
}

func TestTickerUsesAbsoluteSchedule(t *testing.T) {
	opt := Options{Rate: 100, Duration: 200 * time.Millisecond}
	ticks := collectTicks(t, context.Background(), opt)
	if len(ticks) < 10 {
		t.Fatalf("expected at least 10 ticks, got %d", len(ticks))
	}
	// Scheduled instants are spaced exactly one interval apart as long as no
	// overrun rebased the schedule.
	interval := opt.interval()
	for i := 1; i < len(ticks); i++ {
		if ticks[i].overrun {
			break
		}
		gap := ticks[i].scheduledAt.Sub(ticks[i-1].scheduledAt)
		if gap != interval {
			t.Fatalf("scheduled gap %s at tick %d, want %s", gap, i, interval)
		}
	}
}

func TestTickerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opt := Options{Rate: 10, Duration: 10 * time.Second}
	out := make(chan attempt)
	go runTicker(ctx, opt, out)

	<-out // first tick fires at T0
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("ticker did not stop after cancellation")
		}
	}
}

// TestTickerDoesNotBurstAfterStall: a consumer that stalls longer than one
// interval must not receive a catch-up burst afterwards.
func TestTickerDoesNotBurstAfterStall(t *testing.T) {
	opt := Options{Rate: 100, Duration: 400 * time.Millisecond}
	out := make(chan attempt)
	go runTicker(context.Background(), opt, out)

	var got []attempt
	first := <-out
	got = append(got, first)
	time.Sleep(120 * time.Millisecond) // stall ~12 intervals
	for a := range out {
		got = append(got, a)
	}

	// Missed ticks are never duplicated: with a 120ms stall inside a 400ms
	// window at 10ms intervals, a bursting scheduler would still emit ~40
	// ticks; a rebasing one emits roughly (400-120)/10.
	if len(got) > 35 {
		t.Fatalf("ticker bursted after stall: %d ticks", len(got))
	}

	sawOverrun := false
	for _, a := range got {
		if a.overrun {
			sawOverrun = true
			break
		}
	}
	if !sawOverrun {
		t.Fatal("expected the post-stall tick to be flagged as an overrun")
	}
}

func TestTickerSkipOverrunsPolicy(t *testing.T) {
	opt := Options{Rate: 100, Duration: 400 * time.Millisecond, SkipOverruns: true}
	out := make(chan attempt)
	go runTicker(context.Background(), opt, out)

	var got []attempt
	first := <-out
	got = append(got, first)
	time.Sleep(120 * time.Millisecond)
	for a := range out {
		got = append(got, a)
	}

	for _, a := range got {
		if a.overrun {
			t.Fatal("skip policy must not emit overrun ticks")
		}
	}
	for i, a := range got {
		if a.seq != int64(i+1) {
			t.Fatalf("skipped ticks must not consume sequence numbers: %d at %d", a.seq, i)
		}
	}
}
