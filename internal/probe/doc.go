// Package probe provides the rate-controlled request scheduler and run
// lifecycle for hermes.
//
// A probe fires one HTTP attempt per scheduled tick at a fixed target rate
// for a bounded duration, without letting request latency throttle the
// schedule (open-loop load generation). The package wires three cooperating
// tasks:
//
//   - the ticker computes absolute fire instants T0 + n*interval, so
//     scheduling overhead never accumulates as drift
//   - the dispatcher admits each tick into a bounded worker pool, queueing
//     excess attempts and shedding the oldest with an overloaded outcome
//     when the queue bound is reached
//   - the aggregation loop folds outcomes into a [metrics.Summary]
//
// # Control surface
//
// Start, cancel and await are the whole contract:
//
//	run, err := probe.Start(ctx, probe.Options{
//		Rate:      10,
//		Duration:  30 * time.Second,
//		Timeout:   5 * time.Second,
//		Exchanger: exchanger,
//	})
//	if err != nil {
//		// configuration fault; nothing was attempted
//	}
//	summary := run.Wait()
//
// Cancellation is cooperative and global: Run.Cancel stops the ticker, stops
// admission, lets in-flight attempts race a drain window equal to the
// per-attempt timeout, and still produces a summary over everything
// collected so far.
//
// # Exactly-once outcomes
//
// Every attempt, success or failure, produces exactly one outcome. Attempts
// that are still unresolved when the drain window closes are finalized as
// timeouts; queued attempts shed by backpressure are finalized as
// overloaded. successes + failures always equals total attempts.
package probe
