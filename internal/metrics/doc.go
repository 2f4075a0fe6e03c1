// Package metrics aggregates per-attempt outcomes into run statistics.
//
// The package is the reduction stage of the probe pipeline: workers deliver
// one [Outcome] per request attempt, in whatever order the network completes
// them, and the [Aggregator] folds the stream into counters, a status-code
// histogram, an error-kind histogram, and a bounded-memory latency sketch.
//
// # Aggregator
//
// The central [Aggregator] type is safe for concurrent recording:
//
//	agg := metrics.NewAggregator()
//	agg.Start() // mark probe start for accurate RPS calculation
//
//	agg.Record(metrics.Outcome{
//		Seq:        1,
//		StatusCode: 200,
//		Latency:    42 * time.Millisecond,
//	})
//
//	summary := agg.Snapshot(elapsed)
//
// # Summary
//
// The [Summary] type provides the final (or in-flight) view of a run:
//   - Attempt counts (total, successes, failures)
//   - Latency percentiles (P50, P90, P99) plus min/max/mean
//   - Achieved requests per second, as distinct from the configured target
//   - Status-code and error-kind breakdowns
//
// Aggregation is order-independent: feeding the same multiset of outcomes in
// any permutation yields an identical Summary.
//
// # Latency sketch
//
// Latencies are recorded into an HdrHistogram configured for 1µs to 60s at
// three significant figures, so memory stays bounded regardless of run
// length and percentile error stays below 0.1% of the reported value.
package metrics
