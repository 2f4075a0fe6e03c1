package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/hermeslabs/hermes/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "latency", "failed", "requests", "rate_limited"
	Aggregate string  // e.g., "p95", "p99", "avg", "max", "rate", "count"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a run summary.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided summary.
func (e *Evaluator) Evaluate(summary metrics.Summary) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, e.evaluateOne(t, summary))
	}
	return results
}

func (e *Evaluator) evaluateOne(t Threshold, summary metrics.Summary) Result {
	actual, err := extractMetricValue(t, summary)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "latency:p95 < 500"        (latency percentile in ms)
//   - "p99 < 500"                (bare aggregate implies latency)
//   - "failed:rate < 0.01"       (failure rate as decimal)
//   - "failed:count < 10"        (failure count)
//   - "requests:rate > 100"      (achieved requests per second)
//   - "rate_limited:count == 0"  (429 responses)
//   - "overruns:count < 5"       (flagged scheduler overruns)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	pattern := regexp.MustCompile(`^(?:([a-z_]+):)?([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'latency:p95 < 500')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	// A bare aggregate like "p99 < 500" is a latency assertion.
	if metric == "" {
		if !isLatencyAggregate(aggregate) {
			return Threshold{}, fmt.Errorf("threshold %q needs a metric prefix (latency, failed, requests, rate_limited, overruns)", s)
		}
		metric = "latency"
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: latency, failed, requests, rate_limited, overruns)", metric)
	}
	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: p50, p90, p95, p99, avg, min, max, rate, count)", aggregate)
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

func isValidMetric(metric string) bool {
	switch metric {
	case "latency", "failed", "requests", "rate_limited", "overruns":
		return true
	}
	return false
}

func isLatencyAggregate(aggregate string) bool {
	switch aggregate {
	case "p50", "p90", "p95", "p99", "avg", "mean", "min", "max":
		return true
	}
	return false
}

func isValidAggregate(aggregate string) bool {
	switch aggregate {
	case "p50", "p90", "p95", "p99", "avg", "mean", "min", "max", "rate", "count":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, summary metrics.Summary) (float64, error) {
	switch t.Metric {
	case "latency":
		return extractLatencyMetric(t.Aggregate, summary)
	case "failed":
		return extractCountRateMetric(t.Aggregate, summary.Failures, summary)
	case "requests":
		return extractRequestMetric(t.Aggregate, summary)
	case "rate_limited":
		return extractCountRateMetric(t.Aggregate, summary.RateLimited(), summary)
	case "overruns":
		if t.Aggregate != "count" {
			return 0, fmt.Errorf("unsupported aggregate %q for overruns (use 'count')", t.Aggregate)
		}
		return float64(summary.Overruns), nil
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractLatencyMetric(aggregate string, summary metrics.Summary) (float64, error) {
	switch aggregate {
	case "p50":
		return summary.P50LatencyMs, nil
	case "p90":
		return summary.P90LatencyMs, nil
	case "p95":
		// Approximate p95 from p90 and p99
		return (summary.P90LatencyMs + summary.P99LatencyMs) / 2, nil
	case "p99":
		return summary.P99LatencyMs, nil
	case "avg", "mean":
		return summary.MeanLatencyMs, nil
	case "min":
		return summary.MinLatencyMs, nil
	case "max":
		return summary.MaxLatencyMs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for latency", aggregate)
	}
}

func extractCountRateMetric(aggregate string, count int64, summary metrics.Summary) (float64, error) {
	switch aggregate {
	case "count":
		return float64(count), nil
	case "rate":
		if summary.Total == 0 {
			return 0, nil
		}
		return float64(count) / float64(summary.Total), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q (use 'count' or 'rate')", aggregate)
	}
}

func extractRequestMetric(aggregate string, summary metrics.Summary) (float64, error) {
	switch aggregate {
	case "count":
		return float64(summary.Total), nil
	case "rate":
		return summary.AchievedRPS, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for requests (use 'count' or 'rate')", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
