// Package check evaluates assertions against a run's summary JSON. Each
// check names a summary field by its JSON path, so anything the summary
// serializes can be asserted on, nested fields included.
package check

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hermeslabs/hermes/internal/metrics"
)

// Check is one assertion over a summary JSON path.
type Check struct {
	Path     string // gjson path, e.g. "status_counts.429"
	Operator string // =, ==, !=, <, <=, >, >=
	Value    string // literal to compare against
	Raw      string // original check string for display
}

// Result is the outcome of evaluating one check.
type Result struct {
	Check   Check
	Actual  string
	Pass    bool
	Message string
}

var checkPattern = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*(==|=|!=|<=|>=|<|>)\s*(.+)$`)

// Parse parses one check expression of the form "path op value",
// e.g. "status_counts.429 = 0" or "state = completed".
func Parse(s string) (Check, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Check{}, fmt.Errorf("empty check string")
	}
	matches := checkPattern.FindStringSubmatch(s)
	if matches == nil {
		return Check{}, fmt.Errorf("invalid check format: %q (expected 'path op value', e.g. 'status_counts.429 = 0')", s)
	}
	return Check{
		Path:     matches[1],
		Operator: matches[2],
		Value:    strings.TrimSpace(matches[3]),
		Raw:      s,
	}, nil
}

// ParseMultiple parses a list of check expressions.
func ParseMultiple(checks []string) ([]Check, error) {
	if len(checks) == 0 {
		return nil, nil
	}
	result := make([]Check, 0, len(checks))
	var errors []string
	for i, s := range checks {
		c, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("check[%d]: %v", i, err))
			continue
		}
		result = append(result, c)
	}
	if len(errors) > 0 {
		return nil, fmt.Errorf("check parsing errors: %s", strings.Join(errors, "; "))
	}
	return result, nil
}

// Evaluate runs all checks against the summary.
func Evaluate(checks []Check, summary metrics.Summary) ([]Result, error) {
	if len(checks) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	doc := string(data)

	results := make([]Result, 0, len(checks))
	for _, c := range checks {
		results = append(results, evaluateOne(c, doc))
	}
	return results, nil
}

func evaluateOne(c Check, doc string) Result {
	value := gjson.Get(doc, c.Path)

	// A missing counter is an implicit zero: "status_counts.429 = 0" must
	// pass on a run that never saw a 429.
	actual := value.String()
	if !value.Exists() {
		actual = "0"
	}

	pass := compare(actual, c.Operator, c.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Check:   c,
		Actual:  actual,
		Pass:    pass,
		Message: fmt.Sprintf("%s %s (actual: %s)", status, c.Raw, actual),
	}
}

func compare(actual, operator, expected string) bool {
	af, aerr := strconv.ParseFloat(actual, 64)
	ef, eerr := strconv.ParseFloat(expected, 64)
	numeric := aerr == nil && eerr == nil

	switch operator {
	case "=", "==":
		if numeric {
			return math.Abs(af-ef) < 1e-9
		}
		return actual == expected
	case "!=":
		if numeric {
			return math.Abs(af-ef) >= 1e-9
		}
		return actual != expected
	}

	if !numeric {
		return false
	}
	switch operator {
	case "<":
		return af < ef
	case "<=":
		return af <= ef
	case ">":
		return af > ef
	case ">=":
		return af >= ef
	default:
		return false
	}
}
