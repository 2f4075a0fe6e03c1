package probe

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	defaultCeiling = 64
	defaultTimeout = 10 * time.Second
)

// Exchanger performs a single request/response exchange against the target.
// Implementations must honor ctx cancellation and deadlines, return the
// response status code when a response was received, and return an error for
// transport-level failures.
type Exchanger interface {
	Exchange(ctx context.Context) (status int, err error)
}

// Options configure one run. Immutable once the run starts.
type Options struct {
	Rate       float64       // target requests per second (> 0)
	Duration   time.Duration // total run window (> 0)
	Timeout    time.Duration // per-attempt deadline (> 0)
	Ceiling    int           // max concurrent in-flight attempts (0 = default)
	QueueDepth int           // pending attempts beyond the ceiling (0 = ceiling)
	// SkipOverruns drops ticks the scheduler could not emit on time instead
	// of firing them late with an overrun flag.
	SkipOverruns bool
	Exchanger    Exchanger
	// Preflight runs once at start; an error fails the run before any
	// attempt is made.
	Preflight func(ctx context.Context) error
}

// OptionsError reports configuration faults detected before any attempt.
type OptionsError struct {
	issues []string
}

func (e *OptionsError) Error() string {
	if len(e.issues) == 0 {
		return "invalid options"
	}
	return fmt.Sprintf("invalid options: %s", strings.Join(e.issues, "; "))
}

// Issues returns the individual validation failures.
func (e *OptionsError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (o *Options) normalize() {
	if o.Ceiling <= 0 {
		o.Ceiling = defaultCeiling
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = o.Ceiling
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
}

func (o Options) validate() error {
	var issues []string
	if o.Rate <= 0 {
		issues = append(issues, "rate must be > 0")
	}
	if o.Duration <= 0 {
		issues = append(issues, "duration must be > 0")
	}
	if o.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if o.Ceiling < 0 {
		issues = append(issues, "ceiling must be >= 0")
	}
	if o.QueueDepth < 0 {
		issues = append(issues, "queue depth must be >= 0")
	}
	if o.Exchanger == nil {
		issues = append(issues, "exchanger is required")
	}
	if len(issues) > 0 {
		return &OptionsError{issues: issues}
	}
	return nil
}

func (o Options) interval() time.Duration {
	return time.Duration(float64(time.Second) / o.Rate)
}
