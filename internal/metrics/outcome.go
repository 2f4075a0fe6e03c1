package metrics

import "time"

// ErrorKind classifies why a request attempt failed.
type ErrorKind string

const (
	// ErrorTimeout marks attempts that exceeded the per-attempt deadline,
	// including attempts abandoned during shutdown drain.
	ErrorTimeout ErrorKind = "timeout"
	// ErrorConnection marks transport-level failures: DNS, connect refused,
	// TLS handshake.
	ErrorConnection ErrorKind = "connection"
	// ErrorOverloaded marks attempts dropped by admission backpressure before
	// any bytes were sent.
	ErrorOverloaded ErrorKind = "overloaded"
	// ErrorProtocol marks malformed or unreadable responses.
	ErrorProtocol ErrorKind = "protocol"
	// ErrorConfig marks configuration faults detected before any attempt.
	ErrorConfig ErrorKind = "config"
)

// Outcome is the terminal result of one request attempt. Exactly one Outcome
// is produced per attempt, success or failure.
type Outcome struct {
	Seq         int64         `json:"seq"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	StatusCode  int           `json:"status_code,omitempty"`
	Latency     time.Duration `json:"-"`
	LatencyMs   float64       `json:"latency_ms"`
	Kind        ErrorKind     `json:"error,omitempty"`
	ErrDetail   string        `json:"error_detail,omitempty"`
	Overrun     bool          `json:"tick_overrun,omitempty"`
}

// Failed reports whether the outcome counts as a failure: either the attempt
// errored, or the target answered with a 4xx/5xx status.
func (o Outcome) Failed() bool {
	return o.Kind != "" || o.StatusCode >= 400
}
