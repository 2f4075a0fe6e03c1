package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Header is a single request header. Headers keep their declaration order so
// requests go out the way the operator wrote them.
type Header struct {
	Name  string `mapstructure:"name" json:"name"`
	Value string `mapstructure:"value" json:"value"`
}

// OverrunPolicy controls what the scheduler does with ticks it could not emit
// on time.
type OverrunPolicy string

const (
	OverrunPolicyFlag OverrunPolicy = "flag"
	OverrunPolicySkip OverrunPolicy = "skip"
)

type Config struct {
	TargetURL   string        `mapstructure:"url"`
	Method      string        `mapstructure:"method"`
	Headers     []Header      `mapstructure:"headers"`
	HeadersFile string        `mapstructure:"headers_file"`
	Body        string        `mapstructure:"body"`
	BodyFile    string        `mapstructure:"body_file"`
	Rate        float64       `mapstructure:"rps"`
	Duration    time.Duration `mapstructure:"duration"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Ceiling     int           `mapstructure:"ceiling"`
	QueueDepth  int           `mapstructure:"queue_depth"`
	Overruns    OverrunPolicy `mapstructure:"overruns"`

	PresetFile string `mapstructure:"-"`
	SavePreset string `mapstructure:"-"`

	SummaryJSON string `mapstructure:"summary_json"`
	LogFile     string `mapstructure:"log_file"`
	PrintLog    bool   `mapstructure:"print_log"`
	JSONOutput  bool   `mapstructure:"json_output"`
	Dashboard   bool   `mapstructure:"dashboard"`
	Interactive bool   `mapstructure:"interactive"`

	Thresholds []string `mapstructure:"thresholds"`
	Checks     []string `mapstructure:"checks"`

	Tracing TracingConfig     `mapstructure:"tracing"`
	Dummy   DummyServerConfig `mapstructure:"dummy"`
}

// TracingConfig configures the optional OTLP trace exporter. Tracing is off
// unless an endpoint is set.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	ServiceName string  `mapstructure:"service_name"`
}

// Enabled reports whether an exporter endpoint was configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// DummyServerConfig configures the built-in rate-limited target used for
// local experimentation.
type DummyServerConfig struct {
	Serve   bool          `mapstructure:"serve"`
	Addr    string        `mapstructure:"addr"`
	Rate    float64       `mapstructure:"rps"`
	Burst   int           `mapstructure:"burst"`
	Latency time.Duration `mapstructure:"latency"`
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	// The dummy server and the interactive form both run without a
	// preconfigured probe, so the target is only required for a direct run.
	if !c.Interactive && !c.Dummy.Serve {
		target := strings.TrimSpace(c.TargetURL)
		if target == "" {
			issues = append(issues, "url is required (use --help for usage information)")
		} else if u, err := url.Parse(target); err != nil {
			issues = append(issues, fmt.Sprintf("url is not parseable: %v", err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			issues = append(issues, fmt.Sprintf("url scheme must be http or https, got %q", u.Scheme))
		} else if u.Host == "" {
			issues = append(issues, "url is missing a host")
		}

		if c.Rate <= 0 {
			issues = append(issues, "rps must be > 0")
		}
		if c.Duration <= 0 {
			issues = append(issues, "duration must be > 0")
		}
	}

	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Ceiling < 0 {
		issues = append(issues, "ceiling must be >= 0")
	}
	if c.QueueDepth < 0 {
		issues = append(issues, "queue-depth must be >= 0")
	}
	switch c.Overruns {
	case "", OverrunPolicyFlag, OverrunPolicySkip:
	default:
		issues = append(issues, fmt.Sprintf("overruns must be 'flag' or 'skip', got %q", c.Overruns))
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and body-file are mutually exclusive")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}
	if c.Dashboard && c.Interactive {
		issues = append(issues, "dashboard and interactive are mutually exclusive")
	}

	for idx, h := range c.Headers {
		if strings.TrimSpace(h.Name) == "" {
			issues = append(issues, fmt.Sprintf("headers[%d]: name cannot be empty", idx))
		}
		if strings.ContainsAny(h.Name, "\r\n") || strings.ContainsAny(h.Value, "\r\n") {
			issues = append(issues, fmt.Sprintf("headers[%d]: name and value must not contain line breaks", idx))
		}
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)
	issues = append(issues, validateDummyConfig(c.Dummy)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	if !t.Enabled() {
		return nil
	}
	var issues []string
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	if t.SampleRatio < 0 || t.SampleRatio > 1 {
		issues = append(issues, "tracing: sample_ratio must be within [0, 1]")
	}
	return issues
}

func validateDummyConfig(d DummyServerConfig) []string {
	if !d.Serve {
		return nil
	}
	var issues []string
	if d.Rate <= 0 {
		issues = append(issues, "dummy: rps must be > 0")
	}
	if d.Burst < 0 {
		issues = append(issues, "dummy: burst must be >= 0")
	}
	if d.Latency < 0 {
		issues = append(issues, "dummy: latency must be >= 0")
	}
	return issues
}

// SetHeader replaces the named header if present, preserving its position,
// and appends it otherwise.
func (c *Config) SetHeader(name, value string) {
	for i := range c.Headers {
		if strings.EqualFold(c.Headers[i].Name, name) {
			c.Headers[i].Value = value
			return
		}
	}
	c.Headers = append(c.Headers, Header{Name: name, Value: value})
}
