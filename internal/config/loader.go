package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Loader handles loading configuration from preset files and command-line
// arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional preset file to produce a
// Config. Precedence is defaults, then preset values, then explicit flags.
// Invoking with no arguments opens the interactive form.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	presetPath := flagSet.Lookup("preset").Value.String()

	cfg := &Config{
		Method:   "GET",
		Rate:     1,
		Duration: 10 * time.Second,
		Timeout:  10 * time.Second,
		Ceiling:  64,
		Overruns: OverrunPolicyFlag,
		Tracing: TracingConfig{
			Protocol:    "grpc",
			SampleRatio: 1.0,
			ServiceName: "hermes",
		},
		Dummy: DummyServerConfig{
			Addr: ":8080",
			Rate: 5,
		},
		PresetFile: presetPath,
	}

	if presetPath != "" {
		settings, err := ReadPreset(presetPath)
		if err != nil {
			return nil, err
		}
		if err := applyPresetSettings(cfg, settings); err != nil {
			return nil, fmt.Errorf("preset %s: %w", presetPath, err)
		}
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	// A bare invocation means the operator wants the form, not a usage dump.
	if len(args) == 0 {
		cfg.Interactive = true
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.BodyFile = strings.TrimSpace(cfg.BodyFile)

	if cfg.HeadersFile != "" {
		data, err := os.ReadFile(cfg.HeadersFile)
		if err != nil {
			return nil, fmt.Errorf("headers file: %w", err)
		}
		fileHeaders, err := ParseHeaderLines(strings.Split(string(data), "\n"))
		if err != nil {
			return nil, fmt.Errorf("headers file %s: %w", cfg.HeadersFile, err)
		}
		// File headers are the base; repeatable --header flags already applied
		// on top win on name collisions.
		merged := append([]Header(nil), fileHeaders...)
		base := &Config{Headers: merged}
		for _, h := range cfg.Headers {
			base.SetHeader(h.Name, h.Value)
		}
		cfg.Headers = base.Headers
	}

	return cfg, nil
}

// applyPresetSettings applies settings from a preset file to the Config.
// Field names follow the preset schema: url, method, rps, duration_s,
// timeout_s, headers, body.
func applyPresetSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "url", "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("url: %w", err)
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "method"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("method: %w", err)
		}
		if val != "" {
			cfg.Method = val
		}
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		headers, err := asHeaders(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		cfg.Headers = headers
	}

	if raw, ok := lookupSetting(settings, "body"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("body: %w", err)
		}
		cfg.Body = val
	}

	if raw, ok := lookupSetting(settings, "bodyfile", "body_file", "body-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("bodyFile: %w", err)
		}
		cfg.BodyFile = val
	}

	if raw, ok := lookupSetting(settings, "rps", "rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("rps: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "duration_s", "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "timeout_s", "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "ceiling"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("ceiling: %w", err)
		}
		cfg.Ceiling = val
	}

	if raw, ok := lookupSetting(settings, "queuedepth", "queue_depth", "queue-depth"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("queueDepth: %w", err)
		}
		cfg.QueueDepth = val
	}

	if raw, ok := lookupSetting(settings, "overruns"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("overruns: %w", err)
		}
		cfg.Overruns = OverrunPolicy(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = vals
	}

	if raw, ok := lookupSetting(settings, "checks"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("checks: %w", err)
		}
		cfg.Checks = vals
	}

	return nil
}

// asStringSlice converts an interface value to a []string.
func asStringSlice(value interface{}) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case []string:
		return v, nil
	case []interface{}:
		result := make([]string, len(v))
		for i, item := range v {
			str, err := asString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			result[i] = str
		}
		return result, nil
	case string:
		return []string{v}, nil
	default:
		return nil, fmt.Errorf("unsupported string slice type %T", value)
	}
}
