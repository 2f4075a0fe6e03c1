package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hermes",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Core request flags
	flags.StringP("url", "u", "", "Target URL to probe")
	flags.StringP("method", "m", "GET", "HTTP method to use")
	flags.StringSliceP("header", "H", nil, "Request header in 'Name: Value' form (repeatable)")
	flags.String("headers-file", "", "Path to file with one 'Name: Value' header per line")
	flags.String("body", "", "Inline request body payload")
	flags.String("body-file", "", "Path to file containing the request body")

	// Schedule flags
	flags.Float64P("rps", "r", 1, "Target requests per second")
	flags.DurationP("duration", "d", 10*time.Second, "How long to keep the schedule firing (e.g. 30s, 1m)")
	flags.Duration("timeout", 10*time.Second, "Per-attempt deadline")
	flags.Int("ceiling", 64, "Max concurrent in-flight attempts")
	flags.Int("queue-depth", 0, "Pending attempts beyond the ceiling (0 = ceiling)")
	flags.String("overruns", string(OverrunPolicyFlag), "Late-tick policy: 'flag' fires late and marks the attempt, 'skip' drops it")

	// Preset flags
	flags.StringP("preset", "p", "", "Path to a preset file with a saved configuration")
	flags.String("save-preset", "", "Write the effective configuration to a preset file and exit")

	// Output flags
	flags.String("summary-json", "", "Write the final summary as JSON to the given path")
	flags.String("log-file", "", "Write the per-attempt run log to the given path")
	flags.Bool("print-log", false, "Echo each attempt's log line to stdout as it resolves")
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.BoolP("interactive", "i", false, "Open the interactive form instead of running immediately")

	// Assertion flags
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g., 'p99 < 500')")
	flags.StringSlice("check", nil, "Summary assertions (repeatable, e.g., 'status_counts.429 = 0')")

	// Tracing flags
	flags.String("trace-endpoint", "", "OTLP trace exporter endpoint (empty disables tracing)")
	flags.String("trace-protocol", "grpc", "OTLP transport: 'grpc' or 'http'")
	flags.Bool("trace-insecure", false, "Disable TLS for the trace exporter")
	flags.Float64("trace-sample-ratio", 1.0, "Trace sampling ratio in [0, 1]")

	// Dummy target flags
	flags.Bool("serve-dummy", false, "Serve the built-in rate-limited target instead of probing")
	flags.String("dummy-addr", ":8080", "Listen address for the dummy target")
	flags.Float64("dummy-rps", 5, "Requests per second the dummy target admits before returning 429")
	flags.Int("dummy-burst", 0, "Burst allowance for the dummy target (0 = ceil(rps))")
	flags.Duration("dummy-latency", 0, "Artificial latency added to each dummy response")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the preset file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("url") {
		val, err := fs.GetString("url")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("method") {
		val, err := fs.GetString("method")
		if err != nil {
			return err
		}
		cfg.Method = val
	}
	if fs.Changed("body") {
		val, err := fs.GetString("body")
		if err != nil {
			return err
		}
		cfg.Body = val
		cfg.BodyFile = ""
	}
	if fs.Changed("body-file") {
		val, err := fs.GetString("body-file")
		if err != nil {
			return err
		}
		cfg.BodyFile = val
		cfg.Body = ""
	}
	if fs.Changed("rps") {
		val, err := fs.GetFloat64("rps")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetDuration("duration")
		if err != nil {
			return err
		}
		cfg.Duration = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("ceiling") {
		val, err := fs.GetInt("ceiling")
		if err != nil {
			return err
		}
		cfg.Ceiling = val
	}
	if fs.Changed("queue-depth") {
		val, err := fs.GetInt("queue-depth")
		if err != nil {
			return err
		}
		cfg.QueueDepth = val
	}
	if fs.Changed("overruns") {
		val, err := fs.GetString("overruns")
		if err != nil {
			return err
		}
		cfg.Overruns = OverrunPolicy(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("headers-file") {
		val, err := fs.GetString("headers-file")
		if err != nil {
			return err
		}
		cfg.HeadersFile = strings.TrimSpace(val)
	}
	if fs.Changed("summary-json") {
		val, err := fs.GetString("summary-json")
		if err != nil {
			return err
		}
		cfg.SummaryJSON = strings.TrimSpace(val)
	}
	if fs.Changed("log-file") {
		val, err := fs.GetString("log-file")
		if err != nil {
			return err
		}
		cfg.LogFile = strings.TrimSpace(val)
	}
	if fs.Changed("print-log") {
		val, err := fs.GetBool("print-log")
		if err != nil {
			return err
		}
		cfg.PrintLog = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("interactive") {
		val, err := fs.GetBool("interactive")
		if err != nil {
			return err
		}
		cfg.Interactive = val
	}
	if fs.Changed("save-preset") {
		val, err := fs.GetString("save-preset")
		if err != nil {
			return err
		}
		cfg.SavePreset = strings.TrimSpace(val)
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		headers, err := ParseHeaderLines(vals)
		if err != nil {
			return err
		}
		for _, h := range headers {
			cfg.SetHeader(h.Name, h.Value)
		}
	}

	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("check") {
		val, err := fs.GetStringSlice("check")
		if err != nil {
			return err
		}
		cfg.Checks = val
	}

	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("trace-sample-ratio") {
		val, err := fs.GetFloat64("trace-sample-ratio")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRatio = val
	}

	if fs.Changed("serve-dummy") {
		val, err := fs.GetBool("serve-dummy")
		if err != nil {
			return err
		}
		cfg.Dummy.Serve = val
	}
	if fs.Changed("dummy-addr") {
		val, err := fs.GetString("dummy-addr")
		if err != nil {
			return err
		}
		cfg.Dummy.Addr = strings.TrimSpace(val)
	}
	if fs.Changed("dummy-rps") {
		val, err := fs.GetFloat64("dummy-rps")
		if err != nil {
			return err
		}
		cfg.Dummy.Rate = val
	}
	if fs.Changed("dummy-burst") {
		val, err := fs.GetInt("dummy-burst")
		if err != nil {
			return err
		}
		cfg.Dummy.Burst = val
	}
	if fs.Changed("dummy-latency") {
		val, err := fs.GetDuration("dummy-latency")
		if err != nil {
			return err
		}
		cfg.Dummy.Latency = val
	}

	return nil
}
