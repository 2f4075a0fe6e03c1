package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hermeslabs/hermes/internal/check"
	"github.com/hermeslabs/hermes/internal/config"
	"github.com/hermeslabs/hermes/internal/dashboard"
	"github.com/hermeslabs/hermes/internal/httpclient"
	"github.com/hermeslabs/hermes/internal/metrics"
	"github.com/hermeslabs/hermes/internal/output"
	"github.com/hermeslabs/hermes/internal/probe"
	"github.com/hermeslabs/hermes/internal/testserver"
	"github.com/hermeslabs/hermes/internal/threshold"
	"github.com/hermeslabs/hermes/internal/tracing"
	"github.com/hermeslabs/hermes/internal/tui"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Dummy.Serve {
		return serveDummy(ctx, cfg.Dummy)
	}

	// Gate expressions are parsed before any traffic goes out so a typo
	// fails the invocation, not the report.
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}
	checks, err := check.ParseMultiple(cfg.Checks)
	if err != nil {
		return err
	}

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	if cfg.SavePreset != "" {
		if err := config.WritePreset(cfg.SavePreset, *cfg); err != nil {
			return err
		}
	}

	if cfg.Interactive {
		return runInteractive(ctx, *cfg, provider)
	}

	summary, runLog, err := runProbe(ctx, *cfg, provider)
	if err != nil {
		return err
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, summary); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, summary)
	}

	if err := persistArtifacts(*cfg, summary, runLog); err != nil {
		return err
	}

	gateOut := io.Writer(os.Stdout)
	if cfg.JSONOutput {
		gateOut = os.Stderr
	}
	return evaluateGates(thresholds, checks, summary, gateOut)
}

// startProbe assembles the exchange pipeline for cfg and launches the run.
func startProbe(ctx context.Context, cfg config.Config, provider *tracing.Provider) (*probe.Run, error) {
	builder, err := httpclient.NewRequestBuilder(&cfg)
	if err != nil {
		return nil, err
	}

	var exchanger probe.Exchanger = httpclient.NewExchanger(httpclient.NewClient(), builder)
	exchanger = provider.WrapExchanger(exchanger, builder.Method(), builder.Target())

	return probe.Start(ctx, probe.Options{
		Rate:         cfg.Rate,
		Duration:     cfg.Duration,
		Timeout:      cfg.Timeout,
		Ceiling:      cfg.Ceiling,
		QueueDepth:   cfg.QueueDepth,
		SkipOverruns: cfg.Overruns == config.OverrunPolicySkip,
		Exchanger:    exchanger,
		Preflight:    resolvePreflight(cfg.TargetURL),
	})
}

// resolvePreflight verifies the target host resolves before the first tick.
func resolvePreflight(target string) func(context.Context) error {
	return func(ctx context.Context) error {
		u, err := url.Parse(target)
		if err != nil {
			return err
		}
		host := u.Hostname()
		if host == "" {
			return fmt.Errorf("target %q has no host", target)
		}
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return fmt.Errorf("resolve %s: %w", host, err)
		}
		return nil
	}
}

func runProbe(ctx context.Context, cfg config.Config, provider *tracing.Provider) (metrics.Summary, *output.RunLog, error) {
	run, err := startProbe(ctx, cfg, provider)
	if err != nil {
		return metrics.Summary{}, nil, err
	}

	var runLog *output.RunLog
	var logDone chan struct{}
	if cfg.PrintLog || cfg.LogFile != "" {
		var echo io.Writer
		if cfg.PrintLog && !cfg.Dashboard && !cfg.JSONOutput {
			echo = os.Stdout
		}
		runLog = output.NewRunLog(echo)
		logDone = make(chan struct{})
		outcomes := run.Outcomes()
		go func() {
			defer close(logDone)
			for o := range outcomes {
				runLog.Record(o)
			}
		}()
	}

	if cfg.Dashboard {
		dash, err := dashboard.New(run.Snapshot, run.Inflight, dashboard.ProbeConfig{
			TargetURL:  cfg.TargetURL,
			Method:     cfg.Method,
			Rate:       cfg.Rate,
			Duration:   cfg.Duration,
			Timeout:    cfg.Timeout,
			Ceiling:    cfg.Ceiling,
			PresetFile: cfg.PresetFile,
		}, run.Cancel)
		if err != nil {
			run.Cancel()
			run.Wait()
			return metrics.Summary{}, nil, err
		}
		dash.Start()
		defer dash.Stop()
	}

	var progress *output.ProgressReporter
	if !cfg.Dashboard && !cfg.JSONOutput && !cfg.PrintLog {
		progress = output.NewProgressReporter(run.Snapshot, progressInterval, os.Stdout)
		progress.Start()
	}

	summary := run.Wait()

	if progress != nil {
		progress.Stop()
		fmt.Fprintln(os.Stdout)
	}
	if logDone != nil {
		<-logDone
	}

	if summary.State == string(probe.StateFailed) {
		return summary, runLog, run.Err()
	}
	return summary, runLog, nil
}

func runInteractive(ctx context.Context, cfg config.Config, provider *tracing.Provider) error {
	summary, hasRun, err := tui.Run(cfg, func(c config.Config) (tui.ProbeHandle, error) {
		return startProbe(ctx, c, provider)
	})
	if err != nil {
		return err
	}
	if !hasRun {
		return nil
	}

	output.PrintReport(os.Stdout, summary)
	return persistArtifacts(cfg, summary, nil)
}

// persistArtifacts writes the summary envelope and run log where configured.
func persistArtifacts(cfg config.Config, summary metrics.Summary, runLog *output.RunLog) error {
	if cfg.SummaryJSON != "" {
		envelope := output.Envelope{Config: config.PresetValue(cfg), Summary: summary}
		if err := output.WriteSummaryFile(cfg.SummaryJSON, envelope); err != nil {
			return err
		}
	}
	if cfg.LogFile != "" && runLog != nil {
		if err := runLog.WriteFile(cfg.LogFile); err != nil {
			return err
		}
	}
	return nil
}

func evaluateGates(thresholds []threshold.Threshold, checks []check.Check, summary metrics.Summary, w io.Writer) error {
	failures := 0

	if len(thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, r := range threshold.NewEvaluator(thresholds).Evaluate(summary) {
			fmt.Fprintf(w, "  %s\n", r.Message)
			if !r.Pass {
				failures++
			}
		}
	}

	if len(checks) > 0 {
		results, err := check.Evaluate(checks, summary)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "\nChecks:")
		for _, r := range results {
			fmt.Fprintf(w, "  %s\n", r.Message)
			if !r.Pass {
				failures++
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d gate(s) failed", failures)
	}
	return nil
}

func serveDummy(ctx context.Context, cfg config.DummyServerConfig) error {
	srv, err := testserver.New(testserver.Options{
		Addr:    cfg.Addr,
		Rate:    cfg.Rate,
		Burst:   cfg.Burst,
		Latency: cfg.Latency,
	})
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Dummy target listening on %s (rate %g/s)\n", srv.URL(), cfg.Rate)
	fmt.Fprintln(os.Stdout, "Press Ctrl+C to stop")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	fmt.Fprintf(os.Stdout, "\nAdmitted: %d | Rejected (429): %d\n", srv.Admitted(), srv.Rejected())
	return err
}
