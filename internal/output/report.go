package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gofrs/flock"

	"github.com/hermeslabs/hermes/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, summary metrics.Summary) {
	fmt.Fprintln(w, "\n--- Probe Results ---")
	if summary.RunID != "" {
		fmt.Fprintf(w, "Run:               %s (%s)\n", summary.RunID, summary.State)
	}
	fmt.Fprintf(w, "Total Attempts:    %d\n", summary.Total)
	fmt.Fprintf(w, "Successful:        %d\n", summary.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", summary.Failures)
	fmt.Fprintf(w, "Rate Limited:      %d\n", summary.RateLimited())
	if summary.Overruns > 0 {
		fmt.Fprintf(w, "Tick Overruns:     %d\n", summary.Overruns)
	}
	fmt.Fprintf(w, "Duration:          %s\n", summary.Duration)
	fmt.Fprintf(w, "Achieved RPS:      %.2f\n", summary.AchievedRPS)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", summary.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", summary.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", summary.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", summary.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", summary.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", summary.P99Latency)

	fmt.Fprintln(w, "\nStatus Codes:")
	statusRows := metrics.SortedStatusRows(summary.StatusCounts)
	if len(statusRows) == 0 {
		fmt.Fprintln(w, "  None")
	}
	for _, row := range statusRows {
		fmt.Fprintf(w, "  %d: %d\n", row.Code, row.Count)
	}

	if errorRows := metrics.SortedErrorRows(summary.ErrorCounts); len(errorRows) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, row := range errorRows {
			fmt.Fprintf(w, "  %s: %d\n", metrics.Label(row.Kind), row.Count)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, summary metrics.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// Envelope pairs a run's effective configuration with its summary. Files in
// this shape replay directly as presets.
type Envelope struct {
	Config  interface{}     `json:"config"`
	Summary metrics.Summary `json:"summary"`
}

// WriteSummaryFile writes the envelope as indented JSON under an exclusive
// file lock, so runs sharing an output path do not interleave.
func WriteSummaryFile(path string, envelope Envelope) error {
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("summary lock: %w", err)
	}
	defer lock.Unlock()

	return os.WriteFile(path, data, 0o644)
}
