package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/hermeslabs/hermes/internal/metrics"
)

func TestProgressReporterBasic(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewProgressReporter(func() metrics.Summary {
		return metrics.Summary{Total: 5}
	}, 100*time.Millisecond, &buf)

	if reporter == nil {
		t.Fatal("Expected non-nil reporter")
	}

	reporter.Stop()
}

func TestProgressReporterFormatting(t *testing.T) {
	snapshot := func() metrics.Summary {
		return metrics.Summary{
			Total:        10,
			Successes:    7,
			Failures:     3,
			Overruns:     1,
			AchievedRPS:  9.5,
			StatusCounts: map[int]int64{429: 3},
		}
	}

	var buf bytes.Buffer
	reporter := NewProgressReporter(snapshot, 20*time.Millisecond, &buf)
	reporter.Start()

	time.Sleep(80 * time.Millisecond)
	reporter.Stop()

	output := buf.String()
	if !strings.Contains(output, "Attempts:") {
		t.Error("Expected 'Attempts:' in progress output")
	}
	if !strings.Contains(output, "429s: 3") {
		t.Errorf("Expected 429 count in progress output, got %q", output)
	}
	if !strings.Contains(output, "Overruns: 1") {
		t.Errorf("Expected overrun count in progress output, got %q", output)
	}
}
