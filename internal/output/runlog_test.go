package output

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hermeslabs/hermes/internal/metrics"
)

func TestFormatLineSuccess(t *testing.T) {
	o := metrics.Outcome{
		Seq:         42,
		StatusCode:  200,
		LatencyMs:   12.345,
		CompletedAt: time.Date(2025, 8, 25, 12, 0, 1, 500_000_000, time.UTC),
	}
	line := FormatLine(o)
	if !strings.Contains(line, "2025-08-25T12:00:01.500") {
		t.Errorf("missing timestamp: %q", line)
	}
	if !strings.Contains(line, "42") {
		t.Errorf("missing seq: %q", line)
	}
	if !strings.Contains(line, "200") {
		t.Errorf("missing status: %q", line)
	}
	if !strings.Contains(line, "12.35") {
		t.Errorf("missing latency: %q", line)
	}
}

func TestFormatLineError(t *testing.T) {
	o := metrics.Outcome{
		Seq:         7,
		Kind:        metrics.ErrorTimeout,
		ErrDetail:   "context deadline exceeded",
		LatencyMs:   5000,
		CompletedAt: time.Now(),
	}
	line := FormatLine(o)
	if !strings.Contains(line, "ERR") {
		t.Errorf("missing ERR status marker: %q", line)
	}
	if !strings.Contains(line, "timeout: context deadline exceeded") {
		t.Errorf("missing error text: %q", line)
	}
}

func TestFormatLineOverloadedHasNoLatency(t *testing.T) {
	o := metrics.Outcome{
		Seq:         9,
		Kind:        metrics.ErrorOverloaded,
		CompletedAt: time.Now(),
	}
	line := FormatLine(o)
	fields := strings.Fields(line)
	// TIME SEQ STAT LAT ERROR...; the latency column holds the placeholder.
	if len(fields) < 4 || fields[3] != "-" {
		t.Errorf("expected '-' latency placeholder, got %q", line)
	}
}

func TestRunLogEchoAndWrite(t *testing.T) {
	var echo bytes.Buffer
	log := NewRunLog(&echo)

	log.Record(metrics.Outcome{Seq: 1, StatusCode: 200, LatencyMs: 10, CompletedAt: time.Now()})
	log.Record(metrics.Outcome{Seq: 2, StatusCode: 429, LatencyMs: 3, CompletedAt: time.Now()})

	if log.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", log.Len())
	}

	echoed := echo.String()
	if !strings.HasPrefix(echoed, HeaderLine) {
		t.Errorf("echo missing header:\n%s", echoed)
	}
	if !strings.Contains(echoed, "429") {
		t.Errorf("echo missing line:\n%s", echoed)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "run.log")
	if err := log.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 lines, got %d:\n%s", len(lines), data)
	}
	if lines[0] != HeaderLine {
		t.Errorf("first line must be the header: %q", lines[0])
	}
}
