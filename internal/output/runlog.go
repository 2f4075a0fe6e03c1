package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/hermeslabs/hermes/internal/metrics"
)

// HeaderLine labels the fixed-width columns of the run log.
var HeaderLine = fmt.Sprintf("%-23s  %6s  %5s  %8s  %s", "TIME", "SEQ", "STAT", "LAT(ms)", "ERROR")

// RunLog collects one fixed-width line per resolved attempt. An optional echo
// writer receives each line as it arrives for --print-log style streaming.
type RunLog struct {
	mu    sync.Mutex
	lines []string
	echo  io.Writer
}

func NewRunLog(echo io.Writer) *RunLog {
	log := &RunLog{echo: echo}
	if echo != nil {
		fmt.Fprintln(echo, HeaderLine)
	}
	return log
}

// Record formats and stores the log line for one outcome.
func (l *RunLog) Record(o metrics.Outcome) {
	line := FormatLine(o)
	l.mu.Lock()
	l.lines = append(l.lines, line)
	echo := l.echo
	l.mu.Unlock()
	if echo != nil {
		fmt.Fprintln(echo, line)
	}
}

// Len returns the number of recorded lines.
func (l *RunLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lines)
}

// WriteTo writes the header and all recorded lines.
func (l *RunLog) WriteTo(w io.Writer) (int64, error) {
	l.mu.Lock()
	lines := append([]string(nil), l.lines...)
	l.mu.Unlock()

	var written int64
	n, err := fmt.Fprintln(w, HeaderLine)
	written += int64(n)
	if err != nil {
		return written, err
	}
	for _, line := range lines {
		n, err := fmt.Fprintln(w, line)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// WriteFile saves the run log under an exclusive lock.
func (l *RunLog) WriteFile(path string) error {
	var sb strings.Builder
	if _, err := l.WriteTo(&sb); err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("run log lock: %w", err)
	}
	defer lock.Unlock()

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// FormatLine renders one outcome as a fixed-width log line.
func FormatLine(o metrics.Outcome) string {
	status := "ERR"
	if o.StatusCode > 0 {
		status = fmt.Sprintf("%d", o.StatusCode)
	}

	lat := "-"
	if o.Kind != metrics.ErrorOverloaded && o.LatencyMs > 0 {
		lat = fmt.Sprintf("%.2f", o.LatencyMs)
	}

	errTxt := ""
	if o.Kind != "" {
		errTxt = string(o.Kind)
		if o.ErrDetail != "" {
			errTxt = fmt.Sprintf("%s: %s", o.Kind, o.ErrDetail)
		}
	}

	ts := o.CompletedAt.UTC().Format("2006-01-02T15:04:05.000")
	return strings.TrimRight(fmt.Sprintf("%-23s  %6d  %5s  %8s  %s", ts, o.Seq, status, lat, errTxt), " ")
}
