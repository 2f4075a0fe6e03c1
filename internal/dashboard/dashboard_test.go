package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/hermeslabs/hermes/internal/metrics"
)

func TestFormatStatusRows(t *testing.T) {
	rows := formatStatusRows(map[int]int64{
		200: 50,
		429: 10,
		503: 2,
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if !strings.Contains(rows[0], "200") {
		t.Errorf("expected 200 first (highest count), got %s", rows[0])
	}
	var sawYellow429 bool
	for _, row := range rows {
		if strings.Contains(row, "429") && strings.Contains(row, "yellow") {
			sawYellow429 = true
		}
	}
	if !sawYellow429 {
		t.Errorf("expected 429 row highlighted, got %v", rows)
	}
}

func TestFormatStatusRowsEmpty(t *testing.T) {
	rows := formatStatusRows(nil)
	if len(rows) != 1 || !strings.Contains(rows[0], "No responses") {
		t.Fatalf("expected placeholder row, got %v", rows)
	}
}

func TestFormatErrorRows(t *testing.T) {
	rows := formatErrorRows(map[metrics.ErrorKind]int64{
		metrics.ErrorTimeout:    5,
		metrics.ErrorOverloaded: 2,
	})
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if !strings.Contains(rows[0], "Timeout") {
		t.Errorf("expected timeout first (highest count), got %s", rows[0])
	}
}

func TestFormatProbeParams(t *testing.T) {
	tests := []struct {
		name     string
		config   ProbeConfig
		contains []string
		excludes []string
	}{
		{
			name: "basic config",
			config: ProbeConfig{
				Rate:     10,
				Timeout:  5 * time.Second,
				Ceiling:  64,
				Duration: 30 * time.Second,
			},
			contains: []string{"Rate: 10/s", "Timeout: 5s", "Ceiling: 64"},
			excludes: []string{"Method:", "Preset:"},
		},
		{
			name: "POST method shown",
			config: ProbeConfig{
				Method: "POST",
				Rate:   5,
			},
			contains: []string{"Method: POST"},
		},
		{
			name: "GET method not shown",
			config: ProbeConfig{
				Method: "GET",
				Rate:   5,
			},
			excludes: []string{"Method:"},
		},
		{
			name: "with preset file",
			config: ProbeConfig{
				Rate:       5,
				PresetFile: "probe.json",
			},
			contains: []string{"Preset: probe.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Dashboard{probeConfig: tt.config}
			result := d.formatProbeParams()

			for _, s := range tt.contains {
				if !strings.Contains(result, s) {
					t.Errorf("expected result to contain %q, got %q", s, result)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(result, s) {
					t.Errorf("expected result NOT to contain %q, got %q", s, result)
				}
			}
		})
	}
}
