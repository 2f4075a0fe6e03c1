package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPresetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.json")

	cfg := Config{
		TargetURL: "http://example.com/limit",
		Method:    "POST",
		Rate:      7.5,
		Duration:  45 * time.Second,
		Timeout:   2 * time.Second,
		Headers:   []Header{{Name: "X-Env", Value: "staging"}},
		Body:      `{"k":"v"}`,
	}
	if err := WritePreset(path, cfg); err != nil {
		t.Fatalf("WritePreset() error = %v", err)
	}

	settings, err := ReadPreset(path)
	if err != nil {
		t.Fatalf("ReadPreset() error = %v", err)
	}

	loaded := &Config{}
	if err := applyPresetSettings(loaded, settings); err != nil {
		t.Fatalf("applyPresetSettings() error = %v", err)
	}

	if loaded.TargetURL != cfg.TargetURL {
		t.Errorf("TargetURL = %q", loaded.TargetURL)
	}
	if loaded.Rate != 7.5 {
		t.Errorf("Rate = %v, want 7.5", loaded.Rate)
	}
	if loaded.Duration != 45*time.Second {
		t.Errorf("Duration = %v", loaded.Duration)
	}
	if loaded.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v", loaded.Timeout)
	}
	if len(loaded.Headers) != 1 || loaded.Headers[0].Name != "X-Env" {
		t.Errorf("Headers = %+v", loaded.Headers)
	}
	if loaded.Body != cfg.Body {
		t.Errorf("Body = %q", loaded.Body)
	}
}

func TestReadPresetKeepsHeaderNameCase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cased.json")
	body := `{
  "config": {
    "url": "http://example.com",
    "rps": 2,
    "duration_s": 5,
    "headers": {"X-API-Key": "k1", "X-Env": "staging"}
  }
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := ReadPreset(path)
	if err != nil {
		t.Fatalf("ReadPreset() error = %v", err)
	}
	loaded := &Config{}
	if err := applyPresetSettings(loaded, settings); err != nil {
		t.Fatalf("applyPresetSettings() error = %v", err)
	}

	got := make(map[string]string, len(loaded.Headers))
	for _, h := range loaded.Headers {
		got[h.Name] = h.Value
	}
	if got["X-API-Key"] != "k1" || got["X-Env"] != "staging" {
		t.Errorf("header names lost their case: %+v", loaded.Headers)
	}
}

func TestReadPresetAcceptsBareConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bare.json")
	body := `{"url": "http://example.com", "rps": 3, "duration_s": 10}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := ReadPreset(path)
	if err != nil {
		t.Fatalf("ReadPreset() error = %v", err)
	}
	if _, ok := lookupSetting(settings, "url"); !ok {
		t.Errorf("bare config should expose url, got %v", settings)
	}
}

func TestReadPresetAcceptsSummaryEnvelope(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.json")
	// A summary file from a previous run replays as a preset.
	body := `{
  "config": {"url": "http://example.com", "rps": 4, "duration_s": 15},
  "summary": {"total_sent": 60, "successes": 60}
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := ReadPreset(path)
	if err != nil {
		t.Fatalf("ReadPreset() error = %v", err)
	}
	raw, ok := lookupSetting(settings, "rps")
	if !ok {
		t.Fatalf("envelope config not unwrapped: %v", settings)
	}
	if got, _ := asFloat64(raw); got != 4 {
		t.Errorf("rps = %v, want 4", got)
	}
	if _, ok := lookupSetting(settings, "total_sent"); ok {
		t.Error("summary fields must not leak into the settings")
	}
}

func TestReadPresetYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preset.yaml")
	body := "url: http://example.com\nrps: 2\nduration_s: 30\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	settings, err := ReadPreset(path)
	if err != nil {
		t.Fatalf("ReadPreset() error = %v", err)
	}
	if _, ok := lookupSetting(settings, "url"); !ok {
		t.Errorf("yaml preset not parsed: %v", settings)
	}
}
