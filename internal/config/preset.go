package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"
)

// ReadPreset loads the settings map from a preset file. Both bare configs and
// summary envelopes are accepted: a summary file written by a previous run
// carries the config under its "config" key, so any summary can be replayed
// as a preset directly.
func ReadPreset(path string) (map[string]interface{}, error) {
	lock := flock.New(lockPath(path))
	locked, err := lock.TryRLock()
	if err == nil && locked {
		defer lock.Unlock()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if gjson.ValidBytes(data) {
		if sub := gjson.GetBytes(data, "config"); sub.Exists() && sub.IsObject() {
			data = []byte(sub.Raw)
		}
	}

	v := viper.New()
	v.SetConfigType(configType(path))
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}
	settings := v.AllSettings()

	// viper lowercases every key it returns, which would mangle header names
	// like X-API-Key. Recover the headers object from the raw document, where
	// the names keep their case.
	if gjson.ValidBytes(data) {
		if h := gjson.GetBytes(data, "headers"); h.Exists() && h.IsObject() {
			headers := make(map[string]string)
			h.ForEach(func(name, value gjson.Result) bool {
				headers[name.String()] = value.String()
				return true
			})
			settings["headers"] = headers
		}
	}
	return settings, nil
}

// preset is the serialized form of the probe-relevant part of a Config.
type preset struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Rate      float64           `json:"rps"`
	DurationS float64           `json:"duration_s"`
	TimeoutS  float64           `json:"timeout_s"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      string            `json:"body,omitempty"`
	Ceiling   int               `json:"ceiling,omitempty"`
	Queue     int               `json:"queue_depth,omitempty"`
	Overruns  string            `json:"overruns,omitempty"`
	Checks    []string          `json:"checks,omitempty"`
	Threshold []string          `json:"thresholds,omitempty"`
}

// PresetValue returns the serializable preset view of a Config, used both for
// --save-preset and for the config half of the summary envelope.
func PresetValue(cfg Config) interface{} {
	p := preset{
		URL:       cfg.TargetURL,
		Method:    cfg.Method,
		Rate:      cfg.Rate,
		DurationS: cfg.Duration.Seconds(),
		TimeoutS:  cfg.Timeout.Seconds(),
		Body:      cfg.Body,
		Ceiling:   cfg.Ceiling,
		Queue:     cfg.QueueDepth,
		Checks:    cfg.Checks,
		Threshold: cfg.Thresholds,
	}
	if cfg.Overruns != "" && cfg.Overruns != OverrunPolicyFlag {
		p.Overruns = string(cfg.Overruns)
	}
	if len(cfg.Headers) > 0 {
		p.Headers = make(map[string]string, len(cfg.Headers))
		for _, h := range cfg.Headers {
			p.Headers[h.Name] = h.Value
		}
	}
	return p
}

// WritePreset saves the config to a preset file under an exclusive lock so
// concurrent runs pointed at the same path do not interleave writes.
func WritePreset(path string, cfg Config) error {
	payload := map[string]interface{}{"config": PresetValue(cfg)}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("preset lock: %w", err)
	}
	defer lock.Unlock()

	return os.WriteFile(path, data, 0o644)
}

func lockPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	return filepath.Join(dir, "."+base+".lock")
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}
