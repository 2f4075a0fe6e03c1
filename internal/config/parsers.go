// Package config provides configuration loading and parsing for hermes.
package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// lookupSetting searches for a value in settings using multiple candidate keys.
// It performs case-insensitive matching by also checking lowercase versions.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[key]; ok {
			return val, true
		}
		lower := strings.ToLower(key)
		if val, ok := settings[lower]; ok {
			return val, true
		}
	}
	return nil, false
}

// asString converts an interface value to a string.
func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

// asInt converts an interface value to an int.
func asInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float32:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, err
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unsupported numeric type %T", value)
	}
}

// asFloat64 converts an interface value to a float64.
func asFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("unsupported float type %T", value)
	}
}

// asBool converts an interface value to a bool.
func asBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, err
		}
		return b, nil
	default:
		return false, fmt.Errorf("unsupported boolean type %T", value)
	}
}

// asDuration converts an interface value to a time.Duration. Strings parse
// via time.ParseDuration; bare numbers are interpreted as seconds, matching
// the duration_s and timeout_s preset fields.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(f * float64(time.Second)), nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, err
		}
		return d, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		iv, _ := asInt(v)
		return time.Duration(iv) * time.Second, nil
	case float32, float64:
		fv, _ := asFloat64(v)
		return time.Duration(fv * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("unsupported duration type %T", value)
	}
}

// ParseDurationSeconds parses a duration entered as either a Go duration
// string ("1m30s") or a bare number of seconds ("2.5").
func ParseDurationSeconds(s string) (time.Duration, error) {
	return asDuration(s)
}

// asHeaders converts a headers setting to an ordered header list. Maps sort
// by name so file-driven configs stay deterministic; lists of "Name: Value"
// strings keep their order.
func asHeaders(value interface{}) ([]Header, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.(type) {
	case map[string]string:
		return headersFromMap(v), nil
	case map[string]interface{}:
		m := make(map[string]string, len(v))
		for k, val := range v {
			str, err := asString(val)
			if err != nil {
				return nil, err
			}
			m[k] = str
		}
		return headersFromMap(m), nil
	case map[interface{}]interface{}:
		m := make(map[string]string, len(v))
		for k, val := range v {
			key, err := asString(k)
			if err != nil {
				return nil, err
			}
			str, err := asString(val)
			if err != nil {
				return nil, err
			}
			m[key] = str
		}
		return headersFromMap(m), nil
	case []string:
		return ParseHeaderLines(v)
	case []interface{}:
		lines := make([]string, 0, len(v))
		for i, item := range v {
			str, err := asString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			lines = append(lines, str)
		}
		return ParseHeaderLines(lines)
	default:
		return nil, fmt.Errorf("unsupported headers type %T", value)
	}
}

func headersFromMap(m map[string]string) []Header {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	headers := make([]Header, 0, len(names))
	for _, name := range names {
		headers = append(headers, Header{Name: name, Value: m[name]})
	}
	return headers
}

// ParseHeaderLine parses one "Name: Value" header declaration.
func ParseHeaderLine(line string) (Header, error) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return Header{}, fmt.Errorf("header must be in 'Name: Value' form: %s", line)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Header{}, fmt.Errorf("header name cannot be empty: %s", line)
	}
	return Header{Name: name, Value: strings.TrimSpace(value)}, nil
}

// ParseHeaderLines parses "Name: Value" declarations, one per entry,
// preserving order. Blank lines and lines starting with '#' are skipped so
// the same parser serves --header flags and headers files.
func ParseHeaderLines(lines []string) ([]Header, error) {
	var headers []Header
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		h, err := ParseHeaderLine(trimmed)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, nil
}
