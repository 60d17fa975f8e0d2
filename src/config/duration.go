// SPDX-License-Identifier: MIT
// Package config loads and validates the scheduler's runtime
// configuration: the knobs from §6 of the engine's external interface,
// read from YAML the way the teacher's config layer reads its own.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration wraps time.Duration with a tolerant YAML/JSON unmarshaler
// that accepts a bare number of seconds (int or float), a Go duration
// string ("100ms", "30m"), or a loose human string ("0.1 seconds",
// "5 minutes"). This is the config-layer counterpart of the teacher's
// truthy/falsy bool parsing in src/config/bool.go: one tolerant parser,
// used everywhere a duration-shaped option is read, never
// strconv.ParseDuration called ad hoc at call sites.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// ParseDuration accepts the three shapes the config schema allows for
// a duration-valued option: a bare number of seconds, a Go duration
// string, or a "<number> <unit>" human string.
func ParseDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	case time.Duration:
		return v, nil
	case string:
		return parseDurationString(v)
	default:
		return 0, fmt.Errorf("config: unsupported duration value %v (%T)", raw, raw)
	}
}

func parseDurationString(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(strings.ReplaceAll(s, " ", "")); err == nil {
		return d, nil
	}
	fields := strings.Fields(s)
	if len(fields) == 2 {
		n, err := strconv.ParseFloat(fields[0], 64)
		if err == nil {
			if unit, ok := humanUnits[strings.ToLower(strings.TrimSuffix(fields[1], "s"))]; ok {
				return time.Duration(n * float64(unit)), nil
			}
		}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("config: invalid duration %q", s)
}

var humanUnits = map[string]time.Duration{
	"nanosecond":  time.Nanosecond,
	"microsecond": time.Microsecond,
	"millisecond": time.Millisecond,
	"second":      time.Second,
	"minute":      time.Minute,
	"hour":        time.Hour,
	"day":         24 * time.Hour,
	"week":        7 * 24 * time.Hour,
}
