package common

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration wraps time.Duration so configuration files can express it as a
// human string ("1h30m", "500ms") instead of a raw integer of nanoseconds.
type Duration struct {
	time.Duration
}

// NewDuration wraps a time.Duration value.
func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

// UnmarshalText parses a Go duration string, e.g. "30s" or "1h30m45s".
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		return fmt.Errorf("empty duration")
	}

	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}

	d.Duration = parsed
	return nil
}

// MarshalText renders the duration back out in Go duration string form.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalJSON supports both quoted duration strings and plain nanosecond
// integers, mirroring encoding/json's usual text-marshaler affordances.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		return d.UnmarshalText([]byte(asString))
	}

	var asNanos int64
	if err := json.Unmarshal(data, &asNanos); err != nil {
		return fmt.Errorf("duration must be a string or number of nanoseconds: %w", err)
	}
	d.Duration = time.Duration(asNanos)
	return nil
}

// MarshalJSON renders the duration as a quoted Go duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}
