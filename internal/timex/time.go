// Package timex provides small time helpers shared by the config layer and
// the wire codec: a JSON-friendly Duration and a timestamp parser that
// accepts the two encodings remote documents arrive in.
package timex

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Duration wraps time.Duration so JSON config can specify intervals either
// as strings like "3s" or as integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		var err error
		d.Duration, err = time.ParseDuration(value)
		return err
	default:
		return errors.New("invalid duration")
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ParseTimestamp converts a timestamp value decoded from a wire document
// into a time.Time. The remote store and its JSON bridges disagree on
// representation, so both encodings are accepted: a native time.Time and an
// ISO-8601 / RFC 3339 string.
func ParseTimestamp(v any) (time.Time, error) {
	switch value := v.(type) {
	case time.Time:
		return value, nil
	case string:
		ts, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
		}
		return ts, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
