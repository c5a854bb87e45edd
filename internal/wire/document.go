// Package wire defines the flat, string-keyed document shape exchanged with
// the remote store, plus typed accessors. Documents are only handled at the
// sync boundary; everything inside the engine works on typed entities.
package wire

import (
	"fmt"
	"time"

	"github.com/ledgerkeeper/ledgerkeeper/internal/timex"
)

// Reserved document keys shared by every collection. Payload keys are
// entity-specific and live alongside these in the same flat map.
const (
	KeyID        = "id"
	KeyUserID    = "userId"
	KeyDeleted   = "deleted"
	KeyDeletedAt = "deletedAt"
	KeyDeletedBy = "deletedBy"
	KeyCreatedAt = "createdAt"
	KeyUpdatedAt = "updatedAt"
)

// Document is one remote record: a flat string-keyed map. The remote store
// is schemaless, so values arrive as whatever the JSON bridge produced.
type Document map[string]any

// IsTombstone reports whether the document represents a deletion marker.
func (d Document) IsTombstone() bool {
	v, _ := d[KeyDeleted].(bool)
	return v
}

// String returns the string value under key, or "" when absent or mistyped.
func (d Document) String(key string) string {
	v, _ := d[key].(string)
	return v
}

// Bool returns the bool value under key, or false when absent or mistyped.
func (d Document) Bool(key string) bool {
	v, _ := d[key].(bool)
	return v
}

// Int64 returns an integer value under key. JSON decoding yields float64,
// so both encodings are accepted.
func (d Document) Int64(key string) (int64, error) {
	switch v := d[key].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case nil:
		return 0, fmt.Errorf("missing key %q", key)
	default:
		return 0, fmt.Errorf("key %q: unsupported numeric type %T", key, v)
	}
}

// Time returns the timestamp under key, accepting both a native time.Time
// and an ISO-8601 string.
func (d Document) Time(key string) (time.Time, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return time.Time{}, fmt.Errorf("missing key %q", key)
	}
	ts, err := timex.ParseTimestamp(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("key %q: %w", key, err)
	}
	return ts, nil
}

// SetTime stores a timestamp under key in the native encoding. JSON bridges
// will turn it into an RFC 3339 string in transit, which Time accepts back.
func (d Document) SetTime(key string, t time.Time) {
	d[key] = t.UTC()
}

// UpdatedAt is a convenience accessor for the primary ordering signal.
func (d Document) UpdatedAt() (time.Time, error) {
	return d.Time(KeyUpdatedAt)
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
