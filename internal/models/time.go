package models

import (
	"fmt"
	"strings"
	"time"
)

// The legacy backend and the mobile clients exchange timestamps as local-time
// strings without a zone offset. LocalTime keeps that wall-clock contract: it
// parses and formats the exact wire shape and never shifts into UTC.
const (
	localTimeLayout      = "2006-01-02T15:04:05"
	localTimeShortLayout = "2006-01-02T15:04"
	localDateLayout      = "2006-01-02"
)

// LocalTime is a wall-clock timestamp in the institution's local time.
type LocalTime struct {
	t time.Time
}

// NewLocalTime wraps a time.Time, dropping sub-second precision the wire
// format cannot carry.
func NewLocalTime(t time.Time) LocalTime {
	return LocalTime{t: t.Truncate(time.Second)}
}

// ParseLocalTime accepts the wire shapes YYYY-MM-DDTHH:mm[:ss] and, for
// date-range filters, a bare YYYY-MM-DD.
func ParseLocalTime(value string) (LocalTime, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{localTimeLayout, localTimeShortLayout, localDateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return LocalTime{t: t}, nil
		}
	}
	return LocalTime{}, fmt.Errorf("invalid local timestamp %q", value)
}

// Time returns the underlying time value.
func (lt LocalTime) Time() time.Time { return lt.t }

// IsZero reports whether the timestamp is unset.
func (lt LocalTime) IsZero() bool { return lt.t.IsZero() }

// Before reports whether lt is strictly earlier than other.
func (lt LocalTime) Before(other LocalTime) bool { return lt.t.Before(other.t) }

// After reports whether lt is strictly later than other.
func (lt LocalTime) After(other LocalTime) bool { return lt.t.After(other.t) }

// String renders the full wire layout.
func (lt LocalTime) String() string {
	if lt.t.IsZero() {
		return ""
	}
	return lt.t.Format(localTimeLayout)
}

// MarshalJSON renders the wire layout as a JSON string.
func (lt LocalTime) MarshalJSON() ([]byte, error) {
	if lt.t.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + lt.t.Format(localTimeLayout) + `"`), nil
}

// UnmarshalJSON parses any accepted wire shape. Empty strings decode to the
// zero value.
func (lt *LocalTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*lt = LocalTime{}
		return nil
	}
	parsed, err := ParseLocalTime(raw)
	if err != nil {
		return err
	}
	*lt = parsed
	return nil
}
