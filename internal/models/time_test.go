package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLocalTimeLayouts(t *testing.T) {
	full, err := ParseLocalTime("2025-01-15T09:30:45")
	require.NoError(t, err)
	require.Equal(t, "2025-01-15T09:30:45", full.String())

	short, err := ParseLocalTime("2025-01-15T09:30")
	require.NoError(t, err)
	require.Equal(t, "2025-01-15T09:30:00", short.String())

	dateOnly, err := ParseLocalTime("2025-01-15")
	require.NoError(t, err)
	require.Equal(t, "2025-01-15T00:00:00", dateOnly.String())

	_, err = ParseLocalTime("15/01/2025")
	require.Error(t, err)
	_, err = ParseLocalTime("")
	require.Error(t, err)
}

func TestLocalTimeKeepsWallClock(t *testing.T) {
	// The wire format carries no offset; parsing and formatting must never
	// shift the clock reading.
	lt, err := ParseLocalTime("2025-06-01T23:45")
	require.NoError(t, err)
	require.Equal(t, 23, lt.Time().Hour())
	require.Equal(t, 45, lt.Time().Minute())
	require.Equal(t, "2025-06-01T23:45:00", lt.String())
}

func TestLocalTimeJSONRoundTrip(t *testing.T) {
	lt, err := ParseLocalTime("2025-03-10T14:00:30")
	require.NoError(t, err)

	payload, err := json.Marshal(lt)
	require.NoError(t, err)
	require.Equal(t, `"2025-03-10T14:00:30"`, string(payload))

	var decoded LocalTime
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.True(t, decoded.Time().Equal(lt.Time()))

	var short LocalTime
	require.NoError(t, json.Unmarshal([]byte(`"2025-03-10T14:00"`), &short))
	require.Equal(t, "2025-03-10T14:00:00", short.String())

	var empty LocalTime
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	require.True(t, empty.IsZero())

	payload, err = json.Marshal(LocalTime{})
	require.NoError(t, err)
	require.Equal(t, `""`, string(payload))
}

func TestNewLocalTimeDropsSubSecond(t *testing.T) {
	raw := time.Date(2025, 2, 1, 10, 0, 5, 987654321, time.Local)
	lt := NewLocalTime(raw)
	require.Equal(t, "2025-02-01T10:00:05", lt.String())
}
