package utils

import (
	"fmt"
	"math"
	"time"
)

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// CoerceTimestamp interprets the loosely-typed timestamp values seen in raw
// error payloads: time.Time, RFC3339 strings, and unix epoch numbers
// (seconds, integer or fractional). The boolean reports whether the value
// could be interpreted at all.
func CoerceTimestamp(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		t, err := ParseRFC3339(v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case float64:
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}, false
		}
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC(), true
	case int64:
		if v <= 0 {
			return time.Time{}, false
		}
		return time.Unix(v, 0).UTC(), true
	case int:
		if v <= 0 {
			return time.Time{}, false
		}
		return time.Unix(int64(v), 0).UTC(), true
	default:
		return time.Time{}, false
	}
}
