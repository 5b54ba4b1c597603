package interval

import (
	"fmt"
	"time"
)

// Interval labels accepted by the aggregate query.
const (
	Minute = "1m"
	Hour   = "1h"
	Day    = "1d"
)

// Parse maps an interval label to its bucket width.
// Unknown labels are a hard validation error — callers reject them before
// touching storage rather than silently falling back to minutes.
func Parse(label string) (time.Duration, error) {
	switch label {
	case Minute:
		return time.Minute, nil
	case Hour:
		return time.Hour, nil
	case Day:
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported interval %q (must be 1m, 1h or 1d)", label)
	}
}

// BucketFor truncates a timestamp to its calendar-aligned bucket boundary in UTC.
// Example: BucketFor(10:35:42, time.Minute) → 10:35:00.
func BucketFor(t time.Time, width time.Duration) time.Time {
	u := t.UTC()
	if width == 24*time.Hour {
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	}
	return u.Truncate(width)
}
