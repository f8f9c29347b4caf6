package entities

import (
	"fmt"
	"strings"
	"time"
)

const (
	timestampLayout = "2006-01-02T15:04:05"
	dateLayout      = "2006-01-02"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	timestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp reads an ISO-8601 date-time. Values without an offset
// are taken as UTC; values with one are converted to UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q is not ISO-8601", ErrInvalidField, s)
}

// ParseRangeBound parses one end of an inclusive date range. A date-only
// upper bound covers the whole day.
func ParseRangeBound(s string, upper bool) (time.Time, error) {
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, err
	}
	if upper && isDateOnly(s) {
		t = t.Add(24*time.Hour - time.Microsecond)
	}
	return t, nil
}

// FormatTimestamp renders t as UTC wall time, keeping fractional seconds
// only when present.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout + ".999999")
}

func isDateOnly(s string) bool {
	_, err := time.Parse(dateLayout, strings.TrimSpace(s))
	return err == nil
}
