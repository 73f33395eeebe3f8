package shared

import "time"

// ParseDate accepts period dates as YYYY-MM-DD, or full RFC3339 when a
// client sends timestamps. Empty input parses to the zero time.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if d, err := time.Parse(time.DateOnly, value); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, value)
}
