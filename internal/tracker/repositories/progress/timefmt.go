package progress

import (
	"fmt"
	"time"
)

// timeLayout is how ObservedAt is persisted (ISO-8601 with offset).
const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad observed_at %q: %w", s, err)
	}
	return t, nil
}

// normalizeTime returns t exactly as it will read back from storage.
func normalizeTime(t time.Time) time.Time {
	n, err := parseTime(formatTime(t))
	if err != nil {
		return t
	}
	return n
}
