package sheet

import (
	"strings"
	"time"
)

const (
	DateLayout      = "02.01.2006"
	TimestampLayout = "02.01.2006 15:04:05"
)

var parseLayouts = []string{
	TimestampLayout,
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate reads a cell value written by any of the supported layouts.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range parseLayouts {
		if parsed, err := time.ParseInLocation(layout, trimmed, loc); err == nil {
			return parsed.In(loc), true
		}
	}
	return time.Time{}, false
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
