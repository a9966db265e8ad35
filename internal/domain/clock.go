package domain

import "time"

// TimestampLayout is the ISO-8601 UTC form stored in every timestamp column.
// Values in this layout sort lexicographically.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
