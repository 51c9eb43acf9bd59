package progress

import (
	"sort"
	"strings"
	"time"
)

// epoch is what unreadable timestamps compare as.
var epoch = time.Unix(0, 0).UTC()

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime reads a stored timestamp. Anything unreadable is the Unix epoch.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return epoch
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return epoch
}

// FormatTime renders t the way progress timestamps are written: UTC, millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// SortByRecency returns entries newest first. Equal timestamps order by
// learned count descending, then by book ID so the order is total.
func SortByRecency(m Map) []BookProgress {
	entries := make([]BookProgress, 0, len(m))
	for _, entry := range m {
		entries = append(entries, entry.clone())
	}

	sort.Slice(entries, func(i, j int) bool {
		ti, tj := entries[i].Time(), entries[j].Time()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		if li, lj := entries[i].Learned(), entries[j].Learned(); li != lj {
			return li > lj
		}
		return entries[i].BookID < entries[j].BookID
	})

	return entries
}
