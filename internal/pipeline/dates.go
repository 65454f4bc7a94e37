package pipeline

import "time"

// DateFromUnix converts a seconds-since-epoch timestamp to its calendar
// date, truncating the time of day in UTC.
func DateFromUnix(ts int64) time.Time {
	t := time.Unix(ts, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
