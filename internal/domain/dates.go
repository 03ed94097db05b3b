package domain

import "time"

var epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

// Midnight truncates t to 00:00:00 UTC on the same calendar day.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayNumber encodes a date as whole days since 1970-01-01 UTC. The same
// calendar day always maps to the same number regardless of the wall-clock
// time or zone of t, so it is stable as a cache key and monotonic in date
// order.
func DayNumber(t time.Time) int64 {
	return int64(Midnight(t).Sub(epoch) / day)
}

// DateOfDay is the inverse of DayNumber.
func DateOfDay(n int64) time.Time {
	return epoch.AddDate(0, 0, int(n))
}

// DateRange returns every calendar date in [start, end), start inclusive and
// end exclusive, ascending. Returns nil when end is not after start.
func DateRange(start, end time.Time) []time.Time {
	first := DayNumber(start)
	n := DayNumber(end) - first
	if n <= 0 {
		return nil
	}
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = DateOfDay(first + int64(i))
	}
	return dates
}
