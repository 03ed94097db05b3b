package domain

import "fmt"

// SmoothSeries fits a local regression line around every point of a daily
// series and returns the line's value at each point's own date.
//
// The window for a point at date d covers [d - windowDays/2, d + (windowDays-1)/2]
// calendar days inclusive, so both even and odd widths center correctly.
// Input must be sorted by date ascending with unique dates; calendar gaps are
// fine because window membership is decided by date, not slice position. The
// output has exactly one point per input point, with the same dates in the
// same order. A point whose window holds fewer than two distinct days carries
// NaN.
func SmoothSeries(points []Point, windowDays int) ([]Point, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("smoothing window must be positive, got %d", windowDays)
	}
	if len(points) == 0 {
		return nil, nil
	}

	// Day offsets from the first date keep the regression x values small.
	base := DayNumber(points[0].Date)
	days := make([]int64, len(points))
	for i, p := range points {
		days[i] = DayNumber(p.Date) - base
	}

	before := int64(windowDays / 2)
	after := int64((windowDays - 1) / 2)

	out := make([]Point, len(points))
	// start marks the first index inside the current window. Windows only
	// move forward as the target date advances, so the cursor never backs up
	// and the whole pass advances it O(n) times in total.
	start := 0
	for i, p := range points {
		lo := days[i] - before
		hi := days[i] + after
		for days[start] < lo {
			start++
		}

		var reg Regression
		for j := start; j < len(points) && days[j] <= hi; j++ {
			reg.Add(float64(days[j]), points[j].Value)
		}

		out[i] = Point{Date: p.Date, Value: reg.Predict(float64(days[i]))}
	}
	return out, nil
}

// CombineTemps merges independent per-provider summaries for one day into a
// canonical Temp: the lowest min, the highest max, and the unweighted mean of
// the provider means. ok is false when temps is empty.
func CombineTemps(temps []Temp) (combined Temp, ok bool) {
	if len(temps) == 0 {
		return Temp{}, false
	}
	combined = temps[0]
	var meanSum float64
	for _, t := range temps {
		combined.Min = min(combined.Min, t.Min)
		combined.Max = max(combined.Max, t.Max)
		meanSum += t.Mean
	}
	combined.Mean = meanSum / float64(len(temps))
	return combined, true
}
