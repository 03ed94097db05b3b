package domain

import "math"

// sxxThreshold guards the slope denominator: below this there is effectively
// no variation in x and the fit is undefined.
const sxxThreshold = 10 * math.SmallestNonzeroFloat64

// Regression accumulates sufficient statistics for a simple least-squares
// line fit y = a + b*x without retaining the samples. The means and centered
// sums are maintained with the updating formulas from Chan, Golub & LeVeque
// (1983), which avoid the catastrophic cancellation the naive sum-of-products
// form suffers when x values are large day offsets.
//
// Methods that cannot produce an estimate return NaN rather than an error:
// the value flows to the chart as a gap, and callers must not substitute
// zero for it. A Regression is not safe for concurrent use; one instance
// serves one smoothing window and is then discarded.
type Regression struct {
	sumX float64
	sumY float64
	sxx  float64
	syy  float64
	sxy  float64
	xBar float64
	yBar float64
	n    int64
}

// Add incorporates the observation (x, y).
func (r *Regression) Add(x, y float64) {
	if r.n == 0 {
		r.xBar = x
		r.yBar = y
	} else {
		f1 := 1 + float64(r.n)
		f2 := float64(r.n) / f1
		dx := x - r.xBar
		dy := y - r.yBar
		r.sxx += dx * dx * f2
		r.syy += dy * dy * f2
		r.sxy += dx * dy * f2
		r.xBar += dx / f1
		r.yBar += dy / f1
	}
	r.sumX += x
	r.sumY += y
	r.n++
}

// N returns the number of observations added so far.
func (r *Regression) N() int64 { return r.n }

// Slope returns the least-squares slope estimate, or NaN when fewer than two
// observations or fewer than two distinct x values have been added.
func (r *Regression) Slope() float64 {
	if r.n < 2 || math.Abs(r.sxx) < sxxThreshold {
		return math.NaN()
	}
	return r.sxy / r.sxx
}

// Intercept returns the intercept estimate for the given slope. A NaN slope
// propagates.
func (r *Regression) Intercept(slope float64) float64 {
	return (r.sumY - slope*r.sumX) / float64(r.n)
}

// Predict returns the fitted value at x, or NaN when no line can be
// estimated.
func (r *Regression) Predict(x float64) float64 {
	slope := r.Slope()
	return r.Intercept(slope) + slope*x
}
