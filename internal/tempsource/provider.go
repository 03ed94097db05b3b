// Package tempsource reconciles daily temperature history from one or more
// weather providers into a single canonical per-day summary.
package tempsource

import (
	"context"
	"time"

	"github.com/couchcryptid/utility-usage-etl/internal/domain"
)

// Provider supplies one day's temperature summary from a single weather
// vendor. History reports ok=false when the vendor answered successfully but
// has no data for the date; transport and parse failures are returned as
// errors and are never folded into "no data". The Aggregator enforces the
// strictly-past-date precondition, so implementations may assume date is in
// the past.
type Provider interface {
	Name() string
	History(ctx context.Context, date time.Time) (temp domain.Temp, ok bool, err error)
}

// Selector picks the plotted component out of a daily summary.
type Selector func(domain.Temp) float64

var (
	SelectMin  Selector = func(t domain.Temp) float64 { return t.Min }
	SelectMean Selector = func(t domain.Temp) float64 { return t.Mean }
	SelectMax  Selector = func(t domain.Temp) float64 { return t.Max }
)
