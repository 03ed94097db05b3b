package tempsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/utility-usage-etl/internal/domain"
	"github.com/couchcryptid/utility-usage-etl/internal/observability"
)

// ErrFutureDate is returned when temperature history is requested for today
// or a future date. History exists only for completed days, so hitting this
// is a caller bug and the run should abort.
var ErrFutureDate = errors.New("temperature history requested for today or a future date")

// canonical is one resolved day: the combined summary, or ok=false when no
// provider had data.
type canonical struct {
	temp domain.Temp
	ok   bool
}

// Aggregator resolves per-day canonical temperatures across all configured
// providers, remembering every resolved day for the lifetime of the run so a
// date triggers provider lookups at most once. "No data" days are remembered
// too, which keeps known-gap dates from being re-queried; the negative result
// is never written to any durable store.
//
// An Aggregator is not safe for concurrent use: a batch run resolves dates
// sequentially. A parallel caller would need to make the check-fetch-store
// sequence per date a critical section first.
type Aggregator struct {
	providers []Provider
	logger    *slog.Logger
	metrics   *observability.Metrics
	resolved  map[int64]canonical
}

// New creates an Aggregator over the given providers.
func New(providers []Provider, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		providers: providers,
		logger:    logger,
		metrics:   metrics,
		resolved:  make(map[int64]canonical),
	}
}

// GetTemp returns the canonical summary for a strictly past date. ok is
// false when every provider answered but none had data. Any provider
// transport or parse failure is returned as an error with the provider and
// date attached; partial results are discarded and nothing is remembered for
// the date, so a retry re-queries cleanly.
func (a *Aggregator) GetTemp(ctx context.Context, date time.Time) (temp domain.Temp, ok bool, err error) {
	day := domain.DayNumber(date)
	if day >= domain.DayNumber(clock.Now()) {
		return domain.Temp{}, false, fmt.Errorf("%w: %s", ErrFutureDate, date.Format(time.DateOnly))
	}

	if c, hit := a.resolved[day]; hit {
		return c.temp, c.ok, nil
	}

	temps := make([]domain.Temp, 0, len(a.providers))
	for _, p := range a.providers {
		t, hasData, err := p.History(ctx, date)
		if err != nil {
			return domain.Temp{}, false, fmt.Errorf("provider %s, date %s: %w", p.Name(), date.Format(time.DateOnly), err)
		}
		if !hasData {
			continue
		}
		temps = append(temps, t)
	}

	temp, ok = domain.CombineTemps(temps)
	if !ok {
		a.logger.Warn("no provider had temperature data", "date", date.Format(time.DateOnly))
	}
	a.resolved[day] = canonical{temp: temp, ok: ok}
	return temp, ok, nil
}

// TempSeries resolves every date in [start, end) and returns one point per
// date that has data, using sel to pick the plotted component. Days without
// data are omitted; the smoother tolerates the resulting calendar gaps.
func (a *Aggregator) TempSeries(ctx context.Context, start, end time.Time, sel Selector) ([]domain.Point, error) {
	dates := domain.DateRange(start, end)
	points := make([]domain.Point, 0, len(dates))
	for _, d := range dates {
		t, ok, err := a.GetTemp(ctx, d)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		points = append(points, domain.Point{Date: d, Value: sel(t)})
	}
	return points, nil
}

// AvgTemp returns the mean of sel over every date in [from, to) that has
// data, or NaN when none do.
func (a *Aggregator) AvgTemp(ctx context.Context, from, to time.Time, sel Selector) (float64, error) {
	var sum float64
	var count int
	for _, d := range domain.DateRange(from, to) {
		t, ok, err := a.GetTemp(ctx, d)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		sum += sel(t)
		count++
	}
	if count == 0 {
		return math.NaN(), nil
	}
	return sum / float64(count), nil
}

// AvgMinTemp averages each day's minimum over [from, to).
func (a *Aggregator) AvgMinTemp(ctx context.Context, from, to time.Time) (float64, error) {
	return a.AvgTemp(ctx, from, to, SelectMin)
}

// AvgMeanTemp averages each day's mean over [from, to).
func (a *Aggregator) AvgMeanTemp(ctx context.Context, from, to time.Time) (float64, error) {
	return a.AvgTemp(ctx, from, to, SelectMean)
}

// AvgMaxTemp averages each day's maximum over [from, to).
func (a *Aggregator) AvgMaxTemp(ctx context.Context, from, to time.Time) (float64, error) {
	return a.AvgTemp(ctx, from, to, SelectMax)
}
