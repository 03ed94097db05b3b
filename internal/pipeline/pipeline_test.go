package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/utility-usage-etl/internal/domain"
	"github.com/couchcryptid/utility-usage-etl/internal/observability"
	"github.com/couchcryptid/utility-usage-etl/internal/render"
	"github.com/couchcryptid/utility-usage-etl/internal/tempsource"
)

type mockTemps struct {
	err   error
	calls []struct{ start, end time.Time }
}

func (m *mockTemps) TempSeries(_ context.Context, start, end time.Time, sel tempsource.Selector) ([]domain.Point, error) {
	m.calls = append(m.calls, struct{ start, end time.Time }{start, end})
	if m.err != nil {
		return nil, m.err
	}
	var points []domain.Point
	for _, d := range domain.DateRange(start, end) {
		points = append(points, domain.Point{Date: d, Value: sel(domain.Temp{Min: 20, Mean: 40, Max: 60})})
	}
	return points, nil
}

type mockCharts struct {
	err    error
	charts map[string]render.Chart
}

func (m *mockCharts) WriteChart(path string, chart render.Chart) error {
	if m.err != nil {
		return m.err
	}
	if m.charts == nil {
		m.charts = map[string]render.Chart{}
	}
	m.charts[path] = chart
	return nil
}

type mockExporter struct {
	err    error
	series map[string][]domain.Point
}

func (m *mockExporter) ExportSeries(_ context.Context, name string, points []domain.Point) error {
	if m.err != nil {
		return m.err
	}
	if m.series == nil {
		m.series = map[string][]domain.Point{}
	}
	m.series[name] = points
	return nil
}

// writeReadings creates a CSV of monthly readings and returns its path.
func writeReadings(t *testing.T, name string, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(rows), 0o644))
	return path
}

const electricRows = "2024-01-01,100\n2024-02-01,620\n2024-03-01,480\n"

func newPipeline(t *testing.T, temps TempSeriesBuilder, charts ChartWriter, exporter SeriesExporter) *Pipeline {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	metrics := observability.NewMetricsForTesting()
	return New(temps, charts, exporter, logger, metrics, 7, t.TempDir())
}

func TestRun_ProducesChartPerJob(t *testing.T) {
	temps := &mockTemps{}
	charts := &mockCharts{}
	p := newPipeline(t, temps, charts, nil)

	jobs := []Job{{
		Utility:  "electric",
		Unit:     "kWh",
		Path:     writeReadings(t, "electric.csv", electricRows),
		Select:   tempsource.SelectMax,
		TempName: "max temp",
	}}
	require.NoError(t, p.Run(context.Background(), jobs))

	require.Len(t, charts.charts, 1)
	for path, chart := range charts.charts {
		assert.Equal(t, "electric.html", filepath.Base(path))
		assert.Equal(t, "electric usage vs max temp", chart.Title)
		assert.Equal(t, "kWh per day", chart.UsageLabel)
		assert.NotEmpty(t, chart.Usage)
		assert.NotEmpty(t, chart.Temp)
	}
}

func TestRun_TempRangeCoversAllReadings(t *testing.T) {
	temps := &mockTemps{}
	p := newPipeline(t, temps, &mockCharts{}, nil)

	jobs := []Job{{
		Utility: "electric",
		Unit:    "kWh",
		Path:    writeReadings(t, "electric.csv", electricRows),
		Select:  tempsource.SelectMax,
	}}
	require.NoError(t, p.Run(context.Background(), jobs))

	require.Len(t, temps.calls, 1)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), temps.calls[0].start)
	// End is exclusive, one day past the last reading.
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), temps.calls[0].end)
}

func TestRun_UsesJobSelector(t *testing.T) {
	temps := &mockTemps{}
	charts := &mockCharts{}
	p := newPipeline(t, temps, charts, nil)

	jobs := []Job{{
		Utility:  "gas",
		Unit:     "therms",
		Path:     writeReadings(t, "gas.csv", electricRows),
		Select:   tempsource.SelectMin,
		TempName: "min temp",
	}}
	require.NoError(t, p.Run(context.Background(), jobs))

	// The stub reports Min=20 for every day; a constant series smooths to
	// itself wherever the window is determined.
	for _, chart := range charts.charts {
		var saw bool
		for _, pt := range chart.Temp {
			if !math.IsNaN(pt.Value) {
				assert.InDelta(t, 20.0, pt.Value, 1e-9)
				saw = true
			}
		}
		assert.True(t, saw, "expected at least one smoothed temperature point")
	}
}

func TestRun_ExportsWhenConfigured(t *testing.T) {
	exporter := &mockExporter{}
	p := newPipeline(t, &mockTemps{}, &mockCharts{}, exporter)

	jobs := []Job{{
		Utility: "electric",
		Unit:    "kWh",
		Path:    writeReadings(t, "electric.csv", electricRows),
		Select:  tempsource.SelectMax,
	}}
	require.NoError(t, p.Run(context.Background(), jobs))

	assert.Contains(t, exporter.series, "electric_usage_smoothed")
	assert.Contains(t, exporter.series, "electric_temp_smoothed")
}

func TestRun_MissingReadingsFile(t *testing.T) {
	p := newPipeline(t, &mockTemps{}, &mockCharts{}, nil)

	jobs := []Job{{Utility: "electric", Unit: "kWh", Path: "does/not/exist.csv", Select: tempsource.SelectMax}}
	err := p.Run(context.Background(), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "electric")
}

func TestRun_TooFewReadings(t *testing.T) {
	p := newPipeline(t, &mockTemps{}, &mockCharts{}, nil)

	jobs := []Job{{
		Utility: "electric",
		Unit:    "kWh",
		Path:    writeReadings(t, "electric.csv", "2024-01-01,100\n"),
		Select:  tempsource.SelectMax,
	}}
	err := p.Run(context.Background(), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two readings")
}

func TestRun_TempSeriesErrorStopsJob(t *testing.T) {
	temps := &mockTemps{err: errors.New("provider unavailable")}
	charts := &mockCharts{}
	p := newPipeline(t, temps, charts, nil)

	jobs := []Job{{
		Utility: "electric",
		Unit:    "kWh",
		Path:    writeReadings(t, "electric.csv", electricRows),
		Select:  tempsource.SelectMax,
	}}
	err := p.Run(context.Background(), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider unavailable")
	assert.Empty(t, charts.charts)
}

func TestRun_ChartErrorSurfaces(t *testing.T) {
	charts := &mockCharts{err: errors.New("disk full")}
	p := newPipeline(t, &mockTemps{}, charts, nil)

	jobs := []Job{{
		Utility: "gas",
		Unit:    "therms",
		Path:    writeReadings(t, "gas.csv", electricRows),
		Select:  tempsource.SelectMin,
	}}
	err := p.Run(context.Background(), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPipeline(t, &mockTemps{}, &mockCharts{}, nil)
	jobs := []Job{{
		Utility: "electric",
		Unit:    "kWh",
		Path:    writeReadings(t, "electric.csv", electricRows),
		Select:  tempsource.SelectMax,
	}}
	err := p.Run(ctx, jobs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckReadiness(t *testing.T) {
	p := newPipeline(t, &mockTemps{}, &mockCharts{}, nil)
	require.Error(t, p.CheckReadiness(context.Background()))

	jobs := []Job{{
		Utility: "electric",
		Unit:    "kWh",
		Path:    writeReadings(t, "electric.csv", electricRows),
		Select:  tempsource.SelectMax,
	}}
	require.NoError(t, p.Run(context.Background(), jobs))
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestRunStatus(t *testing.T) {
	p := newPipeline(t, &mockTemps{}, &mockCharts{}, nil)

	jobs := []Job{{
		Utility: "electric",
		Unit:    "kWh",
		Path:    writeReadings(t, "electric.csv", electricRows),
		Select:  tempsource.SelectMax,
	}}
	require.NoError(t, p.Run(context.Background(), jobs))

	status := p.RunStatus()
	assert.Equal(t, "done", status.Stage)
	assert.False(t, status.StartedAt.IsZero())
}
