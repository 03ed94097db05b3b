package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	httpadapter "github.com/couchcryptid/utility-usage-etl/internal/adapter/http"
	"github.com/couchcryptid/utility-usage-etl/internal/domain"
	"github.com/couchcryptid/utility-usage-etl/internal/ingest"
	"github.com/couchcryptid/utility-usage-etl/internal/observability"
	"github.com/couchcryptid/utility-usage-etl/internal/render"
	"github.com/couchcryptid/utility-usage-etl/internal/tempsource"
)

// TempSeriesBuilder produces a daily temperature series for a date range.
type TempSeriesBuilder interface {
	TempSeries(ctx context.Context, start, end time.Time, sel tempsource.Selector) ([]domain.Point, error)
}

// ChartWriter renders a usage-versus-temperature chart to a file.
type ChartWriter interface {
	WriteChart(path string, chart render.Chart) error
}

// SeriesExporter publishes a derived series to an external sink.
type SeriesExporter interface {
	ExportSeries(ctx context.Context, name string, points []domain.Point) error
}

// Job describes one utility to process: its readings file and the
// temperature selector to plot against. Electric usage tracks cooling so it
// pairs with daily maximums; gas tracks heating and pairs with minimums.
type Job struct {
	Utility  string
	Unit     string
	Path     string
	Select   tempsource.Selector
	TempName string
}

// Pipeline runs the batch: read meter CSVs, derive usage per day, fetch and
// smooth temperatures, render charts, and optionally export the series.
type Pipeline struct {
	temps         TempSeriesBuilder
	charts        ChartWriter
	exporter      SeriesExporter // nil disables export
	logger        *slog.Logger
	metrics       *observability.Metrics
	smoothingDays int
	outputDir     string

	ready atomic.Bool

	mu        sync.Mutex
	stage     string
	startedAt time.Time
}

// New creates a Pipeline. exporter may be nil when Kafka export is disabled.
func New(temps TempSeriesBuilder, charts ChartWriter, exporter SeriesExporter, logger *slog.Logger, metrics *observability.Metrics, smoothingDays int, outputDir string) *Pipeline {
	return &Pipeline{
		temps:         temps,
		charts:        charts,
		exporter:      exporter,
		logger:        logger,
		metrics:       metrics,
		smoothingDays: smoothingDays,
		outputDir:     outputDir,
	}
}

// CheckReadiness returns nil once the input files have been read, or an error
// describing why the run is not yet underway.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no readings ingested yet")
	}
	return nil
}

// RunStatus reports the stage the run is currently in.
func (p *Pipeline) RunStatus() httpadapter.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return httpadapter.Status{Stage: p.stage, StartedAt: p.startedAt}
}

func (p *Pipeline) setStage(stage string) {
	p.mu.Lock()
	p.stage = stage
	p.mu.Unlock()
}

// Run processes every job in order and returns the first error encountered.
func (p *Pipeline) Run(ctx context.Context, jobs []Job) error {
	p.mu.Lock()
	p.startedAt = time.Now()
	p.stage = "starting"
	p.mu.Unlock()

	p.metrics.RunActive.Set(1)
	defer p.metrics.RunActive.Set(0)

	p.logger.Info("run started", "jobs", len(jobs), "smoothing_days", p.smoothingDays)

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.runJob(ctx, job); err != nil {
			return fmt.Errorf("%s: %w", job.Utility, err)
		}
	}

	p.setStage("done")
	p.logger.Info("run finished")
	return nil
}

// runJob executes the stages for one utility.
func (p *Pipeline) runJob(ctx context.Context, job Job) error {
	logger := p.logger.With("utility", job.Utility)

	series, err := p.ingestStage(job, logger)
	if err != nil {
		return err
	}

	usage := p.usageStage(series, logger)

	// Temperatures cover the full span of readings. The end is exclusive, so
	// the last reading's own date needs one extra day.
	start := series.Readings[0].Date
	end := series.Readings[len(series.Readings)-1].Date.AddDate(0, 0, 1)

	temps, err := p.tempStage(ctx, job, start, end, logger)
	if err != nil {
		return err
	}

	smoothedUsage, smoothedTemps, err := p.smoothStage(usage, temps, logger)
	if err != nil {
		return err
	}

	if err := p.renderStage(job, smoothedTemps, smoothedUsage, logger); err != nil {
		return err
	}

	return p.exportStage(ctx, job, smoothedUsage, smoothedTemps, logger)
}

func (p *Pipeline) ingestStage(job Job, logger *slog.Logger) (domain.Series, error) {
	p.setStage("ingest")
	defer p.timeStage("ingest")()

	series, err := ingest.ReadFile(job.Path, job.Utility, job.Unit)
	if err != nil {
		return domain.Series{}, fmt.Errorf("read readings: %w", err)
	}
	if len(series.Readings) < 2 {
		return domain.Series{}, fmt.Errorf("need at least two readings, got %d", len(series.Readings))
	}

	p.metrics.ReadingsIngested.WithLabelValues(job.Utility).Add(float64(len(series.Readings)))
	p.ready.Store(true)
	logger.Info("readings ingested",
		"count", len(series.Readings),
		"first", series.Readings[0].Date.Format(time.DateOnly),
		"last", series.Readings[len(series.Readings)-1].Date.Format(time.DateOnly),
	)
	return series, nil
}

func (p *Pipeline) usageStage(series domain.Series, logger *slog.Logger) []domain.Point {
	p.setStage("usage")
	defer p.timeStage("usage")()

	usage := ingest.UsagePerDay(series)
	logger.Info("usage per day derived", "points", len(usage))
	return usage
}

func (p *Pipeline) tempStage(ctx context.Context, job Job, start, end time.Time, logger *slog.Logger) ([]domain.Point, error) {
	p.setStage("temperatures")
	defer p.timeStage("temperatures")()

	temps, err := p.temps.TempSeries(ctx, start, end, job.Select)
	if err != nil {
		return nil, fmt.Errorf("build temperature series: %w", err)
	}
	logger.Info("temperature series built",
		"temp", job.TempName,
		"points", len(temps),
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
	)
	return temps, nil
}

func (p *Pipeline) smoothStage(usage, temps []domain.Point, logger *slog.Logger) (smoothedUsage, smoothedTemps []domain.Point, err error) {
	p.setStage("smooth")
	defer p.timeStage("smooth")()

	smoothedUsage, err = domain.SmoothSeries(usage, p.smoothingDays)
	if err != nil {
		return nil, nil, fmt.Errorf("smooth usage: %w", err)
	}
	smoothedTemps, err = domain.SmoothSeries(temps, p.smoothingDays)
	if err != nil {
		return nil, nil, fmt.Errorf("smooth temperatures: %w", err)
	}
	logger.Info("series smoothed", "window_days", p.smoothingDays)
	return smoothedUsage, smoothedTemps, nil
}

func (p *Pipeline) renderStage(job Job, temps, usage []domain.Point, logger *slog.Logger) error {
	p.setStage("render")
	defer p.timeStage("render")()

	path := filepath.Join(p.outputDir, job.Utility+".html")
	chart := render.Chart{
		Title:      fmt.Sprintf("%s usage vs %s", job.Utility, job.TempName),
		TempLabel:  job.TempName,
		UsageLabel: fmt.Sprintf("%s per day", job.Unit),
		Temp:       temps,
		Usage:      usage,
	}
	if err := p.charts.WriteChart(path, chart); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	p.metrics.PointsExported.Add(float64(len(usage) + len(temps)))
	logger.Info("chart written", "path", path)
	return nil
}

func (p *Pipeline) exportStage(ctx context.Context, job Job, usage, temps []domain.Point, logger *slog.Logger) error {
	if p.exporter == nil {
		return nil
	}
	p.setStage("export")
	defer p.timeStage("export")()

	if err := p.exporter.ExportSeries(ctx, job.Utility+"_usage_smoothed", usage); err != nil {
		return fmt.Errorf("export usage series: %w", err)
	}
	if err := p.exporter.ExportSeries(ctx, job.Utility+"_temp_smoothed", temps); err != nil {
		return fmt.Errorf("export temperature series: %w", err)
	}
	logger.Info("series exported")
	return nil
}

// timeStage records the duration of a stage when the returned func runs.
func (p *Pipeline) timeStage(stage string) func() {
	start := time.Now()
	return func() {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
