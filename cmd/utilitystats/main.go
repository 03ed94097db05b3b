package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/utility-usage-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/utility-usage-etl/internal/adapter/kafka"
	"github.com/couchcryptid/utility-usage-etl/internal/adapter/cachedb"
	"github.com/couchcryptid/utility-usage-etl/internal/adapter/weather"
	"github.com/couchcryptid/utility-usage-etl/internal/config"
	"github.com/couchcryptid/utility-usage-etl/internal/observability"
	"github.com/couchcryptid/utility-usage-etl/internal/pipeline"
	"github.com/couchcryptid/utility-usage-etl/internal/render"
	"github.com/couchcryptid/utility-usage-etl/internal/tempsource"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cachedb.Open(cfg.CachePath)
	if err != nil {
		return err
	}
	defer store.Close()

	providers, err := buildProviders(cfg, store, logger, metrics)
	if err != nil {
		return err
	}
	aggregator := tempsource.New(providers, logger, metrics)

	var exporter pipeline.SeriesExporter
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		exporter = writer
		logger.Info("kafka export enabled", "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(aggregator, render.Renderer{}, exporter, logger, metrics, cfg.SmoothingDays, cfg.OutputDir)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	runErr := p.Run(ctx, buildJobs(cfg))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return runErr
}

// buildProviders constructs a weather client for each configured vendor.
func buildProviders(cfg *config.Config, store *cachedb.Store, logger *slog.Logger, metrics *observability.Metrics) ([]tempsource.Provider, error) {
	var providers []tempsource.Provider

	if cfg.VisualCrossingEnabled() {
		vendor := weather.NewVisualCrossing(cfg.Location, cfg.VisualCrossingAPIKey)
		client, err := weather.NewClient(vendor, store, cfg.ProviderTimeout, logger, metrics)
		if err != nil {
			return nil, err
		}
		providers = append(providers, client)
	}
	if cfg.OpenMeteoEnabled {
		vendor := weather.NewOpenMeteo(cfg.Latitude, cfg.Longitude)
		client, err := weather.NewClient(vendor, store, cfg.ProviderTimeout, logger, metrics)
		if err != nil {
			return nil, err
		}
		providers = append(providers, client)
	}
	if cfg.NWSStation != "" {
		vendor := weather.NewNWS(cfg.NWSStation)
		client, err := weather.NewClient(vendor, store, cfg.ProviderTimeout, logger, metrics)
		if err != nil {
			return nil, err
		}
		providers = append(providers, client)
	}

	logger.Info("weather providers configured", "count", len(providers))
	return providers, nil
}

// buildJobs maps the configured input files to pipeline jobs. Electric usage
// is plotted against daily maximums, gas against daily minimums.
func buildJobs(cfg *config.Config) []pipeline.Job {
	var jobs []pipeline.Job
	if cfg.ElectricFile != "" {
		jobs = append(jobs, pipeline.Job{
			Utility:  "electric",
			Unit:     "kWh",
			Path:     cfg.ElectricFile,
			Select:   tempsource.SelectMax,
			TempName: "max temp",
		})
	}
	if cfg.GasFile != "" {
		jobs = append(jobs, pipeline.Job{
			Utility:  "gas",
			Unit:     "therms",
			Path:     cfg.GasFile,
			Select:   tempsource.SelectMin,
			TempName: "min temp",
		})
	}
	return jobs
}
