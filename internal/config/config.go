package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	// Meter readings input.
	ElectricFile string
	GasFile      string

	// Smoothing and rendering.
	SmoothingDays int
	OutputDir     string

	// Weather providers. Each provider is enabled by the presence of its
	// settings; at least one must be configured.
	Location             string // Visual Crossing place string, e.g. "Boston,MA"
	VisualCrossingAPIKey string
	Latitude             float64 // Open-Meteo coordinate
	Longitude            float64
	OpenMeteoEnabled     bool
	NWSStation           string // NWS observation station, e.g. "KBED"
	ProviderTimeout      time.Duration

	// Durable provider-response cache.
	CachePath string

	// Admin HTTP endpoints served during the run.
	HTTPAddr string

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Optional Kafka export of derived series.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	providerTimeout, err := parseDuration("PROVIDER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	smoothingDays, err := parsePositiveInt("SMOOTHING_DAYS", 28)
	if err != nil {
		return nil, err
	}

	lat, lon, openMeteoEnabled, err := parseCoordinate()
	if err != nil {
		return nil, err
	}

	kafkaBrokers := parseBrokers(envOrDefault("KAFKA_BROKERS", ""))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		ElectricFile: os.Getenv("ELECTRIC_FILE"),
		GasFile:      os.Getenv("GAS_FILE"),

		SmoothingDays: smoothingDays,
		OutputDir:     envOrDefault("OUTPUT_DIR", "."),

		Location:             os.Getenv("LOCATION"),
		VisualCrossingAPIKey: os.Getenv("VISUAL_CROSSING_API_KEY"),
		Latitude:             lat,
		Longitude:            lon,
		OpenMeteoEnabled:     openMeteoEnabled,
		NWSStation:           os.Getenv("NWS_STATION"),
		ProviderTimeout:      providerTimeout,

		CachePath: envOrDefault("CACHE_PATH", "cache/db.sqlite"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "utility-usage-series"),
	}

	if cfg.ElectricFile == "" && cfg.GasFile == "" {
		return nil, errors.New("at least one of ELECTRIC_FILE or GAS_FILE is required")
	}
	if cfg.VisualCrossingEnabled() && cfg.Location == "" {
		return nil, errors.New("VISUAL_CROSSING_API_KEY is set but LOCATION is not")
	}
	if !cfg.VisualCrossingEnabled() && !cfg.OpenMeteoEnabled && cfg.NWSStation == "" {
		return nil, errors.New("no weather provider configured: set VISUAL_CROSSING_API_KEY+LOCATION, LATITUDE+LONGITUDE, or NWS_STATION")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

// VisualCrossingEnabled reports whether the Visual Crossing provider is
// configured.
func (c *Config) VisualCrossingEnabled() bool {
	return c.VisualCrossingAPIKey != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

// parseCoordinate reads LATITUDE/LONGITUDE. Both must be set together; the
// Open-Meteo provider is enabled only when they are.
func parseCoordinate() (lat, lon float64, enabled bool, err error) {
	latStr := os.Getenv("LATITUDE")
	lonStr := os.Getenv("LONGITUDE")
	if latStr == "" && lonStr == "" {
		return 0, 0, false, nil
	}
	if latStr == "" || lonStr == "" {
		return 0, 0, false, errors.New("LATITUDE and LONGITUDE must be set together")
	}
	lat, err = strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false, fmt.Errorf("invalid LATITUDE: %q", latStr)
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, false, fmt.Errorf("invalid LONGITUDE: %q", lonStr)
	}
	return lat, lon, true, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
