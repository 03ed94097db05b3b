// Package weather implements tempsource.Provider for the supported weather
// vendors. All vendors share one HTTP client with a durable response cache;
// each vendor contributes only its request construction and response
// parsing, so the fetch-cache-parse flow exists exactly once.
package weather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/utility-usage-etl/internal/adapter/cachedb"
	"github.com/couchcryptid/utility-usage-etl/internal/domain"
	"github.com/couchcryptid/utility-usage-etl/internal/observability"
)

// Vendor describes one weather API: how to build the history request for a
// date, and how to reduce the raw response body to that day's summary.
// ParseResponse reports ok=false when the response is valid but carries no
// temperature data for the date.
type Vendor interface {
	Name() string
	NewRequest(ctx context.Context, date time.Time) (*http.Request, error)
	ParseResponse(body []byte, date time.Time) (temp domain.Temp, ok bool, err error)
}

// Client implements tempsource.Provider for any Vendor. Raw response bodies
// are cached durably by date, so each date hits the live API at most once
// across runs; parsing always happens on the cached bytes, keeping cached
// and fresh paths identical.
//
// Date preconditions (strictly past dates only) are enforced by the
// aggregator, not here.
type Client struct {
	vendor     Vendor
	bucket     *cachedb.Bucket
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a cached client for vendor, backed by the vendor's own
// bucket in store.
func NewClient(vendor Vendor, store *cachedb.Store, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) (*Client, error) {
	bucket, err := store.Bucket(vendor.Name())
	if err != nil {
		return nil, err
	}
	return &Client{
		vendor:     vendor,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Name returns the vendor name.
func (c *Client) Name() string {
	return c.vendor.Name()
}

// History returns the vendor's summary for date, fetching from the live API
// only when the date is not cached yet.
func (c *Client) History(ctx context.Context, date time.Time) (domain.Temp, bool, error) {
	day := domain.DayNumber(date)

	body, hit, err := c.bucket.Get(ctx, day)
	if err != nil {
		return domain.Temp{}, false, err
	}
	if hit {
		c.metrics.CacheLookups.WithLabelValues(c.Name(), "hit").Inc()
	} else {
		c.metrics.CacheLookups.WithLabelValues(c.Name(), "miss").Inc()
		body, err = c.fetch(ctx, date)
		if err != nil {
			c.metrics.ProviderRequests.WithLabelValues(c.Name(), "error").Inc()
			return domain.Temp{}, false, err
		}
		if err := c.bucket.Put(ctx, day, body); err != nil {
			return domain.Temp{}, false, err
		}
	}

	temp, ok, err := c.vendor.ParseResponse(body, date)
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(c.Name(), "error").Inc()
		return domain.Temp{}, false, fmt.Errorf("parse %s response: %w", c.Name(), err)
	}
	if !ok {
		c.metrics.ProviderRequests.WithLabelValues(c.Name(), "empty").Inc()
		c.logger.Warn("no temperature data", "provider", c.Name(), "date", date.Format(time.DateOnly))
		return domain.Temp{}, false, nil
	}
	c.metrics.ProviderRequests.WithLabelValues(c.Name(), "success").Inc()
	return temp, true, nil
}

func (c *Client) fetch(ctx context.Context, date time.Time) ([]byte, error) {
	req, err := c.vendor.NewRequest(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", c.Name(), err)
	}

	c.logger.Info("calling weather API", "provider", c.Name(), "date", date.Format(time.DateOnly), "host", req.URL.Host)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", c.Name(), err)
	}
	defer resp.Body.Close()
	c.metrics.ProviderAPIDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error: status %d: %s", c.Name(), resp.StatusCode, body)
	}
	return body, nil
}
