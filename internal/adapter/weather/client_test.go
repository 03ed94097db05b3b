package weather

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/utility-usage-etl/internal/adapter/cachedb"
	"github.com/couchcryptid/utility-usage-etl/internal/observability"
)

const vcBody = `{
	"locations": {
		"Boston,MA": {
			"values": [{"mint": 31.2, "temp": 40.1, "maxt": 47.9}]
		}
	}
}`

func testStore(t *testing.T) *cachedb.Store {
	t.Helper()
	store, err := cachedb.Open(filepath.Join(t.TempDir(), "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testClient(t *testing.T, vendor Vendor) *Client {
	t.Helper()
	c, err := NewClient(vendor, testStore(t), 5*time.Second, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting())
	require.NoError(t, err)
	return c
}

func TestClient_FetchesThenServesFromCache(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "2024-05-01T00:00:00", r.URL.Query().Get("startDateTime"))
		assert.Equal(t, "us", r.URL.Query().Get("unitGroup"))
		w.Write([]byte(vcBody))
	}))
	defer srv.Close()

	vendor := NewVisualCrossing("Boston,MA", "test-key")
	vendor.BaseURL = srv.URL
	client := testClient(t, vendor)

	ctx := context.Background()
	day := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	temp, ok, err := client.History(ctx, day)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 31.2, temp.Min, 1e-9)
	assert.InDelta(t, 40.1, temp.Mean, 1e-9)
	assert.InDelta(t, 47.9, temp.Max, 1e-9)

	again, ok, err := client.History(ctx, day)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, temp, again)
	assert.Equal(t, 1, hits, "second lookup must be served from the cache")
}

func TestClient_CachePersistsAcrossClients(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Write([]byte(vcBody))
	}))
	defer srv.Close()

	store := testStore(t)
	vendor := NewVisualCrossing("Boston,MA", "test-key")
	vendor.BaseURL = srv.URL

	logger := slog.New(slog.DiscardHandler)
	metrics := observability.NewMetricsForTesting()
	day := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	first, err := NewClient(vendor, store, 5*time.Second, logger, metrics)
	require.NoError(t, err)
	_, ok, err := first.History(context.Background(), day)
	require.NoError(t, err)
	require.True(t, ok)

	second, err := NewClient(vendor, store, 5*time.Second, logger, metrics)
	require.NoError(t, err)
	_, ok, err = second.History(context.Background(), day)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1, hits, "a fresh client over the same store must not re-fetch")
}

func TestClient_HTTPErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	vendor := NewVisualCrossing("Boston,MA", "test-key")
	vendor.BaseURL = srv.URL
	client := testClient(t, vendor)

	_, _, err := client.History(context.Background(), time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestClient_ErrorResponseIsNotCached(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits == 1 {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		w.Write([]byte(vcBody))
	}))
	defer srv.Close()

	vendor := NewVisualCrossing("Boston,MA", "test-key")
	vendor.BaseURL = srv.URL
	client := testClient(t, vendor)

	ctx := context.Background()
	day := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := client.History(ctx, day)
	require.Error(t, err)

	_, ok, err := client.History(ctx, day)
	require.NoError(t, err, "retry after a transport failure must go back to the API")
	assert.True(t, ok)
	assert.Equal(t, 2, hits)
}

func TestClient_ParseErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	vendor := NewVisualCrossing("Boston,MA", "test-key")
	vendor.BaseURL = srv.URL
	client := testClient(t, vendor)

	_, _, err := client.History(context.Background(), time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse visual_crossing response")
}

func TestClient_NoDataIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"locations": {}}`))
	}))
	defer srv.Close()

	vendor := NewVisualCrossing("Boston,MA", "test-key")
	vendor.BaseURL = srv.URL
	client := testClient(t, vendor)

	_, ok, err := client.History(context.Background(), time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)
}
