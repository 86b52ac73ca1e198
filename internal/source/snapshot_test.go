package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"priceflow/config"
)

func snapshotConfig(url string) config.SnapshotConfig {
	return config.SnapshotConfig{URL: url, Timeout: 5 * time.Second}
}

func TestCoinGeckoSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":[[1706745600000,2250.5],[1706832000000,2301.25],[1706918400000,2280.0]]}`))
	}))
	defer server.Close()

	a := NewCoinGeckoAdapter(snapshotConfig(server.URL))
	points, err := a.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].Price != 2250.5 {
		t.Errorf("unexpected first price: %v", points[0].Price)
	}
	if points[0].Timestamp != time.UnixMilli(1706745600000).UTC() {
		t.Errorf("unexpected first timestamp: %v", points[0].Timestamp)
	}
}

func TestCoinGeckoDropLatest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":[[1706745600000,2250.5],[1706832000000,2301.25]]}`))
	}))
	defer server.Close()

	cfg := snapshotConfig(server.URL)
	cfg.DropLatest = true

	a := NewCoinGeckoAdapter(cfg)
	points, err := a.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected newest point dropped, got %d points", len(points))
	}
	if points[0].Price != 2250.5 {
		t.Errorf("wrong point kept: %v", points[0].Price)
	}
}

func TestCoinGeckoEmptyChart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prices":[]}`))
	}))
	defer server.Close()

	a := NewCoinGeckoAdapter(snapshotConfig(server.URL))
	if _, err := a.Snapshot(context.Background()); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestCoinMarketCapSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"symbol":"BTC","quote":{"USD":{"price":43000.1}}},{"symbol":"ETH","quote":{"USD":{"price":2295.75}}}]}`))
	}))
	defer server.Close()

	a := NewCoinMarketCapAdapter(snapshotConfig(server.URL), "eth")
	before := time.Now().UTC()
	points, err := a.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected exactly one point, got %d", len(points))
	}
	if points[0].Price != 2295.75 {
		t.Errorf("unexpected price: %v", points[0].Price)
	}
	if points[0].Timestamp.Before(before) {
		t.Errorf("point should be stamped at invocation time")
	}
}

func TestCoinMarketCapMissingAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"symbol":"BTC","quote":{"USD":{"price":43000.1}}}]}`))
	}))
	defer server.Close()

	a := NewCoinMarketCapAdapter(snapshotConfig(server.URL), "ETH")
	if _, err := a.Snapshot(context.Background()); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestPortalsSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"symbol":"WETH","price_usd":2290.0},{"symbol":"ETH","price_usd":2292.5}]`))
	}))
	defer server.Close()

	a := NewPortalsAdapter(snapshotConfig(server.URL), "ETH")
	points, err := a.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(points) != 1 || points[0].Price != 2292.5 {
		t.Fatalf("unexpected points: %+v", points)
	}
}

func TestSnapshotUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	a := NewPortalsAdapter(snapshotConfig(server.URL), "ETH")
	if _, err := a.Snapshot(context.Background()); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestSnapshotMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tokens":`))
	}))
	defer server.Close()

	a := NewCoinGeckoAdapter(snapshotConfig(server.URL))
	if _, err := a.Snapshot(context.Background()); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestSnapshotAPIKeyHeader(t *testing.T) {
	t.Setenv("TEST_SNAPSHOT_KEY", "secret-key")

	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		w.Write([]byte(`[{"symbol":"ETH","price_usd":1.0}]`))
	}))
	defer server.Close()

	cfg := snapshotConfig(server.URL)
	cfg.APIKeyHeader = "X-Api-Key"
	cfg.APIKeyEnv = "TEST_SNAPSHOT_KEY"

	a := NewPortalsAdapter(cfg, "ETH")
	if _, err := a.Snapshot(context.Background()); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if gotKey != "secret-key" {
		t.Errorf("api key header not sent, got %q", gotKey)
	}
}
