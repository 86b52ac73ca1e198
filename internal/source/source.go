package source

import (
	"context"
	"errors"

	"priceflow/internal/series"
)

// ID identifies one upstream price-data provider. The set is closed;
// dispatch on it with an exhaustive switch rather than a runtime lookup.
type ID string

const (
	// BulkArchive is the historical kline archive source.
	BulkArchive ID = "bulk-archive"
	// SnapshotAPIA is the CoinGecko market-chart source.
	SnapshotAPIA ID = "snapshot-api-a"
	// SnapshotAPIB is the CoinMarketCap listings source.
	SnapshotAPIB ID = "snapshot-api-b"
	// SnapshotAPIC is the Portals.fi tokens source.
	SnapshotAPIC ID = "snapshot-api-c"
)

// All returns every supported source.
func All() []ID {
	return []ID{BulkArchive, SnapshotAPIA, SnapshotAPIB, SnapshotAPIC}
}

// Parse maps a request string to a source identifier.
func Parse(s string) (ID, bool) {
	switch ID(s) {
	case BulkArchive, SnapshotAPIA, SnapshotAPIB, SnapshotAPIC:
		return ID(s), true
	default:
		return "", false
	}
}

var (
	// ErrUpstream marks a transport failure or non-success response from a
	// provider. Not retried; fatal for the refresh pass.
	ErrUpstream = errors.New("upstream request failed")
	// ErrAssetNotFound marks a well-formed provider response that does not
	// contain the tracked asset.
	ErrAssetNotFound = errors.New("asset not found in provider response")
	// ErrMalformedPayload marks a provider payload that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed provider payload")
)

// SnapshotAdapter issues a single authenticated request against its provider
// and returns the observed price points, oldest first. Most providers yield
// exactly one point stamped at invocation time.
type SnapshotAdapter interface {
	ID() ID
	Snapshot(ctx context.Context) ([]series.PricePoint, error)
}
