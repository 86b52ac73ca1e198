package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"priceflow/config"
	"priceflow/internal/series"
	"priceflow/logger"
)

// CoinGeckoAdapter reads the daily market chart for the tracked asset. The
// provider returns a window of daily prices; when DropLatest is set the
// newest point (today's still-moving observation) is discarded.
type CoinGeckoAdapter struct {
	cfg    config.SnapshotConfig
	client *http.Client
	log    *logger.Log
}

func NewCoinGeckoAdapter(cfg config.SnapshotConfig) *CoinGeckoAdapter {
	return &CoinGeckoAdapter{
		cfg:    cfg,
		client: newSnapshotClient(cfg),
		log:    logger.GetLogger(),
	}
}

func (a *CoinGeckoAdapter) ID() ID {
	return SnapshotAPIA
}

type coinGeckoChart struct {
	Prices [][]float64 `json:"prices"`
}

func (a *CoinGeckoAdapter) Snapshot(ctx context.Context) ([]series.PricePoint, error) {
	body, err := getSnapshot(ctx, a.client, a.cfg)
	if err != nil {
		return nil, err
	}

	var chart coinGeckoChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(chart.Prices) == 0 {
		return nil, fmt.Errorf("%w: empty price chart", ErrAssetNotFound)
	}

	points := make([]series.PricePoint, 0, len(chart.Prices))
	for _, pair := range chart.Prices {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: short price pair", ErrMalformedPayload)
		}
		points = append(points, series.PricePoint{
			Timestamp: time.UnixMilli(int64(pair[0])).UTC(),
			Price:     pair[1],
		})
	}

	if a.cfg.DropLatest && len(points) > 1 {
		points = points[:len(points)-1]
	}

	a.log.WithComponent("coingecko_adapter").WithFields(logger.Fields{
		"points":      len(points),
		"drop_latest": a.cfg.DropLatest,
	}).Info("fetched coingecko market chart")
	return points, nil
}
