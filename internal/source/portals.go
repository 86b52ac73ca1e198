package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"priceflow/config"
	"priceflow/internal/series"
	"priceflow/logger"
)

// PortalsAdapter extracts the tracked asset's current USD price from the
// provider's token search endpoint and emits a single point stamped at the
// adapter's invocation time.
type PortalsAdapter struct {
	cfg    config.SnapshotConfig
	token  string
	client *http.Client
	log    *logger.Log
}

func NewPortalsAdapter(cfg config.SnapshotConfig, token string) *PortalsAdapter {
	return &PortalsAdapter{
		cfg:    cfg,
		token:  strings.ToUpper(token),
		client: newSnapshotClient(cfg),
		log:    logger.GetLogger(),
	}
}

func (a *PortalsAdapter) ID() ID {
	return SnapshotAPIC
}

type portalsToken struct {
	Symbol   string  `json:"symbol"`
	PriceUSD float64 `json:"price_usd"`
}

func (a *PortalsAdapter) Snapshot(ctx context.Context) ([]series.PricePoint, error) {
	body, err := getSnapshot(ctx, a.client, a.cfg)
	if err != nil {
		return nil, err
	}

	var tokens []portalsToken
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	for _, item := range tokens {
		if strings.ToUpper(item.Symbol) != a.token {
			continue
		}
		point := series.PricePoint{
			Timestamp: time.Now().UTC(),
			Price:     item.PriceUSD,
		}
		a.log.WithComponent("portals_adapter").WithFields(logger.Fields{
			"symbol": a.token,
			"price":  point.Price,
		}).Info("fetched portals token price")
		return []series.PricePoint{point}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, a.token)
}
