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

// CoinMarketCapAdapter extracts the tracked asset's current quote from the
// provider's listings endpoint and emits a single point stamped at the
// adapter's invocation time.
type CoinMarketCapAdapter struct {
	cfg    config.SnapshotConfig
	token  string
	client *http.Client
	log    *logger.Log
}

func NewCoinMarketCapAdapter(cfg config.SnapshotConfig, token string) *CoinMarketCapAdapter {
	return &CoinMarketCapAdapter{
		cfg:    cfg,
		token:  strings.ToUpper(token),
		client: newSnapshotClient(cfg),
		log:    logger.GetLogger(),
	}
}

func (a *CoinMarketCapAdapter) ID() ID {
	return SnapshotAPIB
}

type cmcListings struct {
	Data []struct {
		Symbol string `json:"symbol"`
		Quote  struct {
			USD struct {
				Price float64 `json:"price"`
			} `json:"USD"`
		} `json:"quote"`
	} `json:"data"`
}

func (a *CoinMarketCapAdapter) Snapshot(ctx context.Context) ([]series.PricePoint, error) {
	body, err := getSnapshot(ctx, a.client, a.cfg)
	if err != nil {
		return nil, err
	}

	var listings cmcListings
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	for _, item := range listings.Data {
		if strings.ToUpper(item.Symbol) != a.token {
			continue
		}
		point := series.PricePoint{
			Timestamp: time.Now().UTC(),
			Price:     item.Quote.USD.Price,
		}
		a.log.WithComponent("cmc_adapter").WithFields(logger.Fields{
			"symbol": a.token,
			"price":  point.Price,
		}).Info("fetched coinmarketcap quote")
		return []series.PricePoint{point}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, a.token)
}
