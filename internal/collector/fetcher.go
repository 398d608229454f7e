package collector

import (
	"context"

	"MarketScreener/internal/model"
)

// Fetcher defines the interface for fetching daily price history from a provider.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, lookback model.Lookback) ([]model.OHLCV, error)
	Name() string
}
