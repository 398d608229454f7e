package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"MarketScreener/internal/model"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// RESTFetcher implements Fetcher against a self-hosted bar service exposing
// GET /api/v1/bars/daily?symbol=..&limit=..
type RESTFetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewRESTFetcher creates a fetcher with optional bearer auth and proxy support.
func NewRESTFetcher(baseURL, apiKey string, opts Options) *RESTFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(retryTransient)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	if opts.Proxy != "" {
		client.SetProxy(opts.Proxy)
	}
	return &RESTFetcher{client: client, limiter: newLimiter(opts.RatePerSecond, opts.Burst)}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bar service.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (f *RESTFetcher) FetchDailyBars(ctx context.Context, symbol string, lookback model.Lookback) ([]model.OHLCV, error) {
	days := lookback.TradingDays()
	if days == 0 {
		return nil, fmt.Errorf("rest: unsupported lookback %q", lookback)
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rest rate limit wait: %w", err)
	}

	var raw []restBar
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"limit":  fmt.Sprint(days),
		}).
		SetResult(&raw).
		Get("/api/v1/bars/daily")
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode(), resp.String())
	}

	bars := make([]model.OHLCV, len(raw))
	for i, b := range raw {
		bars[i] = model.OHLCV{
			Time:   time.Unix(b.Timestamp, 0).UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
