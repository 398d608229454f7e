package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketScreener/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Bars   map[string][]model.OHLCV
	Errors map[string]error
	Panics map[string]bool

	mu    sync.Mutex
	calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, _ model.Lookback) ([]model.OHLCV, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()

	if m.Panics[symbol] {
		panic("mock provider panic for " + symbol)
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	bars, ok := m.Bars[symbol]
	if !ok {
		return nil, fmt.Errorf("mock: unknown symbol %s", symbol)
	}
	return bars, nil
}

// Calls returns the symbols requested so far, in call order.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// GenerateBars builds one daily bar per close, the last one dated end.
func GenerateBars(closes []float64, end time.Time) []model.OHLCV {
	count := len(closes)
	bars := make([]model.OHLCV, count)
	for i, c := range closes {
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - 1 - i)),
			Open:   c * 0.999,
			High:   c * 1.005,
			Low:    c * 0.995,
			Close:  c,
			Volume: 1000000,
		}
	}
	return bars
}
