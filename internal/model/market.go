package model

import "time"

// OHLCV represents a single daily candlestick bar as returned by a provider.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Lookback is the trailing calendar window requested from the price provider.
type Lookback string

const (
	Lookback3Months Lookback = "3mo"
	Lookback6Months Lookback = "6mo"
	Lookback1Year   Lookback = "1y"
	Lookback2Years  Lookback = "2y"
)

// Valid reports whether l is a lookback the providers understand.
func (l Lookback) Valid() bool {
	switch l {
	case Lookback3Months, Lookback6Months, Lookback1Year, Lookback2Years:
		return true
	}
	return false
}

// TradingDays is the approximate number of daily bars the window yields.
func (l Lookback) TradingDays() int {
	switch l {
	case Lookback3Months:
		return 63
	case Lookback6Months:
		return 126
	case Lookback1Year:
		return 252
	case Lookback2Years:
		return 504
	}
	return 0
}

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// PriceSeries holds the closes of one ticker in strictly increasing date order.
// An empty series means no data; it never contains zero-filled points.
type PriceSeries struct {
	Symbol    string
	Points    []PricePoint
	FetchedAt time.Time
}

// Len returns the number of points in the series.
func (s PriceSeries) Len() int { return len(s.Points) }

// Empty reports whether the series carries no data.
func (s PriceSeries) Empty() bool { return len(s.Points) == 0 }

// Closes returns the closing prices in chronological order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent point. ok is false for an empty series.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}
