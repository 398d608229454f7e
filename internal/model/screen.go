package model

import "time"

// Classification is the RSI signal bucket of a ticker.
type Classification string

const (
	Oversold   Classification = "Oversold"
	Neutral    Classification = "Neutral"
	Overbought Classification = "Overbought"
)

// Thresholds are the RSI bounds separating the buckets.
type Thresholds struct {
	Oversold   float64 `yaml:"oversold" json:"oversold"`
	Overbought float64 `yaml:"overbought" json:"overbought"`
}

// DefaultThresholds are the classic 30/70 RSI bounds.
var DefaultThresholds = Thresholds{Oversold: 30, Overbought: 70}

// Classify buckets an RSI value: below Oversold, above Overbought, Neutral
// otherwise (bounds inclusive).
func (t Thresholds) Classify(rsi float64) Classification {
	switch {
	case rsi < t.Oversold:
		return Oversold
	case rsi > t.Overbought:
		return Overbought
	default:
		return Neutral
	}
}

// SortKey selects the field a report is ordered by.
type SortKey string

const (
	SortByRSI      SortKey = "rsi"
	SortByDistance SortKey = "distance" // percent distance from the longest moving average
)

// Valid reports whether k is a known sort key.
func (k SortKey) Valid() bool {
	return k == SortByRSI || k == SortByDistance
}

// ScreenRecord is one row of a report. It is not modified once produced.
type ScreenRecord struct {
	Symbol     string         `json:"symbol"`
	Price      float64        `json:"price"`
	AsOf       time.Time      `json:"as_of"`
	Indicators IndicatorSet   `json:"indicators"`
	Status     Classification `json:"status"`
}

// Summary counts records per bucket. Oversold+Neutral+Overbought == Total.
type Summary struct {
	Oversold   int `json:"oversold"`
	Neutral    int `json:"neutral"`
	Overbought int `json:"overbought"`
	Total      int `json:"total"`
}

// ScreenReport is the ordered output of one scan.
type ScreenReport struct {
	Records     []ScreenRecord `json:"records"`
	Summary     Summary        `json:"summary"`
	SortKey     SortKey        `json:"sort_key"`
	Scanned     int            `json:"scanned"` // tickers in the universe
	Thresholds  Thresholds     `json:"thresholds"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// ScanStatus describes how a scan ended.
type ScanStatus string

const (
	ScanCompleted ScanStatus = "COMPLETED"
	ScanEmpty     ScanStatus = "EMPTY"
	ScanFailed    ScanStatus = "FAILED"
	ScanCancelled ScanStatus = "CANCELLED"
)

// ScanResult is what report consumers receive after a scan finishes.
type ScanResult struct {
	Status     ScanStatus    `json:"status"`
	Report     *ScreenReport `json:"report,omitempty"`
	Scanned    int           `json:"scanned"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}
