// Package report orders screen records and summarizes them per bucket.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"MarketScreener/internal/model"
)

// ErrEmptyResult means the scan completed without a single eligible ticker.
var ErrEmptyResult = errors.New("no eligible tickers")

// Aggregate sorts records ascending by key, keeping input order for equal
// values, and counts them per classification. Records without a value for the
// key (no moving average when sorting by distance) go last.
func Aggregate(records []model.ScreenRecord, key model.SortKey) (*model.ScreenReport, error) {
	if len(records) == 0 {
		return nil, ErrEmptyResult
	}
	if !key.Valid() {
		return nil, fmt.Errorf("unknown sort key %q", key)
	}

	sorted := slices.Clone(records)
	SortRecords(sorted, key)

	return &model.ScreenReport{
		Records:     sorted,
		Summary:     Summarize(sorted),
		SortKey:     key,
		Scanned:     len(sorted),
		GeneratedAt: time.Now(),
	}, nil
}

// SortRecords stable-sorts records in place ascending by key.
func SortRecords(records []model.ScreenRecord, key model.SortKey) {
	slices.SortStableFunc(records, func(a, b model.ScreenRecord) int {
		av, aok := sortValue(a, key)
		bv, bok := sortValue(b, key)
		switch {
		case aok && bok:
			return cmp.Compare(av, bv)
		case aok:
			return -1
		case bok:
			return 1
		}
		return 0
	})
}

func sortValue(r model.ScreenRecord, key model.SortKey) (float64, bool) {
	if key == model.SortByDistance {
		ma, ok := r.Indicators.Longest()
		return ma.DistancePct, ok
	}
	return r.Indicators.RSI, true
}

// Summarize counts records per classification. Each record lands in exactly
// one bucket.
func Summarize(records []model.ScreenRecord) model.Summary {
	var s model.Summary
	for _, r := range records {
		switch r.Status {
		case model.Oversold:
			s.Oversold++
		case model.Overbought:
			s.Overbought++
		default:
			s.Neutral++
		}
	}
	s.Total = len(records)
	return s
}
