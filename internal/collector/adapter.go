package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"MarketScreener/internal/model"
)

// ErrUnavailable is the only error the Adapter returns. The provider had no
// data for the ticker, the ticker is invalid, or the request failed.
var ErrUnavailable = errors.New("series unavailable")

// Adapter wraps a Fetcher and turns every failure into ErrUnavailable.
type Adapter struct {
	fetcher Fetcher
	now     func() time.Time
}

// NewAdapter creates an Adapter over the given provider.
func NewAdapter(f Fetcher) *Adapter {
	return &Adapter{fetcher: f, now: time.Now}
}

// Name returns the underlying provider name.
func (a *Adapter) Name() string { return a.fetcher.Name() }

// Fetch returns the close series of symbol over lookback. A non-nil error
// always matches ErrUnavailable; panics in the provider are recovered.
func (a *Adapter) Fetch(ctx context.Context, symbol string, lookback model.Lookback) (series model.PriceSeries, err error) {
	series = model.PriceSeries{Symbol: symbol}
	defer func() {
		if r := recover(); r != nil {
			series = model.PriceSeries{Symbol: symbol}
			err = fmt.Errorf("%w: %s: provider panic: %v", ErrUnavailable, symbol, r)
		}
	}()

	bars, ferr := a.fetcher.FetchDailyBars(ctx, symbol, lookback)
	if ferr != nil {
		return series, fmt.Errorf("%w: %s: %v", ErrUnavailable, symbol, ferr)
	}

	series = ToSeries(symbol, bars, a.now())
	if series.Empty() {
		return series, fmt.Errorf("%w: %s: no data", ErrUnavailable, symbol)
	}
	return series, nil
}

// ToSeries converts provider bars into a PriceSeries: bars with a missing or
// non-positive close are dropped, points are ordered by date, and for
// duplicate dates the later bar wins.
func ToSeries(symbol string, bars []model.OHLCV, fetchedAt time.Time) model.PriceSeries {
	valid := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 || math.IsNaN(b.Close) || math.IsInf(b.Close, 0) {
			continue
		}
		valid = append(valid, b)
	}
	sort.SliceStable(valid, func(i, j int) bool { return valid[i].Time.Before(valid[j].Time) })

	points := make([]model.PricePoint, 0, len(valid))
	for _, b := range valid {
		p := model.PricePoint{Date: b.Time, Close: b.Close}
		if n := len(points); n > 0 && sameDay(points[n-1].Date, b.Time) {
			points[n-1] = p
			continue
		}
		points = append(points, p)
	}
	return model.PriceSeries{Symbol: symbol, Points: points, FetchedAt: fetchedAt}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
