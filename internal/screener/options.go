package screener

import (
	"errors"
	"fmt"
	"sort"

	"MarketScreener/internal/model"
)

// Profile names a preset combination of lookback and indicators.
type Profile string

const (
	ProfileRSI  Profile = "rsi"  // RSI only over three months
	ProfileDMA  Profile = "dma"  // RSI plus 50/100/200-day averages over one year
	ProfileFull Profile = "full" // same indicators as dma, sorted by distance from the 200-day average
)

// Options parameterizes one scan.
type Options struct {
	Lookback    model.Lookback
	RSIPeriod   int
	MAWindows   []int
	MinHistory  int // 0 means the smallest eligible length
	SortBy      model.SortKey
	Concurrency int // 1 processes tickers sequentially
	Thresholds  model.Thresholds
}

// ProfileOptions returns the preset options for p.
func ProfileOptions(p Profile) (Options, error) {
	opts := Options{
		Lookback:    model.Lookback3Months,
		RSIPeriod:   14,
		SortBy:      model.SortByRSI,
		Concurrency: 1,
		Thresholds:  model.DefaultThresholds,
	}
	switch p {
	case ProfileRSI, "":
	case ProfileDMA:
		opts.Lookback = model.Lookback1Year
		opts.MAWindows = []int{50, 100, 200}
	case ProfileFull:
		opts.Lookback = model.Lookback1Year
		opts.MAWindows = []int{50, 100, 200}
		opts.SortBy = model.SortByDistance
	default:
		return Options{}, fmt.Errorf("unknown scan profile %q", p)
	}
	return opts, nil
}

// RequiredHistory is the smallest series length for which every configured
// indicator is defined: max(RSI period, largest window) + 1.
func (o Options) RequiredHistory() int {
	n := o.RSIPeriod
	for _, w := range o.MAWindows {
		if w > n {
			n = w
		}
	}
	return n + 1
}

// EligibleLength is the effective minimum series length.
func (o Options) EligibleLength() int {
	if req := o.RequiredHistory(); o.MinHistory < req {
		return req
	}
	return o.MinHistory
}

// Normalize returns a copy with defaults applied and MAWindows sorted.
func (o Options) Normalize() Options {
	if o.RSIPeriod == 0 {
		o.RSIPeriod = 14
	}
	if o.Lookback == "" {
		o.Lookback = model.Lookback3Months
	}
	if o.SortBy == "" {
		o.SortBy = model.SortByRSI
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Thresholds == (model.Thresholds{}) {
		o.Thresholds = model.DefaultThresholds
	}
	o.MAWindows = append([]int(nil), o.MAWindows...)
	sort.Ints(o.MAWindows)
	return o
}

// Validate checks option consistency.
func (o Options) Validate() error {
	var errs []error
	if !o.Lookback.Valid() {
		errs = append(errs, fmt.Errorf("unsupported lookback %q", o.Lookback))
	}
	if o.RSIPeriod <= 0 {
		errs = append(errs, errors.New("rsi period must be positive"))
	}
	for _, w := range o.MAWindows {
		if w <= 0 {
			errs = append(errs, fmt.Errorf("moving average window %d must be positive", w))
		}
	}
	if o.MinHistory != 0 && o.MinHistory < o.RequiredHistory() {
		errs = append(errs, fmt.Errorf("min history %d is below the required %d", o.MinHistory, o.RequiredHistory()))
	}
	if !o.SortBy.Valid() {
		errs = append(errs, fmt.Errorf("unknown sort key %q", o.SortBy))
	}
	if o.SortBy == model.SortByDistance && len(o.MAWindows) == 0 {
		errs = append(errs, errors.New("sorting by distance needs at least one moving average window"))
	}
	if o.Thresholds.Oversold > o.Thresholds.Overbought {
		errs = append(errs, errors.New("oversold threshold above overbought threshold"))
	}
	if o.Concurrency < 0 {
		errs = append(errs, errors.New("concurrency must not be negative"))
	}
	return errors.Join(errs...)
}
