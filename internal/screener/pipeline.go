// Package screener runs the per-ticker indicator scan over a ticker universe.
package screener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"MarketScreener/internal/calculator"
	"MarketScreener/internal/model"
	"MarketScreener/internal/report"
	"MarketScreener/internal/universe"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// SeriesFetcher returns the close series of a ticker or an error meaning the
// ticker has no usable data.
type SeriesFetcher interface {
	Fetch(ctx context.Context, symbol string, lookback model.Lookback) (model.PriceSeries, error)
}

// UniverseSource lists the tickers to scan.
type UniverseSource interface {
	List(ctx context.Context) ([]string, error)
}

// ProgressFunc receives the number of tickers processed so far, skipped ones
// included. Calls are serialized and done never decreases.
type ProgressFunc func(done, total int)

// Fraction converts a progress count into the 0..1 fraction.
func Fraction(done, total int) float64 {
	if total <= 0 {
		return 1
	}
	return float64(done) / float64(total)
}

// Pipeline screens tickers with one fixed set of options.
type Pipeline struct {
	fetcher SeriesFetcher
	opts    Options
}

// New validates opts and creates a Pipeline.
func New(fetcher SeriesFetcher, opts Options) (*Pipeline, error) {
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan options: %w", err)
	}
	return &Pipeline{fetcher: fetcher, opts: opts}, nil
}

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

// ScanUniverse lists the universe and runs the scan over it. A universe
// failure is returned before any ticker is fetched.
func (p *Pipeline) ScanUniverse(ctx context.Context, src UniverseSource, progress ProgressFunc) (*model.ScreenReport, error) {
	symbols, err := src.List(ctx)
	if err != nil {
		if !errors.Is(err, universe.ErrUniverseUnavailable) {
			err = errors.Join(universe.ErrUniverseUnavailable, err)
		}
		return nil, err
	}
	return p.Run(ctx, symbols, progress)
}

// Run screens symbols in order and aggregates the produced records. It
// returns report.ErrEmptyResult when no ticker was eligible. When ctx is
// cancelled mid-scan it returns the report of the tickers finished so far (or
// nil) together with the context error.
func (p *Pipeline) Run(ctx context.Context, symbols []string, progress ProgressFunc) (*model.ScreenReport, error) {
	start := time.Now()
	outcomes, runErr := p.Collect(ctx, symbols, progress)

	records := make([]model.ScreenRecord, 0, len(outcomes))
	skipped := make(map[SkipReason]int)
	for _, o := range outcomes {
		if o.OK() {
			records = append(records, *o.Record)
			continue
		}
		skipped[o.Skip]++
	}

	evt := log.Info()
	for reason, n := range skipped {
		evt = evt.Int("skipped_"+string(reason), n)
	}
	evt.Int("records", len(records)).
		Int("tickers", len(symbols)).
		Dur("elapsed", time.Since(start).Round(time.Millisecond)).
		Msg("scan finished")

	rep, err := report.Aggregate(records, p.opts.SortBy)
	if rep != nil {
		rep.Scanned = len(symbols)
		rep.Thresholds = p.opts.Thresholds
	}
	if runErr != nil {
		return rep, runErr
	}
	return rep, err
}

// Collect screens every symbol and returns one outcome per symbol in input
// order. Tickers run on at most Concurrency workers; a failing ticker never
// stops the others. The only error is the context error after cancellation.
func (p *Pipeline) Collect(ctx context.Context, symbols []string, progress ProgressFunc) ([]Outcome, error) {
	total := len(symbols)
	outcomes := make([]Outcome, total)

	var mu sync.Mutex
	done := 0
	if progress != nil {
		progress(0, total)
	}
	advance := func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		if progress != nil {
			progress(done, total)
		}
	}

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				outcomes[i] = skip(symbol, SkipCancelled, ctx.Err())
				return nil
			}
			out := p.Screen(ctx, symbol)
			if !out.OK() && ctx.Err() != nil {
				out = skip(symbol, SkipCancelled, ctx.Err())
			} else {
				advance()
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range outcomes {
		if o.Symbol == "" {
			outcomes[i] = skip(symbols[i], SkipCancelled, ctx.Err())
		}
	}
	return outcomes, ctx.Err()
}

// Screen fetches and evaluates one ticker. Every path ends in a record or a
// skip; panics are recovered into SkipPanic.
func (p *Pipeline) Screen(ctx context.Context, symbol string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = skip(symbol, SkipPanic, fmt.Errorf("screen %s: panic: %v", symbol, r))
		}
		if !out.OK() {
			log.Debug().Str("symbol", symbol).Str("reason", string(out.Skip)).Err(out.Err).Msg("ticker skipped")
		}
	}()

	series, err := p.fetcher.Fetch(ctx, symbol, p.opts.Lookback)
	if err != nil {
		return skip(symbol, SkipUnavailable, err)
	}
	if n, need := series.Len(), p.opts.EligibleLength(); n < need {
		return skip(symbol, SkipShortHistory, fmt.Errorf("%s: %d closes, need %d", symbol, n, need))
	}

	rec, err := p.evaluate(symbol, series)
	if err != nil {
		return skip(symbol, SkipUndefined, err)
	}
	return ok(rec)
}

func (p *Pipeline) evaluate(symbol string, series model.PriceSeries) (model.ScreenRecord, error) {
	closes := series.Closes()
	last, _ := series.Last()

	rsi, err := calculator.CalculateRSI(closes, p.opts.RSIPeriod)
	if err != nil {
		return model.ScreenRecord{}, fmt.Errorf("rsi: %w", err)
	}
	// Classification and ordering use the two-decimal value that is reported.
	rsi = calculator.Round(rsi, 2)

	set := model.IndicatorSet{RSI: rsi, RSIPeriod: p.opts.RSIPeriod}
	for _, w := range p.opts.MAWindows {
		avg, err := calculator.CalculateSMA(closes, w)
		if err != nil {
			return model.ScreenRecord{}, fmt.Errorf("sma %d: %w", w, err)
		}
		abs, pct, err := calculator.CalculateDistance(last.Close, avg)
		if err != nil {
			return model.ScreenRecord{}, fmt.Errorf("distance from sma %d: %w", w, err)
		}
		set.MovingAverages = append(set.MovingAverages, model.MovingAverage{
			Window:      w,
			Value:       avg,
			Distance:    abs,
			DistancePct: pct,
		})
	}

	return model.ScreenRecord{
		Symbol:     symbol,
		Price:      last.Close,
		AsOf:       last.Date,
		Indicators: set,
		Status:     p.opts.Thresholds.Classify(rsi),
	}, nil
}
