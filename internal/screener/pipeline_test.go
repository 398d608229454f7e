package screener

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"MarketScreener/internal/collector"
	"MarketScreener/internal/model"
	"MarketScreener/internal/report"
	"MarketScreener/internal/universe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func linear(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func zigzag(base float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = base
		} else {
			out[i] = base + 1
		}
	}
	return out
}

func newPipeline(t *testing.T, m *collector.MockFetcher, opts Options) *Pipeline {
	t.Helper()
	p, err := New(collector.NewAdapter(m), opts)
	require.NoError(t, err)
	return p
}

func rsiOptions() Options {
	opts, _ := ProfileOptions(ProfileRSI)
	return opts
}

func TestScreen_RisingIsOverbought(t *testing.T) {
	m := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"UP": collector.GenerateBars(linear(100, 1, 15), asOf),
	}}
	out := newPipeline(t, m, rsiOptions()).Screen(context.Background(), "UP")
	require.True(t, out.OK())
	assert.Equal(t, 100.0, out.Record.Indicators.RSI)
	assert.Equal(t, model.Overbought, out.Record.Status)
	assert.Equal(t, 114.0, out.Record.Price)
	assert.True(t, out.Record.AsOf.Equal(asOf))
}

func TestScreen_FallingIsOversold(t *testing.T) {
	m := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"DOWN": collector.GenerateBars(linear(100, -1, 15), asOf),
	}}
	out := newPipeline(t, m, rsiOptions()).Screen(context.Background(), "DOWN")
	require.True(t, out.OK())
	assert.Equal(t, 0.0, out.Record.Indicators.RSI)
	assert.Equal(t, model.Oversold, out.Record.Status)
}

func TestScreen_SkipReasons(t *testing.T) {
	m := &collector.MockFetcher{
		Bars: map[string][]model.OHLCV{
			"SHORT": collector.GenerateBars(linear(100, 1, 14), asOf),
		},
		Errors: map[string]error{"GONE": errors.New("delisted")},
		Panics: map[string]bool{"BOOM": true},
	}
	p := newPipeline(t, m, rsiOptions())

	tests := []struct {
		symbol string
		reason SkipReason
	}{
		{"SHORT", SkipShortHistory},
		{"GONE", SkipUnavailable},
		{"BOOM", SkipUnavailable},
		{"MISSING", SkipUnavailable},
	}
	for _, tt := range tests {
		out := p.Screen(context.Background(), tt.symbol)
		assert.False(t, out.OK(), tt.symbol)
		assert.Equal(t, tt.reason, out.Skip, tt.symbol)
	}
}

type panickyFetcher struct{}

func (panickyFetcher) Fetch(context.Context, string, model.Lookback) (model.PriceSeries, error) {
	panic("unexpected")
}

func TestScreen_RecoversPanicOutsideAdapter(t *testing.T) {
	p, err := New(panickyFetcher{}, rsiOptions())
	require.NoError(t, err)
	out := p.Screen(context.Background(), "X")
	assert.Equal(t, SkipPanic, out.Skip)
}

func TestScreen_MovingAverages(t *testing.T) {
	closes := append(linear(10, 0, 200), 12)
	m := &collector.MockFetcher{Bars: map[string][]model.OHLCV{"MA": collector.GenerateBars(closes, asOf)}}
	opts, err := ProfileOptions(ProfileDMA)
	require.NoError(t, err)

	out := newPipeline(t, m, opts).Screen(context.Background(), "MA")
	require.True(t, out.OK())
	mas := out.Record.Indicators.MovingAverages
	require.Len(t, mas, 3)
	assert.Equal(t, []int{50, 100, 200}, []int{mas[0].Window, mas[1].Window, mas[2].Window})

	ma200 := mas[2]
	assert.InDelta(t, (199*10.0+12)/200, ma200.Value, 1e-9)
	assert.InDelta(t, 12-ma200.Value, ma200.Distance, 1e-9)
	assert.InDelta(t, 100*(12-ma200.Value)/ma200.Value, ma200.DistancePct, 1e-9)
}

func TestScreen_DMAProfileNeedsLongHistory(t *testing.T) {
	m := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"YOUNG": collector.GenerateBars(zigzag(50, 200), asOf),
	}}
	opts, _ := ProfileOptions(ProfileDMA)
	out := newPipeline(t, m, opts).Screen(context.Background(), "YOUNG")
	assert.Equal(t, SkipShortHistory, out.Skip)
}

func TestRun_OneFailureDoesNotStopBatch(t *testing.T) {
	for _, workers := range []int{1, 4} {
		m := &collector.MockFetcher{
			Bars: map[string][]model.OHLCV{
				"A": collector.GenerateBars(linear(100, 1, 30), asOf),
				"C": collector.GenerateBars(zigzag(50, 30), asOf),
				"D": collector.GenerateBars(linear(100, -1, 30), asOf),
			},
			Errors: map[string]error{"B": errors.New("rate limited")},
		}
		opts := rsiOptions()
		opts.Concurrency = workers
		rep, err := newPipeline(t, m, opts).Run(context.Background(), []string{"A", "B", "C", "D"}, nil)
		require.NoError(t, err)
		assert.Len(t, rep.Records, 3, "workers=%d", workers)
		assert.Equal(t, 4, rep.Scanned)
		assert.Equal(t, model.DefaultThresholds, rep.Thresholds)
		assert.Equal(t, model.Summary{Oversold: 1, Neutral: 1, Overbought: 1, Total: 3}, rep.Summary)
		assert.Equal(t, "D", rep.Records[0].Symbol)
		assert.Equal(t, "A", rep.Records[2].Symbol)
	}
}

func TestRun_SequentialKeepsInputOrder(t *testing.T) {
	bars := collector.GenerateBars(zigzag(20, 20), asOf)
	m := &collector.MockFetcher{Bars: map[string][]model.OHLCV{"Z": bars, "Y": bars, "X": bars}}
	rep, err := newPipeline(t, m, rsiOptions()).Run(context.Background(), []string{"Z", "Y", "X"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Z", "Y", "X"}, m.Calls())
	// equal RSI: stable sort keeps input order
	assert.Equal(t, "Z", rep.Records[0].Symbol)
	assert.Equal(t, "X", rep.Records[2].Symbol)
}

func TestRun_ConcurrentMatchesSequential(t *testing.T) {
	bars := map[string][]model.OHLCV{}
	var syms []string
	for i := 0; i < 20; i++ {
		sym := string(rune('A' + i))
		syms = append(syms, sym)
		bars[sym] = collector.GenerateBars(append(zigzag(50, 20), linear(50, float64(i%5-2), 10)...), asOf)
	}
	seqOpts := rsiOptions()
	parOpts := rsiOptions()
	parOpts.Concurrency = 8

	seq, err := newPipeline(t, &collector.MockFetcher{Bars: bars}, seqOpts).Run(context.Background(), syms, nil)
	require.NoError(t, err)
	par, err := newPipeline(t, &collector.MockFetcher{Bars: bars}, parOpts).Run(context.Background(), syms, nil)
	require.NoError(t, err)
	assert.Equal(t, seq.Records, par.Records)
	assert.Equal(t, seq.Summary, par.Summary)
}

func TestRun_ProgressMonotonic(t *testing.T) {
	m := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"A": collector.GenerateBars(linear(100, 1, 30), asOf),
		"C": collector.GenerateBars(linear(100, 1, 30), asOf),
	}}
	opts := rsiOptions()
	opts.Concurrency = 3

	var mu sync.Mutex
	var fractions []float64
	_, err := newPipeline(t, m, opts).Run(context.Background(), []string{"A", "B", "C", "D", "E"}, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		fractions = append(fractions, Fraction(done, total))
	})
	require.NoError(t, err)

	require.Len(t, fractions, 6)
	assert.Equal(t, 0.0, fractions[0])
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
}

func TestRun_EmptyUniverse(t *testing.T) {
	rep, err := newPipeline(t, &collector.MockFetcher{}, rsiOptions()).Run(context.Background(), nil, nil)
	assert.ErrorIs(t, err, report.ErrEmptyResult)
	assert.Nil(t, rep)
}

func TestRun_AllIneligible(t *testing.T) {
	m := &collector.MockFetcher{
		Bars:   map[string][]model.OHLCV{"SHORT": collector.GenerateBars(linear(1, 1, 5), asOf)},
		Errors: map[string]error{"ERR": errors.New("boom")},
	}
	rep, err := newPipeline(t, m, rsiOptions()).Run(context.Background(), []string{"SHORT", "ERR"}, nil)
	assert.ErrorIs(t, err, report.ErrEmptyResult)
	assert.Nil(t, rep)
}

// cancellingFetcher cancels the scan once it has served n symbols.
type cancellingFetcher struct {
	inner  *collector.Adapter
	cancel context.CancelFunc
	n      int
	served int
}

func (f *cancellingFetcher) Fetch(ctx context.Context, symbol string, lb model.Lookback) (model.PriceSeries, error) {
	f.served++
	s, err := f.inner.Fetch(ctx, symbol, lb)
	if f.served == f.n {
		f.cancel()
	}
	return s, err
}

func TestRun_CancelledKeepsPartialResults(t *testing.T) {
	bars := collector.GenerateBars(linear(100, 1, 20), asOf)
	m := &collector.MockFetcher{Bars: map[string][]model.OHLCV{"A": bars, "B": bars, "C": bars, "D": bars}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &cancellingFetcher{inner: collector.NewAdapter(m), cancel: cancel, n: 2}
	p, err := New(f, rsiOptions())
	require.NoError(t, err)

	outcomes, err := p.Collect(ctx, []string{"A", "B", "C", "D"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, outcomes, 4)
	assert.True(t, outcomes[0].OK())
	assert.True(t, outcomes[1].OK())
	assert.Equal(t, SkipCancelled, outcomes[2].Skip)
	assert.Equal(t, SkipCancelled, outcomes[3].Skip)
	assert.Equal(t, []string{"A", "B"}, m.Calls())
}

func TestScanUniverse_UniverseUnavailable(t *testing.T) {
	m := &collector.MockFetcher{}
	p := newPipeline(t, m, rsiOptions())
	_, err := p.ScanUniverse(context.Background(), failingSource{}, nil)
	assert.ErrorIs(t, err, universe.ErrUniverseUnavailable)
	assert.Empty(t, m.Calls())
}

func TestScanUniverse_NormalizedSymbolsAreFetched(t *testing.T) {
	m := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"BRK-B": collector.GenerateBars(linear(300, 1, 20), asOf),
	}}
	rep, err := newPipeline(t, m, rsiOptions()).ScanUniverse(context.Background(), universe.NewStaticSource([]string{"BRK.B"}), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"BRK-B"}, m.Calls())
	assert.Equal(t, "BRK-B", rep.Records[0].Symbol)
}

type failingSource struct{}

func (failingSource) List(context.Context) ([]string, error) { return nil, errors.New("table fetch failed") }

func TestOptions_Validate(t *testing.T) {
	opts := rsiOptions()
	opts.MinHistory = 10
	assert.Error(t, opts.Validate())

	opts = rsiOptions()
	opts.SortBy = model.SortByDistance
	assert.Error(t, opts.Validate())

	full, err := ProfileOptions(ProfileFull)
	require.NoError(t, err)
	assert.NoError(t, full.Validate())
	assert.Equal(t, 201, full.EligibleLength())
	assert.Equal(t, 15, rsiOptions().EligibleLength())

	_, err = ProfileOptions("weekly")
	assert.Error(t, err)
}
