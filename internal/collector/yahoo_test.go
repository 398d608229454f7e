package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"MarketScreener/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{"chart":{"result":[{"timestamp":[1700000000,1700086400,1700172800,1700259200],
"indicators":{"quote":[{"open":[1,2,null,4],"high":[1,2,null,4],"low":[1,2,null,4],
"close":[10.5,11.5,null,12.5],"volume":[100,200,null,400]}]}}],"error":null}}`

func newChartServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var last http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = *r
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestYahooFetcher_FetchDailyBars(t *testing.T) {
	srv, last := newChartServer(t, http.StatusOK, chartBody)
	f := NewYahooFetcher(Options{BaseURL: srv.URL})

	bars, err := f.FetchDailyBars(context.Background(), "BRK-B", model.Lookback3Months)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, 10.5, bars[0].Close)
	assert.Equal(t, 12.5, bars[2].Close)

	assert.Equal(t, "/BRK-B", last.URL.Path)
	assert.Equal(t, "1d", last.URL.Query().Get("interval"))
	assert.Equal(t, "3mo", last.URL.Query().Get("range"))
}

func TestYahooFetcher_SymbolMap(t *testing.T) {
	srv, last := newChartServer(t, http.StatusOK, chartBody)
	f := NewYahooFetcher(Options{BaseURL: srv.URL})

	_, err := f.FetchDailyBars(context.Background(), "SPX", model.Lookback1Year)
	require.NoError(t, err)
	assert.Equal(t, "/^GSPC", last.URL.Path)
	assert.Equal(t, "1y", last.URL.Query().Get("range"))
}

func TestYahooFetcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Bad","description":"bad request"}}}`},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newChartServer(t, tt.status, tt.body)
			f := NewYahooFetcher(Options{BaseURL: srv.URL})
			_, err := f.FetchDailyBars(context.Background(), "ZZZZ", model.Lookback3Months)
			assert.Error(t, err)
		})
	}
}

func TestYahooFetcher_InvalidLookback(t *testing.T) {
	f := NewYahooFetcher(Options{BaseURL: "http://127.0.0.1:1"})
	_, err := f.FetchDailyBars(context.Background(), "AAPL", model.Lookback("5d"))
	assert.Error(t, err)
}

func TestRESTFetcher_FetchDailyBars(t *testing.T) {
	var auth, limit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		limit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"timestamp":1700086400,"close":11},{"timestamp":1700000000,"close":10}]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", Options{})
	bars, err := f.FetchDailyBars(context.Background(), "MSFT", model.Lookback1Year)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 10.0, bars[0].Close)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "252", limit)
}
