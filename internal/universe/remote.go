package universe

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultURL is the S&P 500 constituents page; its first table has a Symbol column.
const DefaultURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Format of a remote universe document.
type Format string

const (
	FormatHTML Format = "html"
	FormatCSV  Format = "csv"
)

// RemoteSource fetches the universe from an HTML table or CSV document.
type RemoteSource struct {
	URL    string
	Format Format
	Column string
	client *resty.Client
}

// NewRemoteSource creates a remote universe source.
func NewRemoteSource(url string, format Format, column, proxy string) *RemoteSource {
	if url == "" {
		url = DefaultURL
	}
	if column == "" {
		column = "Symbol"
	}
	client := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; MarketScreener/1.0)").
		SetRetryCount(2)
	if proxy != "" {
		client.SetProxy(proxy)
	}
	return &RemoteSource{URL: url, Format: format, Column: column, client: client}
}

// Name identifies the document and column, so cached snapshots follow a
// changed URL.
func (s *RemoteSource) Name() string {
	return "remote:" + string(s.Format) + ":" + s.URL + "#" + s.Column
}

// List downloads and parses the universe. Every failure wraps ErrUniverseUnavailable.
func (s *RemoteSource) List(ctx context.Context) ([]string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrUniverseUnavailable, s.URL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: fetch %s: status %d", ErrUniverseUnavailable, s.URL, resp.StatusCode())
	}

	var raw []string
	body := bytes.NewReader(resp.Body())
	switch s.Format {
	case FormatCSV:
		raw, err = ParseCSV(body, s.Column)
	default:
		raw, err = ParseHTMLTable(body, s.Column)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUniverseUnavailable, err)
	}

	symbols := NormalizeAll(raw)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: %s listed no symbols", ErrUniverseUnavailable, s.URL)
	}
	return symbols, nil
}
