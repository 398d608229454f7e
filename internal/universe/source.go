// Package universe provides the list of tickers a scan runs over.
package universe

import (
	"context"
	"errors"
	"strings"
)

// ErrUniverseUnavailable means the ticker list could not be obtained. A scan
// cannot start without it.
var ErrUniverseUnavailable = errors.New("ticker universe unavailable")

// Source returns normalized, deduplicated ticker symbols.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Name() string
}

// Normalize converts exchange class-share notation to the provider's form
// ("BRK.B" -> "BRK-B") and trims surrounding whitespace.
func Normalize(symbol string) string {
	return strings.ReplaceAll(strings.TrimSpace(symbol), ".", "-")
}

// NormalizeAll normalizes every symbol, dropping blanks and later duplicates.
func NormalizeAll(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		n := Normalize(s)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
