package universe

import (
	"context"
	_ "embed"
	"strings"
)

//go:embed default_universe.txt
var defaultUniverse string

// StaticSource serves a fixed list of symbols.
type StaticSource struct {
	symbols []string
}

// NewStaticSource normalizes symbols once. With no symbols it serves the
// embedded default list.
func NewStaticSource(symbols []string) *StaticSource {
	if len(symbols) == 0 {
		symbols = strings.Fields(defaultUniverse)
	}
	return &StaticSource{symbols: NormalizeAll(symbols)}
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) List(_ context.Context) ([]string, error) {
	return append([]string(nil), s.symbols...), nil
}
