package datasource

import (
	"context"
	"sort"
	"sync"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// InMemoryBarSource serves bar series held in memory. It is safe for
// concurrent use.
type InMemoryBarSource struct {
	mu     sync.RWMutex
	series map[string]types.BarSeries
}

// NewInMemoryBarSource creates a source holding the given series.
func NewInMemoryBarSource(series ...types.BarSeries) *InMemoryBarSource {
	source := &InMemoryBarSource{series: make(map[string]types.BarSeries, len(series))}
	for _, s := range series {
		source.Add(s)
	}

	return source
}

// Add stores or replaces the series of s.Symbol.
func (m *InMemoryBarSource) Add(s types.BarSeries) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bars := append([]types.PriceBar(nil), s.Bars...)
	m.series[s.Symbol] = types.BarSeries{Symbol: s.Symbol, Bars: bars}
}

// Bars implements BarSource. The returned bars are a copy.
func (m *InMemoryBarSource) Bars(ctx context.Context, symbol string) (types.BarSeries, error) {
	if err := ctx.Err(); err != nil {
		return types.BarSeries{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.series[symbol]
	if !ok || len(s.Bars) == 0 {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeMissingData, "no bars for symbol %s", symbol)
	}

	return types.BarSeries{Symbol: symbol, Bars: append([]types.PriceBar(nil), s.Bars...)}, nil
}

// Symbols implements SymbolLister.
func (m *InMemoryBarSource) Symbols(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	symbols := make([]string, 0, len(m.series))
	for symbol := range m.series {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols, nil
}
