package datasource

import (
	"context"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
)

// BarSource delivers the daily bar history of one instrument, ascending by
// date. A symbol without bars yields an error carrying ErrCodeMissingData.
type BarSource interface {
	Bars(ctx context.Context, symbol string) (types.BarSeries, error)
}

// SymbolLister is implemented by sources that can enumerate their instruments.
type SymbolLister interface {
	Symbols(ctx context.Context) ([]string, error)
}
