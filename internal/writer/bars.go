package writer

import (
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// BarRecord is the on-disk layout of a daily bar. Its column names match what
// the DuckDB bar source queries.
type BarRecord struct {
	Symbol        string  `parquet:"symbol"`
	Date          int64   `parquet:"date,timestamp(millisecond)"` // Unix ms
	Open          float64 `parquet:"open"`
	High          float64 `parquet:"high"`
	Low           float64 `parquet:"low"`
	Close         float64 `parquet:"close"`
	AdjustedClose float64 `parquet:"adjusted_close"`
	Volume        float64 `parquet:"volume"`
}

// WriteBars writes the given series to one parquet file, ordered by symbol
// then date.
func WriteBars(path string, series ...types.BarSeries) error {
	var records []BarRecord

	for _, s := range series {
		for _, bar := range s.Bars {
			records = append(records, BarRecord{
				Symbol:        s.Symbol,
				Date:          bar.Date.UnixMilli(),
				Open:          bar.Open,
				High:          bar.High,
				Low:           bar.Low,
				Close:         bar.Close,
				AdjustedClose: bar.AdjustedClose,
				Volume:        bar.Volume,
			})
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Symbol != records[j].Symbol {
			return records[i].Symbol < records[j].Symbol
		}

		return records[i].Date < records[j].Date
	})

	if err := writeParquetFile(path, records); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to write bars to %s", path)
	}

	return nil
}

// ReadBars reads a bar file back into per-symbol series.
func ReadBars(path string) ([]types.BarSeries, error) {
	records, err := parquet.ReadFile[BarRecord](path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeResultReadFailed, err, "failed to read bars from %s", path)
	}

	bySymbol := map[string]*types.BarSeries{}
	var order []string

	for _, r := range records {
		s, ok := bySymbol[r.Symbol]
		if !ok {
			s = &types.BarSeries{Symbol: r.Symbol}
			bySymbol[r.Symbol] = s
			order = append(order, r.Symbol)
		}

		s.Bars = append(s.Bars, types.PriceBar{
			Date:          time.UnixMilli(r.Date).UTC(),
			Open:          r.Open,
			High:          r.High,
			Low:           r.Low,
			Close:         r.Close,
			AdjustedClose: r.AdjustedClose,
			Volume:        r.Volume,
		})
	}

	out := make([]types.BarSeries, len(order))
	for i, symbol := range order {
		out[i] = *bySymbol[symbol]
	}

	return out, nil
}
