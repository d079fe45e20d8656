package feature

import (
	"time"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/indicator"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
)

const (
	atrPeriod        = 14
	rsiPeriod        = 14
	volatilityPeriod = 10
)

// Build computes the feature matrix of a series. A row is emitted for a date
// only when every feature is defined and finite; other dates are dropped.
// Each value at date t reads prices dated t or earlier.
func Build(series types.BarSeries) (*Matrix, error) {
	adj := series.AdjustedCloses()

	columns := make([][]float64, Count)

	var err error
	if columns[Return1D], err = indicator.SimpleReturns(adj, 1); err != nil {
		return nil, err
	}

	if columns[Return5D], err = indicator.SimpleReturns(adj, 5); err != nil {
		return nil, err
	}

	if columns[Return20D], err = indicator.SimpleReturns(adj, 20); err != nil {
		return nil, err
	}

	if columns[MA5Deviation], err = indicator.MovingAverageDeviation(adj, 5); err != nil {
		return nil, err
	}

	if columns[MA20Deviation], err = indicator.MovingAverageDeviation(adj, 20); err != nil {
		return nil, err
	}

	// Same quantity as ret_20d, kept as its own column.
	if columns[Momentum20D], err = indicator.SimpleReturns(adj, 20); err != nil {
		return nil, err
	}

	high, low, closes := adjustedRanges(series)

	atr, err := indicator.ATR(high, low, closes, atrPeriod)
	if err != nil {
		return nil, err
	}

	for t := range atr {
		atr[t] /= adj[t]
	}

	columns[ATR14Normalized] = atr

	if columns[Volatility10D], err = indicator.RealizedVolatility(adj, volatilityPeriod); err != nil {
		return nil, err
	}

	rsi, err := indicator.RSI(adj, rsiPeriod)
	if err != nil {
		return nil, err
	}

	for t := range rsi {
		rsi[t] = (rsi[t] - 50) / 50
	}

	columns[RSI14] = rsi

	dates := make([]time.Time, 0, len(adj))
	rows := make([][]float64, 0, len(adj))

	for t := range adj {
		row := make([]float64, Count)
		complete := true

		for c := range columns {
			row[c] = columns[c][t]
			if !indicator.IsFinite(row[c]) {
				complete = false

				break
			}
		}

		if complete {
			dates = append(dates, series.Bars[t].Date)
			rows = append(rows, row)
		}
	}

	return NewMatrix(dates, rows)
}

// adjustedRanges rescales each bar's high, low and close by
// AdjustedClose/Close so the true range shares the adjusted price basis.
func adjustedRanges(series types.BarSeries) (high, low, closes []float64) {
	high = make([]float64, len(series.Bars))
	low = make([]float64, len(series.Bars))
	closes = make([]float64, len(series.Bars))

	for t, bar := range series.Bars {
		factor := 1.0
		if bar.Close > 0 {
			factor = bar.AdjustedClose / bar.Close
		}

		high[t] = bar.High * factor
		low[t] = bar.Low * factor
		closes[t] = bar.Close * factor
	}

	return high, low, closes
}
