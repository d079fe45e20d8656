// Package strategy turns predictions into a long/flat position series and
// accounts for its daily returns, costs and equity.
package strategy

import (
	"math"
	"time"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// BasisPoint converts basis points to a fraction.
const BasisPoint = 1e-4

// Day is one row of the strategy ledger.
type Day struct {
	Date       time.Time
	Prediction float64
	// Position decided at the close of Date: 1 long, 0 flat.
	Position float64
	// Exposure is the previous day's position, the one that earns RawReturn.
	Exposure float64
	// Trade is |Position - previous Position|.
	Trade     float64
	RawReturn float64
	Cost      float64
	Return    float64
	Equity    float64
	Fresh     bool
}

// Result is the full strategy ledger. Days[0] seeds the equity curve at 1.0
// and carries no return.
type Result struct {
	Days []Day
}

// Construct applies the long/flat rule to predictions aligned one-to-one with
// the bars of series. costBps is charged per unit of position change.
func Construct(series types.BarSeries, predictions []types.Prediction, costBps float64) (Result, error) {
	if costBps < 0 || costBps >= 1/BasisPoint {
		return Result{}, errors.Newf(errors.ErrCodeInvalidCostRate, "cost must be in [0, 10000) bps, got %v", costBps)
	}

	if len(predictions) != series.Len() {
		return Result{}, errors.Newf(errors.ErrCodeMisalignedSeries,
			"got %d predictions for %d bars", len(predictions), series.Len())
	}

	rate := costBps * BasisPoint
	days := make([]Day, series.Len())

	for t, bar := range series.Bars {
		p := predictions[t]
		if types.DateKey(p.Date) != types.DateKey(bar.Date) {
			return Result{}, errors.Newf(errors.ErrCodeMisalignedSeries,
				"prediction dated %s does not match bar dated %s",
				p.Date.Format(time.DateOnly), bar.Date.Format(time.DateOnly))
		}

		d := Day{
			Date:       bar.Date,
			Prediction: p.Value,
			Position:   positionFor(p.Value),
			Fresh:      p.Fresh,
		}

		if t == 0 {
			d.Trade = d.Position
			d.Equity = 1

			days[t] = d

			continue
		}

		prev := days[t-1]
		d.Exposure = prev.Position
		d.Trade = math.Abs(d.Position - prev.Position)
		d.RawReturn = bar.AdjustedClose/series.Bars[t-1].AdjustedClose - 1
		d.Cost = d.Trade * rate
		d.Return = d.Exposure*d.RawReturn - d.Cost
		d.Equity = prev.Equity * (1 + d.Return)

		days[t] = d
	}

	return Result{Days: days}, nil
}

func positionFor(prediction float64) float64 {
	if prediction > 0 {
		return 1
	}

	return 0
}

// Dates returns the ledger dates.
func (r Result) Dates() []time.Time {
	out := make([]time.Time, len(r.Days))
	for i, d := range r.Days {
		out[i] = d.Date
	}

	return out
}

// Returns returns the daily returns after the seed day.
func (r Result) Returns() []float64 {
	if len(r.Days) < 2 {
		return nil
	}

	out := make([]float64, len(r.Days)-1)
	for i, d := range r.Days[1:] {
		out[i] = d.Return
	}

	return out
}

// Equity returns the equity curve including the 1.0 seed.
func (r Result) Equity() []float64 {
	out := make([]float64, len(r.Days))
	for i, d := range r.Days {
		out[i] = d.Equity
	}

	return out
}

// Positions returns the position series.
func (r Result) Positions() []float64 {
	out := make([]float64, len(r.Days))
	for i, d := range r.Days {
		out[i] = d.Position
	}

	return out
}
