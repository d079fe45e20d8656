package types

import (
	"math"
	"time"

	"github.com/moznion/go-optional"

	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// PriceBar is one daily bar. AdjustedClose drives every computation; the
// other prices only feed the true range.
type PriceBar struct {
	Date          time.Time `yaml:"date" json:"date"`
	Open          float64   `yaml:"open" json:"open"`
	High          float64   `yaml:"high" json:"high"`
	Low           float64   `yaml:"low" json:"low"`
	Close         float64   `yaml:"close" json:"close"`
	AdjustedClose float64   `yaml:"adjusted_close" json:"adjusted_close"`
	Volume        float64   `yaml:"volume" json:"volume"`
}

// BarSeries is the ordered daily history of one instrument.
type BarSeries struct {
	Symbol string
	Bars   []PriceBar
}

// Len returns the number of bars.
func (s BarSeries) Len() int {
	return len(s.Bars)
}

// Validate checks that dates are strictly increasing and adjusted closes are
// positive and finite.
func (s BarSeries) Validate() error {
	if len(s.Bars) == 0 {
		return errors.Newf(errors.ErrCodeMissingData, "no bars for symbol %s", s.Symbol)
	}

	for i, bar := range s.Bars {
		if math.IsNaN(bar.AdjustedClose) || math.IsInf(bar.AdjustedClose, 0) || bar.AdjustedClose <= 0 {
			return errors.Newf(errors.ErrCodeInvalidBarSeries,
				"%s: adjusted close %v on %s is not a positive number",
				s.Symbol, bar.AdjustedClose, bar.Date.Format(time.DateOnly))
		}

		if i > 0 && !bar.Date.After(s.Bars[i-1].Date) {
			return errors.Newf(errors.ErrCodeInvalidBarSeries,
				"%s: bar dates must be strictly increasing, %s follows %s",
				s.Symbol, bar.Date.Format(time.DateOnly), s.Bars[i-1].Date.Format(time.DateOnly))
		}
	}

	return nil
}

// Between returns the bars dated inside [start, end]. Absent bounds are open.
func (s BarSeries) Between(start, end optional.Option[time.Time]) BarSeries {
	filtered := make([]PriceBar, 0, len(s.Bars))

	for _, bar := range s.Bars {
		if start.IsSome() && bar.Date.Before(start.Unwrap()) {
			continue
		}

		if end.IsSome() && bar.Date.After(end.Unwrap()) {
			continue
		}

		filtered = append(filtered, bar)
	}

	return BarSeries{Symbol: s.Symbol, Bars: filtered}
}

// Dates returns the bar dates in order.
func (s BarSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Bars))
	for i, bar := range s.Bars {
		dates[i] = bar.Date
	}

	return dates
}

// AdjustedCloses returns the adjusted close column.
func (s BarSeries) AdjustedCloses() []float64 {
	return s.column(func(b PriceBar) float64 { return b.AdjustedClose })
}

// Highs returns the high column.
func (s BarSeries) Highs() []float64 {
	return s.column(func(b PriceBar) float64 { return b.High })
}

// Lows returns the low column.
func (s BarSeries) Lows() []float64 {
	return s.column(func(b PriceBar) float64 { return b.Low })
}

// Closes returns the raw close column.
func (s BarSeries) Closes() []float64 {
	return s.column(func(b PriceBar) float64 { return b.Close })
}

func (s BarSeries) column(pick func(PriceBar) float64) []float64 {
	values := make([]float64, len(s.Bars))
	for i, bar := range s.Bars {
		values[i] = pick(bar)
	}

	return values
}

// DateKey normalizes a date to the key used for date-indexed lookups.
func DateKey(t time.Time) int64 {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}
