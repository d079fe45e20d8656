package feature

import (
	"time"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// Target is the forward return over a fixed horizon: adj[t+h]/adj[t] - 1.
// It is defined only for dates whose horizon end lies inside the series.
type Target struct {
	horizon int
	values  map[int64]float64
	ends    map[int64]time.Time
	dates   []time.Time
}

// BuildTarget computes the forward-return target for horizon h.
func BuildTarget(series types.BarSeries, horizon int) (*Target, error) {
	if horizon <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "horizon must be a positive integer, got %d", horizon)
	}

	if horizon >= series.Len() {
		return nil, errors.Wrapf(errors.ErrCodeInvalidHorizon,
			errors.NewInsufficientDataErrorf(horizon+1, series.Len(), series.Symbol,
				"%d bars available, %d required", series.Len(), horizon+1),
			"horizon %d needs more than %d bars of history for %s", horizon, series.Len(), series.Symbol)
	}

	n := series.Len() - horizon
	target := &Target{
		horizon: horizon,
		values:  make(map[int64]float64, n),
		ends:    make(map[int64]time.Time, n),
		dates:   make([]time.Time, 0, n),
	}

	for t := 0; t < n; t++ {
		bar := series.Bars[t]
		end := series.Bars[t+horizon]
		key := types.DateKey(bar.Date)

		target.values[key] = end.AdjustedClose/bar.AdjustedClose - 1
		target.ends[key] = end.Date
		target.dates = append(target.dates, bar.Date)
	}

	return target, nil
}

// Horizon returns h.
func (t *Target) Horizon() int {
	return t.horizon
}

// Len returns the number of defined dates.
func (t *Target) Len() int {
	return len(t.dates)
}

// Dates returns a copy of the defined dates.
func (t *Target) Dates() []time.Time {
	return append([]time.Time(nil), t.dates...)
}

// Value returns the target at date.
func (t *Target) Value(date time.Time) (float64, bool) {
	v, ok := t.values[types.DateKey(date)]

	return v, ok
}

// EndDate returns the date whose price realizes the target at date.
func (t *Target) EndDate(date time.Time) (time.Time, bool) {
	end, ok := t.ends[types.DateKey(date)]

	return end, ok
}
