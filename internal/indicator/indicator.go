// Package indicator computes causal technical series over daily prices.
//
// Every function returns a slice aligned with its input. Positions whose
// lookback is not yet satisfied hold NaN, so callers can drop incomplete rows
// without tracking warm-up lengths.
package indicator

import (
	"math"

	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

func validatePeriod(name string, period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "%s period must be a positive integer, got %d", name, period)
	}

	return nil
}

func validateLengths(name string, columns ...[]float64) error {
	for _, column := range columns[1:] {
		if len(column) != len(columns[0]) {
			return errors.Newf(errors.ErrCodeInvalidLength,
				"%s inputs must have equal length, got %d and %d", name, len(columns[0]), len(column))
		}
	}

	return nil
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
