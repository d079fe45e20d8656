// Package feature turns a daily bar series into the typed feature matrix and
// forward-return targets consumed by the walk-forward trainer.
package feature

import (
	"time"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/indicator"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// Index addresses a column of the feature matrix.
type Index int

// Feature columns, in matrix order.
const (
	Return1D Index = iota
	Return5D
	Return20D
	MA5Deviation
	MA20Deviation
	Momentum20D
	ATR14Normalized
	Volatility10D
	RSI14
	Count
)

var names = [Count]string{
	Return1D:        "ret_1d",
	Return5D:        "ret_5d",
	Return20D:       "ret_20d",
	MA5Deviation:    "ma5_dev",
	MA20Deviation:   "ma20_dev",
	Momentum20D:     "mom_20d",
	ATR14Normalized: "atr14_norm",
	Volatility10D:   "vol10",
	RSI14:           "rsi14",
}

// String returns the column name.
func (i Index) String() string {
	if i < 0 || i >= Count {
		return "unknown"
	}

	return names[i]
}

// Names returns the column names in matrix order.
func Names() []string {
	out := make([]string, Count)
	copy(out, names[:])

	return out
}

// Lookup resolves a column name to its index.
func Lookup(name string) (Index, error) {
	for i, n := range names {
		if n == name {
			return Index(i), nil
		}
	}

	return 0, errors.Newf(errors.ErrCodeFeatureNotFound, "unknown feature %q", name)
}

// Matrix is an immutable date-indexed feature matrix. Every row is complete
// and finite.
type Matrix struct {
	dates []time.Time
	rows  [][]float64
	index map[int64]int
}

// NewMatrix builds a matrix from rows of width Count with strictly increasing
// dates. Rows are copied.
func NewMatrix(dates []time.Time, rows [][]float64) (*Matrix, error) {
	if len(dates) != len(rows) {
		return nil, errors.Newf(errors.ErrCodeInvalidLength, "got %d dates for %d rows", len(dates), len(rows))
	}

	m := &Matrix{
		dates: make([]time.Time, len(dates)),
		rows:  make([][]float64, len(rows)),
		index: make(map[int64]int, len(dates)),
	}

	for i, row := range rows {
		if len(row) != int(Count) {
			return nil, errors.Newf(errors.ErrCodeInvalidLength, "row %d has %d columns, want %d", i, len(row), Count)
		}

		for _, v := range row {
			if !indicator.IsFinite(v) {
				return nil, errors.Newf(errors.ErrCodeIndicatorCalculation, "row %d holds a non-finite value", i)
			}
		}

		if i > 0 && !dates[i].After(dates[i-1]) {
			return nil, errors.Newf(errors.ErrCodeInvalidBarSeries, "row dates must be strictly increasing at %d", i)
		}

		m.dates[i] = dates[i]
		m.rows[i] = append([]float64(nil), row...)
		m.index[types.DateKey(dates[i])] = i
	}

	return m, nil
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return len(m.rows)
}

// Date returns the date of row i.
func (m *Matrix) Date(i int) time.Time {
	return m.dates[i]
}

// Dates returns a copy of the row dates.
func (m *Matrix) Dates() []time.Time {
	return append([]time.Time(nil), m.dates...)
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	return append([]float64(nil), m.rows[i]...)
}

// At returns a single cell.
func (m *Matrix) At(i int, column Index) float64 {
	return m.rows[i][column]
}

// IndexOf returns the row index for date.
func (m *Matrix) IndexOf(date time.Time) (int, bool) {
	i, ok := m.index[types.DateKey(date)]

	return i, ok
}

// Rows returns copies of the rows whose indices are given.
func (m *Matrix) Rows(indices []int) [][]float64 {
	out := make([][]float64, len(indices))
	for k, i := range indices {
		out[k] = m.Row(i)
	}

	return out
}
