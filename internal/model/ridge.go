// Package model fits the ridge regression used by the walk-forward trainer.
package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/indicator"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// StdEpsilon keeps standardization finite for zero-variance features.
const StdEpsilon = 1e-9

// conditionLimit is the Cholesky condition number above which the normal
// equations are solved with the pseudo-inverse instead.
const conditionLimit = 1e12

const pinvTolerance = 1e-10

// Model is a fitted ridge regression. It is never mutated after Fit returns.
type Model struct {
	// Weights holds one coefficient per feature, on standardized inputs.
	Weights []float64
	// Bias is the coefficient of the constant column. It is penalized like the weights.
	Bias float64
	Mean []float64
	Std  []float64
	// Rows is the number of training rows.
	Rows int
	// Singular is true when the pseudo-inverse fallback produced the weights.
	Singular bool
}

// Fit solves w = (XᵗX + λI)⁻¹Xᵗy on standardized x with a constant column
// appended. When the regularized normal matrix is singular or badly
// conditioned, the Moore-Penrose pseudo-inverse is used instead.
func Fit(x [][]float64, y []float64, lambda float64) (*Model, error) {
	if len(x) == 0 {
		return nil, errors.New(errors.ErrCodeInsufficientTrainingWindow, "no training rows")
	}

	if len(x) != len(y) {
		return nil, errors.Newf(errors.ErrCodeInvalidLength, "got %d rows and %d targets", len(x), len(y))
	}

	if lambda < 0 || math.IsNaN(lambda) {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "ridge lambda must be non-negative, got %v", lambda)
	}

	rows, features := len(x), len(x[0])
	for i, row := range x {
		if len(row) != features {
			return nil, errors.Newf(errors.ErrCodeInvalidLength, "row %d has %d columns, want %d", i, len(row), features)
		}
	}

	for i, v := range y {
		if !indicator.IsFinite(v) {
			return nil, errors.Newf(errors.ErrCodeModelFitFailed, "target %d is not finite", i)
		}
	}

	m := &Model{
		Mean: make([]float64, features),
		Std:  make([]float64, features),
		Rows: rows,
	}

	column := make([]float64, rows)
	for j := 0; j < features; j++ {
		for i := range x {
			column[i] = x[i][j]
		}

		m.Mean[j], m.Std[j] = stat.PopMeanStdDev(column, nil)
	}

	cols := features + 1
	design := mat.NewDense(rows, cols, nil)

	for i, row := range x {
		for j, v := range m.standardize(row) {
			design.Set(i, j, v)
		}

		design.Set(i, features, 1)
	}

	var gram mat.SymDense
	gram.SymOuterK(1, design.T())

	for j := 0; j < cols; j++ {
		gram.SetSym(j, j, gram.At(j, j)+lambda)
	}

	var rhs mat.VecDense
	rhs.MulVec(design.T(), mat.NewVecDense(rows, append([]float64(nil), y...)))

	weights, singular, err := solve(&gram, &rhs)
	if err != nil {
		return nil, err
	}

	m.Singular = singular
	m.Weights = make([]float64, features)

	for j := 0; j < features; j++ {
		m.Weights[j] = weights.AtVec(j)
	}

	m.Bias = weights.AtVec(features)

	return m, nil
}

func solve(gram *mat.SymDense, rhs *mat.VecDense) (*mat.VecDense, bool, error) {
	var chol mat.Cholesky
	if chol.Factorize(gram) && chol.Cond() < conditionLimit {
		var w mat.VecDense
		if err := chol.SolveVecTo(&w, rhs); err == nil {
			return &w, false, nil
		}
	}

	w, err := pseudoInverseSolve(gram, rhs)
	if err != nil {
		return nil, true, err
	}

	return w, true, nil
}

// pseudoInverseSolve returns A⁺b using the singular value decomposition.
// Singular values below pinvTolerance times the largest one count as zero.
func pseudoInverseSolve(a mat.Matrix, b *mat.VecDense) (*mat.VecDense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.New(errors.ErrCodeSingularTrainingMatrix, "singular value decomposition did not converge")
	}

	values := svd.Values(nil)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	_, c := a.Dims()
	tolerance := 0.0
	if len(values) > 0 {
		tolerance = values[0] * pinvTolerance
	}

	w := mat.NewVecDense(c, nil)
	for k, s := range values {
		if s <= tolerance {
			continue
		}

		coef := mat.Dot(u.ColView(k), b) / s
		w.AddScaledVec(w, coef, v.ColView(k))
	}

	return w, nil
}

// Predict evaluates the model on one raw feature row.
func (m *Model) Predict(row []float64) float64 {
	prediction := m.Bias
	for j, z := range m.standardize(row) {
		prediction += m.Weights[j] * z
	}

	return prediction
}

// PredictBatch evaluates the model on several rows.
func (m *Model) PredictBatch(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = m.Predict(row)
	}

	return out
}

func (m *Model) standardize(row []float64) []float64 {
	z := make([]float64, len(m.Mean))
	for j := range z {
		v := (row[j] - m.Mean[j]) / (m.Std[j] + StdEpsilon)
		if !indicator.IsFinite(v) {
			v = 0
		}

		z[j] = v
	}

	return z
}
