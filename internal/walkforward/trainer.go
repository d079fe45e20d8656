package walkforward

import (
	"time"

	"go.uber.org/zap"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/feature"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/logger"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/model"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// Config controls the refit schedule and the ridge fit.
type Config struct {
	// Lookback is the maximum number of training rows per refit.
	Lookback int
	// MinTrainRows is the smallest window that triggers a refit.
	MinTrainRows int
	// Lambda is the ridge penalty.
	Lambda float64
	// Cadence sets the refit boundaries.
	Cadence Cadence
	// PurgeOverlap also drops rows whose target ends on or after the boundary.
	PurgeOverlap bool
}

// DefaultConfig returns the monthly, 504-row, λ=1 configuration.
func DefaultConfig() Config {
	return Config{
		Lookback:     504,
		MinTrainRows: 100,
		Lambda:       1.0,
		Cadence:      CadenceMonthly,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Lookback <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "lookback must be positive, got %d", c.Lookback)
	}

	if c.MinTrainRows <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "minimum training rows must be positive, got %d", c.MinTrainRows)
	}

	if c.Lambda < 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "ridge lambda must be non-negative, got %v", c.Lambda)
	}

	return c.Cadence.Validate()
}

// FittedModel is a model together with the boundary it was fitted at.
type FittedModel struct {
	Boundary time.Time
	Model    *model.Model
}

// Result is the outcome of one walk-forward pass.
type Result struct {
	// Predictions has one entry per feature-matrix row, in date order.
	Predictions []types.Prediction
	Models      []FittedModel
	Diagnostics types.ModelDiagnostics
}

// Trainer runs the walk-forward refit loop.
type Trainer struct {
	config Config
	log    *logger.Logger
}

// NewTrainer validates config and creates a trainer.
func NewTrainer(config Config, log *logger.Logger) (*Trainer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Trainer{config: config, log: log}, nil
}

// Config returns the trainer configuration.
func (t *Trainer) Config() Config {
	return t.config
}

// Run fits a model at every boundary using only rows dated strictly before it
// and predicts each date of the period that follows. Dates before the first
// fitted model take the last known prediction, starting at 0.
func (t *Trainer) Run(matrix *feature.Matrix, target *feature.Target) (Result, error) {
	dates := matrix.Dates()

	boundaries, err := Schedule(dates, t.config.Cadence)
	if err != nil {
		return Result{}, err
	}

	// Rows that can be trained on, ascending by date.
	labelled := make([]int, 0, matrix.Len())
	labels := make([]float64, 0, matrix.Len())

	for i, date := range dates {
		if y, ok := target.Value(date); ok {
			labelled = append(labelled, i)
			labels = append(labels, y)
		}
	}

	result := Result{
		Predictions: make([]types.Prediction, len(dates)),
		Diagnostics: types.ModelDiagnostics{Boundaries: len(boundaries)},
	}

	var (
		cursor     lastKnown
		active     *model.Model
		activeDate time.Time
	)

	fill := func(from, to int, fresh bool) {
		for i := from; i < to; i++ {
			p := types.Prediction{Date: dates[i]}

			if active != nil {
				p.Value = active.Predict(matrix.Row(i))
				p.Fresh = fresh
				p.ModelDate = activeDate
				cursor.advance(p.Value)
			} else {
				p.Value = cursor.current()
			}

			result.Predictions[i] = p
		}
	}

	firstBoundary := len(dates)
	if len(boundaries) > 0 {
		firstBoundary, _ = matrix.IndexOf(boundaries[0])
	}

	fill(0, firstBoundary, false)

	for k, boundary := range boundaries {
		from, _ := matrix.IndexOf(boundary)
		to := len(dates)

		if k+1 < len(boundaries) {
			to, _ = matrix.IndexOf(boundaries[k+1])
		}

		x, y := t.window(matrix, target, labelled, labels, from, boundary)

		fresh := false

		if len(x) < t.config.MinTrainRows {
			result.Diagnostics.SkippedRefits++
			t.log.Debug("Skipping refit, training window too small",
				zap.Time("boundary", boundary),
				zap.Int("rows", len(x)),
				zap.Int("required", t.config.MinTrainRows),
			)
		} else {
			fitted, err := model.Fit(x, y, t.config.Lambda)
			if err != nil {
				return Result{}, errors.Wrapf(errors.ErrCodeModelFitFailed, err,
					"failed to fit model at %s", boundary.Format(time.DateOnly))
			}

			if fitted.Singular {
				result.Diagnostics.SingularFits++
				t.log.Warn("Training matrix is singular, used pseudo-inverse",
					zap.Time("boundary", boundary),
					zap.Int("rows", fitted.Rows),
				)
			}

			active = fitted
			activeDate = boundary
			fresh = true
			result.Diagnostics.Refits++
			result.Models = append(result.Models, FittedModel{Boundary: boundary, Model: fitted})
		}

		fill(from, to, fresh)
	}

	if len(dates) > 0 {
		freshCount := 0

		for _, p := range result.Predictions {
			if p.Fresh {
				freshCount++
			}
		}

		result.Diagnostics.FreshFraction = float64(freshCount) / float64(len(dates))
	}

	return result, nil
}

// window selects the last Lookback labelled rows dated before the boundary
// row. labelled holds matrix row indices in ascending order.
func (t *Trainer) window(
	matrix *feature.Matrix,
	target *feature.Target,
	labelled []int,
	labels []float64,
	boundaryRow int,
	boundary time.Time,
) ([][]float64, []float64) {
	end := 0
	for end < len(labelled) && labelled[end] < boundaryRow {
		end++
	}

	var (
		indices []int
		y       []float64
	)

	for k := end - 1; k >= 0 && len(indices) < t.config.Lookback; k-- {
		if t.config.PurgeOverlap {
			targetEnd, _ := target.EndDate(matrix.Date(labelled[k]))
			if !targetEnd.Before(boundary) {
				continue
			}
		}

		indices = append(indices, labelled[k])
		y = append(y, labels[k])
	}

	// restore ascending order
	for i, j := 0, len(indices)-1; i < j; i, j = i+1, j-1 {
		indices[i], indices[j] = indices[j], indices[i]
		y[i], y[j] = y[j], y[i]
	}

	return matrix.Rows(indices), y
}

// Align maps predictions onto dates. A date without a prediction carries the
// last known value forward, starting at 0, and is never marked fresh.
func Align(predictions []types.Prediction, dates []time.Time) []types.Prediction {
	byDate := make(map[int64]types.Prediction, len(predictions))
	for _, p := range predictions {
		byDate[types.DateKey(p.Date)] = p
	}

	var cursor lastKnown

	aligned := make([]types.Prediction, len(dates))
	for i, date := range dates {
		if p, ok := byDate[types.DateKey(date)]; ok {
			p.Date = date
			aligned[i] = p
			cursor.advance(p.Value)

			continue
		}

		aligned[i] = types.Prediction{Date: date, Value: cursor.current()}
	}

	return aligned
}
