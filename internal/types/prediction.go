package types

import "time"

// Prediction is the model output for one date.
type Prediction struct {
	Date  time.Time
	Value float64
	// Fresh is true when the producing model was fitted at the boundary of the
	// period containing Date.
	Fresh bool
	// ModelDate is the refit boundary of the producing model. Zero when the
	// value was carried forward without a model.
	ModelDate time.Time
}

// HasModel reports whether a fitted model produced the value.
func (p Prediction) HasModel() bool {
	return !p.ModelDate.IsZero()
}
