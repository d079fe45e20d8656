package indicator

import "math"

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// The first bar has no previous close, so its range is high-low.
func TrueRange(high, low, close []float64) ([]float64, error) {
	if err := validateLengths("true range", high, low, close); err != nil {
		return nil, err
	}

	out := make([]float64, len(high))
	for t := range high {
		tr := high[t] - low[t]
		if t > 0 {
			tr = math.Max(tr, math.Abs(high[t]-close[t-1]))
			tr = math.Max(tr, math.Abs(low[t]-close[t-1]))
		}

		out[t] = tr
	}

	return out, nil
}

// ATR returns the simple rolling mean of the true range over period bars.
func ATR(high, low, close []float64, period int) ([]float64, error) {
	if err := validatePeriod("ATR", period); err != nil {
		return nil, err
	}

	tr, err := TrueRange(high, low, close)
	if err != nil {
		return nil, err
	}

	return SMA(tr, period)
}
