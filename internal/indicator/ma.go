package indicator

import "gonum.org/v1/gonum/stat"

// SMA returns the simple moving average over period values.
func SMA(values []float64, period int) ([]float64, error) {
	if err := validatePeriod("SMA", period); err != nil {
		return nil, err
	}

	out := nanSeries(len(values))
	for t := period - 1; t < len(values); t++ {
		out[t] = stat.Mean(values[t-period+1:t+1], nil)
	}

	return out, nil
}

// MovingAverageDeviation returns SMA(period)/price - 1.
func MovingAverageDeviation(values []float64, period int) ([]float64, error) {
	ma, err := SMA(values, period)
	if err != nil {
		return nil, err
	}

	for t := range ma {
		ma[t] = ma[t]/values[t] - 1
	}

	return ma, nil
}
