package indicator

import "gonum.org/v1/gonum/stat"

// RSI returns the relative strength index using simple rolling means of gains
// and losses over period price changes.
//
// When the window has no losses the index is 100. A window with neither gains
// nor losses has no defined index and yields NaN.
func RSI(values []float64, period int) ([]float64, error) {
	if err := validatePeriod("RSI", period); err != nil {
		return nil, err
	}

	out := nanSeries(len(values))
	if len(values) <= period {
		return out, nil
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))

	for t := 1; t < len(values); t++ {
		change := values[t] - values[t-1]
		if change > 0 {
			gains[t] = change
		} else {
			losses[t] = -change
		}
	}

	for t := period; t < len(values); t++ {
		avgGain := stat.Mean(gains[t-period+1:t+1], nil)
		avgLoss := stat.Mean(losses[t-period+1:t+1], nil)

		switch {
		case avgLoss == 0 && avgGain == 0:
			continue
		case avgLoss == 0:
			out[t] = 100
		default:
			out[t] = 100 - 100/(1+avgGain/avgLoss)
		}
	}

	return out, nil
}
