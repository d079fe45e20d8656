package indicator

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

// RealizedVolatility returns the sample standard deviation of 1-day returns
// over period days, annualized by √252.
func RealizedVolatility(values []float64, period int) ([]float64, error) {
	if err := validatePeriod("volatility", period); err != nil {
		return nil, err
	}

	returns, err := SimpleReturns(values, 1)
	if err != nil {
		return nil, err
	}

	out := nanSeries(len(values))
	if period < 2 {
		return out, nil
	}

	scale := math.Sqrt(TradingDaysPerYear)
	for t := period; t < len(values); t++ {
		out[t] = stat.StdDev(returns[t-period+1:t+1], nil) * scale
	}

	return out, nil
}
