package indicator

// SimpleReturns returns values[t]/values[t-lag] - 1. The first lag entries are NaN.
func SimpleReturns(values []float64, lag int) ([]float64, error) {
	if err := validatePeriod("return", lag); err != nil {
		return nil, err
	}

	out := nanSeries(len(values))
	for t := lag; t < len(values); t++ {
		out[t] = values[t]/values[t-lag] - 1
	}

	return out, nil
}
