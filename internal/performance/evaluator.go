// Package performance summarizes a strategy ledger into its statistics record.
package performance

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/indicator"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
)

const (
	TradingDaysPerYear  = indicator.TradingDaysPerYear
	TradingDaysPerMonth = 21
	// MinObservations is the fewest finite returns that produce statistics.
	MinObservations = 10

	volatilityEpsilon = 1e-12
	quarterWindow     = 63
	yearWindow        = 252
)

// Evaluation is the outcome of Evaluate.
type Evaluation struct {
	Stats   types.PerformanceStats
	Rolling types.RollingStats
	// Observations is the number of finite returns.
	Observations int
	// Degenerate is true when too few returns existed and Stats is all zero.
	Degenerate bool
}

// Evaluate computes the statistics of a run. returns excludes the equity seed
// day; equity and positions include it.
func Evaluate(returns, equity, positions []float64) Evaluation {
	valid := finite(returns)

	eval := Evaluation{Observations: len(valid)}
	if len(valid) < MinObservations {
		eval.Degenerate = true

		return eval
	}

	n := float64(len(valid))

	eval.Stats = types.PerformanceStats{
		CAGR:             cagr(equity, n),
		Sharpe:           Sharpe(valid),
		MaxDrawdown:      MaxDrawdown(equity),
		WinRate:          WinRate(valid),
		AvgHoldingPeriod: AverageHoldingPeriod(positions),
		MonthlyTurnover:  MonthlyTurnover(positions, n),
	}

	eval.Rolling = types.RollingStats{
		SharpeAnnualized: AnnualizedSharpe(valid),
		Sharpe3M:   trailingSharpe(valid, quarterWindow),
		Sharpe12M:  trailingSharpe(valid, yearWindow),
		WinRate12M: WinRate(tail(valid, yearWindow)),
	}

	return eval
}

func cagr(equity []float64, n float64) float64 {
	if len(equity) == 0 {
		return 0
	}

	final := equity[len(equity)-1]
	if final <= 0 || !indicator.IsFinite(final) {
		return -1
	}

	return math.Pow(final, TradingDaysPerYear/n) - 1
}

// Sharpe returns mean/std of daily returns, using the population standard
// deviation. Volatility below 1e-12 gives 0.
func Sharpe(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	mean, std := stat.PopMeanStdDev(returns, nil)
	if std < volatilityEpsilon || !indicator.IsFinite(std) {
		return 0
	}

	return mean / std
}

// AnnualizedSharpe scales Sharpe by the square root of 252.
func AnnualizedSharpe(returns []float64) float64 {
	return Sharpe(returns) * math.Sqrt(TradingDaysPerYear)
}

// MaxDrawdown returns min(equity/running max - 1), which is never positive.
func MaxDrawdown(equity []float64) float64 {
	drawdown := 0.0
	peak := math.Inf(-1)

	for _, e := range equity {
		if !indicator.IsFinite(e) {
			continue
		}

		peak = math.Max(peak, e)
		if peak > 0 {
			drawdown = math.Min(drawdown, e/peak-1)
		}
	}

	return drawdown
}

// WinRate returns the share of strictly positive returns.
func WinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}

	return float64(wins) / float64(len(returns))
}

// AverageHoldingPeriod returns the mean length of consecutive long runs.
func AverageHoldingPeriod(positions []float64) float64 {
	runs, days, current := 0, 0, 0

	for _, p := range positions {
		if p > 0 {
			current++

			continue
		}

		if current > 0 {
			runs++
			days += current
			current = 0
		}
	}

	if current > 0 {
		runs++
		days += current
	}

	if runs == 0 {
		return 0
	}

	return float64(days) / float64(runs)
}

// MonthlyTurnover returns sum(|Δposition|)/2 divided by max(1, n/21).
func MonthlyTurnover(positions []float64, n float64) float64 {
	total := 0.0
	for t := 1; t < len(positions); t++ {
		total += math.Abs(positions[t] - positions[t-1])
	}

	return total / 2 / math.Max(1, n/TradingDaysPerMonth)
}

func trailingSharpe(returns []float64, window int) float64 {
	window = min(window, len(returns))
	if window < MinObservations {
		return 0
	}

	return AnnualizedSharpe(tail(returns, window))
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}

	return values[len(values)-n:]
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if indicator.IsFinite(v) {
			out = append(out, v)
		}
	}

	return out
}
