package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
)

// DataGenerator generates daily bar series for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// Symbol is the instrument (e.g., "SPY")
	Symbol string
	// StartDate is the first trading day; weekends are skipped
	StartDate time.Time
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting adjusted close
	InitialPrice float64
	// Volatility is the daily return standard deviation (0.01 = 1%)
	Volatility float64
	// Drift is the mean daily return
	Drift float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "TEST",
		StartDate:      time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		Count:          1000,
		InitialPrice:   100.0,
		Volatility:     0.01,
		Drift:          0.0003,
		VolumeBase:     1_000_000,
		VolumeVariance: 0.3,
	}
}

// Generate creates a bar series following a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) types.BarSeries {
	dates := TradingDays(config.StartDate, config.Count)
	bars := make([]types.PriceBar, config.Count)
	price := config.InitialPrice

	for i, date := range dates {
		open := price

		z := g.rng.NormFloat64()

		close := open * math.Exp(config.Drift-0.5*config.Volatility*config.Volatility+config.Volatility*z)

		// High and low are within the open-close range plus some extension
		high := math.Max(open, close) * (1 + math.Abs(g.rng.Float64()*config.Volatility*0.5))
		low := math.Min(open, close) * (1 - math.Abs(g.rng.Float64()*config.Volatility*0.5))

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.PriceBar{
			Date:          date,
			Open:          roundToDecimals(open, 4),
			High:          roundToDecimals(high, 4),
			Low:           roundToDecimals(low, 4),
			Close:         roundToDecimals(close, 4),
			AdjustedClose: roundToDecimals(close, 4),
			Volume:        roundToDecimals(volume, 0),
		}

		price = close
	}

	return types.BarSeries{Symbol: config.Symbol, Bars: bars}
}

// GenerateMultiSymbol generates one series per symbol.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) []types.BarSeries {
	series := make([]types.BarSeries, 0, len(symbols))

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		// Vary initial price and volatility slightly per symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		series = append(series, g.Generate(config))
	}

	return series
}

// LinearSeries returns count bars whose price rises linearly from first to last.
func LinearSeries(symbol string, start time.Time, count int, first, last float64) types.BarSeries {
	prices := make([]float64, count)
	for i := range prices {
		prices[i] = first
		if count > 1 {
			prices[i] = first + (last-first)*float64(i)/float64(count-1)
		}
	}

	return SeriesFromPrices(symbol, start, prices)
}

// FlatSeries returns count bars at a constant price.
func FlatSeries(symbol string, start time.Time, count int, price float64) types.BarSeries {
	prices := make([]float64, count)
	for i := range prices {
		prices[i] = price
	}

	return SeriesFromPrices(symbol, start, prices)
}

// SeriesFromPrices builds bars on consecutive trading days. Each bar opens at
// the previous close and spans a 0.5% range around its close.
func SeriesFromPrices(symbol string, start time.Time, prices []float64) types.BarSeries {
	dates := TradingDays(start, len(prices))
	bars := make([]types.PriceBar, len(prices))

	for i, price := range prices {
		open := price
		if i > 0 {
			open = prices[i-1]
		}

		bars[i] = types.PriceBar{
			Date:          dates[i],
			Open:          open,
			High:          math.Max(open, price) * 1.005,
			Low:           math.Min(open, price) * 0.995,
			Close:         price,
			AdjustedClose: price,
			Volume:        1_000_000,
		}
	}

	return types.BarSeries{Symbol: symbol, Bars: bars}
}

// TradingDays returns count weekdays starting at start (or the next weekday).
func TradingDays(start time.Time, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	for len(dates) < count {
		if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
			dates = append(dates, day)
		}

		day = day.AddDate(0, 0, 1)
	}

	return dates
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
