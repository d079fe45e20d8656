package types

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// PerformanceStats is the fixed summary record of one backtest run.
type PerformanceStats struct {
	// Compound annual growth rate over 252-day years.
	CAGR float64 `yaml:"cagr"`
	// Mean/std of daily returns, 0 when volatility is 0.
	Sharpe float64 `yaml:"sharpe"`
	// Most negative equity/running-max - 1. Always <= 0.
	MaxDrawdown float64 `yaml:"max_drawdown"`
	// Share of strictly positive daily returns.
	WinRate float64 `yaml:"win_rate"`
	// Mean length in days of consecutive long runs.
	AvgHoldingPeriod float64 `yaml:"avg_holding_period"`
	// Half the absolute position changes per 21-day month.
	MonthlyTurnover float64 `yaml:"monthly_turnover"`
}

// RollingStats are trailing-window statistics reported next to the fixed record.
type RollingStats struct {
	// SharpeAnnualized is the full-period Sharpe scaled by sqrt(252).
	SharpeAnnualized float64 `yaml:"sharpe_annualized"`
	Sharpe3M         float64 `yaml:"sharpe_3m"`
	Sharpe12M        float64 `yaml:"sharpe_12m"`
	WinRate12M       float64 `yaml:"winrate_12m"`
}

// ModelDiagnostics describes how the walk-forward trainer behaved during a run.
type ModelDiagnostics struct {
	Boundaries    int     `yaml:"boundaries"`
	Refits        int     `yaml:"refits"`
	SkippedRefits int     `yaml:"skipped_refits"`
	SingularFits  int     `yaml:"singular_fits"`
	FreshFraction float64 `yaml:"fresh_fraction"`
}

// RunStats is the ledger entry for one (symbol, horizon) run.
type RunStats struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this run was executed.
	Timestamp     time.Time        `yaml:"timestamp" json:"timestamp"`
	Symbol        string           `yaml:"symbol" json:"symbol"`
	Horizon       int              `yaml:"horizon" json:"horizon"`
	ModelVersion  string           `yaml:"model_version" json:"model_version"`
	EngineVersion string           `yaml:"engine_version" json:"engine_version"`
	Observations  int              `yaml:"observations" json:"observations"`
	Degenerate    bool             `yaml:"degenerate" json:"degenerate"`
	Stats         PerformanceStats `yaml:"stats" json:"stats"`
	Extras        RollingStats     `yaml:"extras" json:"extras"`
	Diagnostics   ModelDiagnostics `yaml:"diagnostics" json:"diagnostics"`
	// CurveFilePath is the path to the per-day curve parquet file.
	CurveFilePath string `yaml:"curve_file_path,omitempty" json:"curve_file_path,omitempty"`
	// DataPath is the bar source the run read from.
	DataPath string `yaml:"data_path,omitempty" json:"data_path,omitempty"`
}

// RoundStats rounds every field half away from zero to the given number of
// decimal places. Non-finite values pass through unchanged.
func RoundStats(stats PerformanceStats, places int32) PerformanceStats {
	round := func(v float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return v
		}

		rounded, _ := decimal.NewFromFloat(v).Round(places).Float64()

		return rounded
	}

	return PerformanceStats{
		CAGR:             round(stats.CAGR),
		Sharpe:           round(stats.Sharpe),
		MaxDrawdown:      round(stats.MaxDrawdown),
		WinRate:          round(stats.WinRate),
		AvgHoldingPeriod: round(stats.AvgHoldingPeriod),
		MonthlyTurnover:  round(stats.MonthlyTurnover),
	}
}

// WriteRunStats writes the run ledger as YAML.
func WriteRunStats(path string, stats []RunStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal run stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run stats to file: %w", err)
	}

	return nil
}

// ReadRunStats reads a ledger written by WriteRunStats.
func ReadRunStats(path string) ([]RunStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run stats file: %w", err)
	}

	var stats []RunStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run stats: %w", err)
	}

	return stats, nil
}
