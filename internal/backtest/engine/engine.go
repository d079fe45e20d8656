package engine

import (
	"context"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/backtest/engine/engine_v1/datasource"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/metrics"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
)

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error

// OnBacktestStartCallback is called when the batch begins.
type OnBacktestStartCallback func(totalSymbols int, totalHorizons int) error

// OnBacktestEndCallback is called when the batch completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnSymbolStartCallback is called after a symbol's bars are loaded and filtered.
type OnSymbolStartCallback func(symbol string, totalBars int) error

// OnRunStartCallback is called when a (symbol, horizon) run begins.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, symbol string, horizon int) error

// OnRunEndCallback is called when a run has been evaluated and recorded.
type OnRunEndCallback func(run types.RunStats)

// OnSkipCallback is called when a symbol or run is skipped. horizon is 0 for
// a skipped symbol.
type OnSkipCallback func(symbol string, horizon int, reason string, err error)

// OnProcessDataCallback is called after each run finishes, skipped or not.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnSymbolStart   *OnSymbolStartCallback
	OnRunStart      *OnRunStartCallback
	OnRunEnd        *OnRunEndCallback
	OnSkip          *OnSkipCallback
	OnProcessData   *OnProcessDataCallback
}

// RunStore persists the ledger entry of every completed run.
type RunStore interface {
	SaveRun(ctx context.Context, run types.RunStats) error
}

//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// SetDataPath sets the bar files to read. Accepts a single file or a glob
	// of .parquet or .csv files (e.g., "data/*.parquet"). Ignored when a data
	// source has been set with SetDataSource.
	SetDataPath(path string) error
	// SetDataSource sets the bar source for the engine.
	SetDataSource(source datasource.BarSource) error
	// SetResultsFolder sets the output directory. The engine writes
	// results.json, stats.yaml and one curve file per run into it.
	SetResultsFolder(folder string) error
	// SetRunStore sets an optional ledger that receives every completed run.
	SetRunStore(store RunStore) error
	// SetMetrics sets an optional metrics recorder.
	SetMetrics(recorder *metrics.Recorder) error
	// Run executes every (symbol, horizon) run and returns the published
	// results. Failed symbols and runs are skipped, so the returned document
	// may be partial. The context is checked between runs.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (*types.Results, error)
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
