package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/backtest/engine"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/backtest/engine/engine_v1/datasource"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/feature"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/logger"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/metrics"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/performance"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/strategy"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/version"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/walkforward"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/writer"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// AllSymbols in the symbol list expands to every symbol the source lists.
const AllSymbols = "*"

type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	dataPath      string
	resultsFolder string
	log           *logger.Logger
	datasource    datasource.BarSource
	runStore      engine.RunStore
	metrics       *metrics.Recorder
	now           func() time.Time

	// callbackMu serializes callbacks when runs execute in parallel.
	callbackMu sync.Mutex
}

// unit is one (symbol, horizon) run with the symbol's shared inputs.
type unit struct {
	series  types.BarSeries
	matrix  *feature.Matrix
	horizon int
}

// skipError marks a unit or symbol that is dropped from the batch.
type skipError struct {
	reason string
	err    error
}

func (e *skipError) Error() string {
	return e.err.Error()
}

func (e *skipError) Unwrap() error {
	return e.err
}

func skip(reason string, err error) error {
	return &skipError{reason: reason, err: err}
}

func NewBacktestEngineV1() engine.Engine {
	return &BacktestEngineV1{
		config:        EmptyConfig(),
		dataPath:      "",
		resultsFolder: "",
		log:           logger.NewNopLogger(),
		datasource:    nil,
		runStore:      nil,
		metrics:       nil,
		now:           time.Now,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	// parse the config
	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse config", err)
	}

	if err := b.config.Validate(); err != nil {
		return err
	}

	// initialize the logger
	log, err := logger.NewLoggerFromString(b.config.LogLevel)
	if err != nil {
		return err
	}

	b.log = log.Named("backtest")

	b.log.Debug("Backtest engine initialized",
		zap.Strings("symbols", b.config.Symbols),
		zap.Ints("horizons", b.config.Horizons),
		zap.String("model_version", b.config.ModelVersion),
		zap.String("cadence", string(b.config.Cadence)),
	)

	return nil
}

// SetDataPath implements engine.Engine.
func (b *BacktestEngineV1) SetDataPath(path string) error {
	// use glob to check that the path matches at least one file
	files, err := filepath.Glob(path)
	if err != nil {
		b.log.Error("Failed to set data path",
			zap.String("path", path),
			zap.Error(err),
		)

		return errors.Wrapf(errors.ErrCodeBacktestDataPathError, err, "invalid data path %s", path)
	}

	if len(files) == 0 {
		return errors.Newf(errors.ErrCodeBacktestDataPathError, "no files match data path %s", path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		b.log.Error("Failed to get absolute path",
			zap.String("path", path),
			zap.Error(err),
		)

		return err
	}

	b.dataPath = absPath
	b.log.Debug("Data path set",
		zap.String("path", absPath),
		zap.Int("files", len(files)),
	)

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder
	b.log.Debug("Results folder set",
		zap.String("folder", folder),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(source datasource.BarSource) error {
	b.datasource = source

	return nil
}

// SetRunStore implements engine.Engine.
func (b *BacktestEngineV1) SetRunStore(store engine.RunStore) error {
	b.runStore = store

	return nil
}

// SetMetrics implements engine.Engine.
func (b *BacktestEngineV1) SetMetrics(recorder *metrics.Recorder) error {
	b.metrics = recorder

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", fmt.Errorf("failed to generate schema: %w", err)
	}

	return schema, nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (results *types.Results, runErr error) {
	defer func() {
		if callbacks.OnBacktestEnd != nil {
			(*callbacks.OnBacktestEnd)(runErr)
		}
	}()

	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	source, closeSource, err := b.openSource()
	if err != nil {
		return nil, err
	}
	defer closeSource()

	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to create results folder %s", b.resultsFolder)
	}

	symbols, err := b.resolveSymbols(ctx, source)
	if err != nil {
		return nil, err
	}

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(len(symbols), len(b.config.Horizons)); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCallbackFailed, "backtest start callback failed", err)
		}
	}

	results = types.NewResults(b.now(), version.Version)

	var ledger []types.RunStats

	units, err := b.prepareUnits(ctx, source, symbols, callbacks)
	if err == nil {
		ledger, err = b.runUnits(ctx, units, results, callbacks)
	}

	// partial results are written even when the batch was interrupted
	if writeErr := b.writeResults(results, ledger); writeErr != nil {
		if err == nil {
			err = writeErr
		} else {
			b.log.Error("Failed to write partial results", zap.Error(writeErr))
		}
	}

	return results, err
}

// openSource returns the configured source, or opens a DuckDB source over
// the data path. The returned function releases what was opened.
func (b *BacktestEngineV1) openSource() (datasource.BarSource, func(), error) {
	if b.datasource != nil {
		return b.datasource, func() {}, nil
	}

	source, err := datasource.NewDuckDBBarSource("", b.log.Named("datasource"))
	if err != nil {
		return nil, nil, err
	}

	if err := source.Initialize(b.dataPath); err != nil {
		_ = source.Close()

		return nil, nil, err
	}

	return source, func() {
		if err := source.Close(); err != nil {
			b.log.Warn("Failed to close data source", zap.Error(err))
		}
	}, nil
}

// resolveSymbols expands AllSymbols and removes duplicates, keeping order.
func (b *BacktestEngineV1) resolveSymbols(ctx context.Context, source datasource.BarSource) ([]string, error) {
	seen := make(map[string]bool)

	var symbols []string

	for _, symbol := range b.config.Symbols {
		expanded := []string{symbol}

		if symbol == AllSymbols {
			lister, ok := source.(datasource.SymbolLister)
			if !ok {
				return nil, errors.New(errors.ErrCodeBacktestNoSymbols, "data source cannot list symbols")
			}

			listed, err := lister.Symbols(ctx)
			if err != nil {
				return nil, err
			}

			expanded = listed
		}

		for _, s := range expanded {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}

			seen[s] = true
			symbols = append(symbols, s)
		}
	}

	if len(symbols) == 0 {
		return nil, errors.New(errors.ErrCodeBacktestNoSymbols, "no symbols to backtest")
	}

	return symbols, nil
}

// prepareUnits loads each symbol once and builds its features. Symbols that
// cannot be loaded are skipped.
func (b *BacktestEngineV1) prepareUnits(
	ctx context.Context,
	source datasource.BarSource,
	symbols []string,
	callbacks engine.LifecycleCallbacks,
) ([]unit, error) {
	var units []unit

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return units, err
		}

		series, matrix, err := b.loadSymbol(ctx, source, symbol)
		if err != nil {
			var skipped *skipError
			if !errors.As(err, &skipped) {
				return units, err
			}

			b.skip(callbacks, symbol, 0, skipped)

			continue
		}

		if callbacks.OnSymbolStart != nil {
			if err := (*callbacks.OnSymbolStart)(symbol, series.Len()); err != nil {
				return units, errors.Wrap(errors.ErrCodeCallbackFailed, "symbol start callback failed", err)
			}
		}

		for _, horizon := range b.config.Horizons {
			units = append(units, unit{series: series, matrix: matrix, horizon: horizon})
		}
	}

	return units, nil
}

func (b *BacktestEngineV1) loadSymbol(
	ctx context.Context,
	source datasource.BarSource,
	symbol string,
) (types.BarSeries, *feature.Matrix, error) {
	series, err := source.Bars(ctx, symbol)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.BarSeries{}, nil, ctxErr
		}

		if errors.HasAnyCode(err, errors.ErrCodeMissingData, errors.ErrCodeNoDataFound) {
			return types.BarSeries{}, nil, skip(metrics.SkipMissingData, err)
		}

		return types.BarSeries{}, nil, skip(metrics.SkipSourceFailure, err)
	}

	series = series.Between(b.config.StartDate, b.config.EndDate)
	series.Symbol = symbol

	if err := series.Validate(); err != nil {
		if errors.HasAnyCode(err, errors.ErrCodeMissingData, errors.ErrCodeNoDataFound) {
			return types.BarSeries{}, nil, skip(metrics.SkipMissingData, err)
		}

		return types.BarSeries{}, nil, skip(metrics.SkipInvalidSeries, err)
	}

	matrix, err := feature.Build(series)
	if err != nil {
		return types.BarSeries{}, nil, skip(metrics.SkipFeatureFailure, err)
	}

	b.log.Debug("Symbol loaded",
		zap.String("symbol", symbol),
		zap.Int("bars", series.Len()),
		zap.Int("feature_rows", matrix.Len()),
	)

	return series, matrix, nil
}

// runUnits executes the units on a bounded worker group and records each
// result. Skipped units do not stop the batch; callback failures and context
// cancellation do.
func (b *BacktestEngineV1) runUnits(
	ctx context.Context,
	units []unit,
	results *types.Results,
	callbacks engine.LifecycleCallbacks,
) ([]types.RunStats, error) {
	var (
		mu        sync.Mutex
		ledger    []types.RunStats
		completed int
	)

	progress := func() error {
		mu.Lock()
		completed++
		current := completed
		mu.Unlock()

		if callbacks.OnProcessData == nil {
			return nil
		}

		b.callbackMu.Lock()
		defer b.callbackMu.Unlock()

		if err := (*callbacks.OnProcessData)(current, len(units)); err != nil {
			return errors.Wrap(errors.ErrCodeCallbackFailed, "process data callback failed", err)
		}

		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.config.Workers)

	for _, u := range units {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			run, result, err := b.runUnit(gctx, u, callbacks)
			if err != nil {
				var skipped *skipError
				if !errors.As(err, &skipped) {
					return err
				}

				b.skip(callbacks, u.series.Symbol, u.horizon, skipped)

				return progress()
			}

			mu.Lock()
			results.Put(run.Symbol, run.ModelVersion, run.Horizon, result)
			ledger = append(ledger, run)
			mu.Unlock()

			if callbacks.OnRunEnd != nil {
				b.callbackMu.Lock()
				(*callbacks.OnRunEnd)(run)
				b.callbackMu.Unlock()
			}

			return progress()
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	sort.Slice(ledger, func(i, j int) bool {
		if ledger[i].Symbol != ledger[j].Symbol {
			return ledger[i].Symbol < ledger[j].Symbol
		}

		return ledger[i].Horizon < ledger[j].Horizon
	})

	return ledger, err
}

// runUnit runs target, walk-forward training, strategy construction and
// evaluation for one (symbol, horizon) pair.
func (b *BacktestEngineV1) runUnit(
	ctx context.Context,
	u unit,
	callbacks engine.LifecycleCallbacks,
) (types.RunStats, types.HorizonResult, error) {
	symbol := u.series.Symbol
	runID := uuid.New().String()
	started := time.Now()

	if callbacks.OnRunStart != nil {
		b.callbackMu.Lock()
		err := (*callbacks.OnRunStart)(runID, symbol, u.horizon)
		b.callbackMu.Unlock()

		if err != nil {
			return types.RunStats{}, types.HorizonResult{}, errors.Wrap(errors.ErrCodeCallbackFailed, "run start callback failed", err)
		}
	}

	log := b.log.With(
		zap.String("run_id", runID),
		zap.String("symbol", symbol),
		zap.Int("horizon", u.horizon),
	)

	target, err := feature.BuildTarget(u.series, u.horizon)
	if err != nil {
		return types.RunStats{}, types.HorizonResult{}, skip(metrics.SkipInvalidHorizon, err)
	}

	trainer, err := walkforward.NewTrainer(b.config.TrainerConfig(), &logger.Logger{Logger: log})
	if err != nil {
		return types.RunStats{}, types.HorizonResult{}, skip(metrics.SkipTrainingFailure, err)
	}

	wf, err := trainer.Run(u.matrix, target)
	if err != nil {
		return types.RunStats{}, types.HorizonResult{}, skip(metrics.SkipTrainingFailure, err)
	}

	predictions := walkforward.Align(wf.Predictions, u.series.Dates())

	ledger, err := strategy.Construct(u.series, predictions, b.config.CostBps)
	if err != nil {
		return types.RunStats{}, types.HorizonResult{}, skip(metrics.SkipStrategyFailure, err)
	}

	eval := performance.Evaluate(ledger.Returns(), ledger.Equity(), ledger.Positions())
	if eval.Degenerate {
		log.Warn("Too few returns for statistics, reporting neutral values",
			zap.Int("code", int(errors.ErrCodeDegenerateStatistics)),
			zap.Int("observations", eval.Observations),
		)
	}

	stats := eval.Stats
	if b.config.RoundPlaces != NoRounding {
		stats = types.RoundStats(stats, int32(b.config.RoundPlaces))
	}

	run := types.RunStats{
		ID:            runID,
		Timestamp:     b.now().UTC(),
		Symbol:        symbol,
		Horizon:       u.horizon,
		ModelVersion:  b.config.ModelVersion,
		EngineVersion: version.Version,
		Observations:  eval.Observations,
		Degenerate:    eval.Degenerate,
		Stats:         stats,
		Extras:        eval.Rolling,
		Diagnostics:   wf.Diagnostics,
		DataPath:      b.dataPath,
	}

	if b.config.WriteCurves {
		path := getCurvePath(b, symbol, u.horizon)
		if err := writer.WriteCurve(path, ledger); err != nil {
			log.Warn("Failed to write curve", zap.String("path", path), zap.Error(err))
		} else {
			run.CurveFilePath = path
		}
	}

	if b.runStore != nil {
		if err := b.runStore.SaveRun(ctx, run); err != nil {
			log.Error("Failed to save run", zap.Error(err))
		}
	}

	b.metrics.RecordRun(run, time.Since(started))

	log.Debug("Run completed",
		zap.Float64("sharpe", stats.Sharpe),
		zap.Float64("cagr", stats.CAGR),
		zap.Int("refits", wf.Diagnostics.Refits),
		zap.Int("skipped_refits", wf.Diagnostics.SkippedRefits),
	)

	// The published curve starts once the feature warm-up is satisfied.
	equity := []types.EquityPoint{}
	if u.matrix.Len() > 0 {
		equity = types.EquityCurveSince(ledger.Dates(), ledger.Equity(), u.matrix.Date(0))
	}

	result := types.HorizonResult{
		Stats:  types.NewStatsPayload(stats),
		Equity: equity,
	}

	return run, result, nil
}

func (b *BacktestEngineV1) skip(callbacks engine.LifecycleCallbacks, symbol string, horizon int, skipped *skipError) {
	fields := []zap.Field{
		zap.String("symbol", symbol),
		zap.String("reason", skipped.reason),
		zap.Int("code", int(errors.GetCode(skipped.err))),
		zap.Error(skipped.err),
	}

	var insufficient *errors.InsufficientDataError
	if errors.As(skipped.err, &insufficient) {
		fields = append(fields, zap.Int("bars_required", insufficient.Required), zap.Int("bars_available", insufficient.Actual))
	}

	if horizon > 0 {
		fields = append(fields, zap.Int("horizon", horizon))
		b.log.Warn("Skipping run", fields...)
	} else {
		b.log.Warn("Skipping symbol", fields...)
	}

	b.metrics.RecordSkip(skipped.reason)

	if callbacks.OnSkip != nil {
		b.callbackMu.Lock()
		(*callbacks.OnSkip)(symbol, horizon, skipped.reason, skipped.err)
		b.callbackMu.Unlock()
	}
}

func (b *BacktestEngineV1) writeResults(results *types.Results, ledger []types.RunStats) error {
	if err := writer.WriteResults(filepath.Join(b.resultsFolder, resultsFileName), results); err != nil {
		return err
	}

	if err := types.WriteRunStats(filepath.Join(b.resultsFolder, statsFileName), ledger); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}

	if err := b.metrics.WriteTextfile(filepath.Join(b.resultsFolder, metricsFileName)); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}

	return nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if len(b.config.Symbols) == 0 {
		b.log.Error("No symbols configured")

		return errors.New(errors.ErrCodeBacktestNoSymbols, "no symbols configured")
	}

	if len(b.config.Horizons) == 0 {
		b.log.Error("No horizons configured")

		return errors.New(errors.ErrCodeBacktestNoHorizons, "no horizons configured")
	}

	if b.datasource == nil && b.dataPath == "" {
		b.log.Error("No data source or data path set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no data source or data path set")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	return nil
}
