// Package metrics exposes batch counters and run statistics through Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
)

// Skip reasons.
const (
	SkipMissingData     = "missing_data"
	SkipSourceFailure   = "source_failure"
	SkipInvalidSeries   = "invalid_series"
	SkipInvalidHorizon  = "invalid_horizon"
	SkipFeatureFailure  = "feature_failure"
	SkipTrainingFailure = "training_failure"
	SkipStrategyFailure = "strategy_failure"
)

// Recorder records backtest batch metrics on its own registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry    *prometheus.Registry
	runsTotal   *prometheus.CounterVec
	skipsTotal  *prometheus.CounterVec
	refits      *prometheus.CounterVec
	sharpe      *prometheus.GaugeVec
	cagr        *prometheus.GaugeVec
	runDuration *prometheus.HistogramVec
}

// NewRecorder creates a recorder whose metric names start with namespace.
func NewRecorder(namespace string) *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Completed (symbol, horizon) backtest runs",
			},
			[]string{"symbol", "horizon", "degenerate"},
		),
		skipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skips_total",
				Help:      "Symbols or runs skipped, by reason",
			},
			[]string{"reason"},
		),
		refits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refits_total",
				Help:      "Walk-forward refit outcomes",
			},
			[]string{"outcome"},
		),
		sharpe: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sharpe_ratio",
				Help:      "Daily Sharpe ratio (mean/std) of the latest run",
			},
			[]string{"symbol", "model_version", "horizon"},
		),
		cagr: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cagr",
				Help:      "Compound annual growth rate of the latest run",
			},
			[]string{"symbol", "model_version", "horizon"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of one (symbol, horizon) run",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
	}
}

// RecordRun records a completed run.
func (r *Recorder) RecordRun(run types.RunStats, elapsed time.Duration) {
	if r == nil {
		return
	}

	horizon := strconv.Itoa(run.Horizon)

	r.runsTotal.WithLabelValues(run.Symbol, horizon, strconv.FormatBool(run.Degenerate)).Inc()
	r.sharpe.WithLabelValues(run.Symbol, run.ModelVersion, horizon).Set(run.Stats.Sharpe)
	r.cagr.WithLabelValues(run.Symbol, run.ModelVersion, horizon).Set(run.Stats.CAGR)
	r.runDuration.WithLabelValues(run.Symbol).Observe(elapsed.Seconds())
	r.refits.WithLabelValues("fitted").Add(float64(run.Diagnostics.Refits))
	r.refits.WithLabelValues("skipped").Add(float64(run.Diagnostics.SkippedRefits))
	r.refits.WithLabelValues("singular").Add(float64(run.Diagnostics.SingularFits))
}

// RecordSkip records a skipped symbol or run.
func (r *Recorder) RecordSkip(reason string) {
	if r == nil {
		return
	}

	r.skipsTotal.WithLabelValues(reason).Inc()
}

// Registry returns the registry holding every metric.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}

	return r.registry
}

// WriteTextfile writes the metrics in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}

	return prometheus.WriteToTextfile(path, r.registry)
}
