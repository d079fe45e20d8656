package engine

import (
	"fmt"
	"path/filepath"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
)

const (
	resultsFileName = "results.json"
	statsFileName   = "stats.yaml"
	metricsFileName = "metrics.prom"
	curvesDirName   = "curves"
)

// getCurvePath returns <results>/curves/<model_version>/<date range>/<symbol>_<h>D.parquet.
func getCurvePath(b *BacktestEngineV1, symbol string, horizon int) string {
	versionFolder := filepath.Join(b.resultsFolder, curvesDirName, b.config.ModelVersion)

	// Add the date range when one is set
	if b.config.StartDate.IsSome() || b.config.EndDate.IsSome() {
		startStr := "all"
		endStr := "all"

		if b.config.StartDate.IsSome() {
			startStr = b.config.StartDate.Unwrap().Format("20060102")
		}

		if b.config.EndDate.IsSome() {
			endStr = b.config.EndDate.Unwrap().Format("20060102")
		}

		versionFolder = filepath.Join(versionFolder, fmt.Sprintf("%s_%s", startStr, endStr))
	}

	return filepath.Join(versionFolder, fmt.Sprintf("%s_%s.parquet", symbol, types.HorizonKey(horizon)))
}
