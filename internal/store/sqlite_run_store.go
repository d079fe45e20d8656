// Package store keeps a durable ledger of backtest runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

const runsTable = "runs"

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id               TEXT PRIMARY KEY,
	timestamp        INTEGER NOT NULL,
	symbol           TEXT NOT NULL,
	horizon          INTEGER NOT NULL,
	model_version    TEXT NOT NULL,
	engine_version   TEXT NOT NULL,
	observations     INTEGER NOT NULL,
	degenerate       INTEGER NOT NULL,
	cagr             REAL,
	sharpe           REAL,
	max_drawdown     REAL,
	win_rate         REAL,
	avg_holding      REAL,
	monthly_turnover REAL,
	extras           TEXT NOT NULL,
	diagnostics      TEXT NOT NULL,
	curve_file_path  TEXT NOT NULL DEFAULT '',
	data_path        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_symbol_horizon ON runs (symbol, horizon);
`

var runColumns = []string{
	"id", "timestamp", "symbol", "horizon", "model_version", "engine_version",
	"observations", "degenerate", "cagr", "sharpe", "max_drawdown", "win_rate",
	"avg_holding", "monthly_turnover", "extras", "diagnostics", "curve_file_path", "data_path",
}

// SQLiteRunStore persists RunStats rows in a SQLite database.
type SQLiteRunStore struct {
	db *sql.DB
	sq sq.StatementBuilderType
}

// NewSQLiteRunStore opens (or creates) the database at dbPath and ensures the
// runs table exists.
func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to open run store %s", dbPath)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createRunsTable); err != nil {
		_ = db.Close()

		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to create runs table", err)
	}

	return &SQLiteRunStore{
		db: db,
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// SaveRun inserts a run, replacing any row with the same id.
func (s *SQLiteRunStore) SaveRun(ctx context.Context, run types.RunStats) error {
	extras, err := json.Marshal(run.Extras)
	if err != nil {
		return fmt.Errorf("failed to encode extras: %w", err)
	}

	diagnostics, err := json.Marshal(run.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	query := s.sq.Insert(runsTable).
		Options("OR REPLACE").
		Columns(runColumns...).
		Values(
			run.ID,
			run.Timestamp.UnixMilli(),
			run.Symbol,
			run.Horizon,
			run.ModelVersion,
			run.EngineVersion,
			run.Observations,
			run.Degenerate,
			nullable(run.Stats.CAGR),
			nullable(run.Stats.Sharpe),
			nullable(run.Stats.MaxDrawdown),
			nullable(run.Stats.WinRate),
			nullable(run.Stats.AvgHoldingPeriod),
			nullable(run.Stats.MonthlyTurnover),
			string(extras),
			string(diagnostics),
			run.CurveFilePath,
			run.DataPath,
		)

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to save run %s", run.ID)
	}

	return nil
}

// ListRuns returns stored runs ordered by timestamp then symbol and horizon.
// An empty symbol lists every run.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, symbol string) ([]types.RunStats, error) {
	query := s.sq.Select(runColumns...).
		From(runsTable).
		OrderBy("timestamp", "symbol", "horizon")

	if symbol != "" {
		query = query.Where(sq.Eq{"symbol": symbol})
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list runs", err)
	}
	defer rows.Close()

	var runs []types.RunStats

	for rows.Next() {
		var (
			run                 types.RunStats
			millis              int64
			cagr, sharpe, maxDD sql.NullFloat64
			winRate, avgHold    sql.NullFloat64
			turnover            sql.NullFloat64
			extras, diagnostics string
		)

		err := rows.Scan(
			&run.ID, &millis, &run.Symbol, &run.Horizon, &run.ModelVersion, &run.EngineVersion,
			&run.Observations, &run.Degenerate, &cagr, &sharpe, &maxDD, &winRate,
			&avgHold, &turnover, &extras, &diagnostics, &run.CurveFilePath, &run.DataPath,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan run", err)
		}

		run.Timestamp = time.UnixMilli(millis).UTC()
		run.Stats = types.PerformanceStats{
			CAGR:             fromNullable(cagr),
			Sharpe:           fromNullable(sharpe),
			MaxDrawdown:      fromNullable(maxDD),
			WinRate:          fromNullable(winRate),
			AvgHoldingPeriod: fromNullable(avgHold),
			MonthlyTurnover:  fromNullable(turnover),
		}

		if err := json.Unmarshal([]byte(extras), &run.Extras); err != nil {
			return nil, fmt.Errorf("failed to decode extras of run %s: %w", run.ID, err)
		}

		if err := json.Unmarshal([]byte(diagnostics), &run.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to decode diagnostics of run %s: %w", run.ID, err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate runs", err)
	}

	return runs, nil
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

// nullable stores non-finite floats as NULL.
func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}

	return v.Float64
}
