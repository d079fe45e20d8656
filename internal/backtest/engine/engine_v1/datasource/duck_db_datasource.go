package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/logger"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

const barsView = "daily_bars"

// DuckDBBarSource reads daily bars from parquet or CSV files through a DuckDB
// view. Files must provide the columns symbol, date, open, high, low, close,
// adjusted_close and volume.
type DuckDBBarSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	path   string
}

// NewDuckDBBarSource opens a DuckDB database at dbPath. An empty path opens an
// in-memory database. Call Initialize to attach bar files.
func NewDuckDBBarSource(dbPath string, log *logger.Logger) (*DuckDBBarSource, error) {
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &DuckDBBarSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize creates the bars view over path, a file or glob of .parquet or
// .csv files.
func (d *DuckDBBarSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB bar source", zap.String("path", path))

	reader, err := readerFor(path)
	if err != nil {
		return err
	}

	if _, err := d.db.Exec(fmt.Sprintf(`DROP VIEW IF EXISTS %s;`, barsView)); err != nil {
		return fmt.Errorf("failed to drop existing view: %w", err)
	}

	// squirrel does not build DDL
	query := fmt.Sprintf(`
		CREATE VIEW %s AS
		SELECT * FROM %s('%s');
	`, barsView, reader, strings.ReplaceAll(path, "'", "''"))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestDataPathError, err, "failed to attach bar files %s", path)
	}

	d.path = path

	return nil
}

func readerFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return "read_parquet", nil
	case ".csv":
		return "read_csv_auto", nil
	default:
		return "", errors.Newf(errors.ErrCodeBacktestDataPathError, "unsupported bar file type %q", filepath.Ext(path))
	}
}

// Path returns the attached file pattern.
func (d *DuckDBBarSource) Path() string {
	return d.path
}

// Bars implements BarSource.
func (d *DuckDBBarSource) Bars(ctx context.Context, symbol string) (types.BarSeries, error) {
	query, args, err := d.sq.
		Select("date", "open", "high", "low", "close", "adjusted_close", "volume").
		From(barsView).
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("date ASC").
		ToSql()
	if err != nil {
		return types.BarSeries{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build bars query", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return types.BarSeries{}, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to query bars for %s", symbol)
	}
	defer rows.Close()

	series := types.BarSeries{Symbol: symbol}

	for rows.Next() {
		var (
			date   time.Time
			bar    types.PriceBar
			volume sql.NullFloat64
		)

		if err := rows.Scan(&date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.AdjustedClose, &volume); err != nil {
			return types.BarSeries{}, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to scan bar for %s", symbol)
		}

		bar.Date = date.UTC()
		bar.Volume = volume.Float64
		series.Bars = append(series.Bars, bar)
	}

	if err := rows.Err(); err != nil {
		return types.BarSeries{}, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read bars for %s", symbol)
	}

	if len(series.Bars) == 0 {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeMissingData, "no bars for symbol %s", symbol)
	}

	d.logger.Debug("Loaded bars",
		zap.String("symbol", symbol),
		zap.Int("bars", len(series.Bars)),
	)

	return series, nil
}

// Symbols returns every symbol in the attached files, sorted.
func (d *DuckDBBarSource) Symbols(ctx context.Context) ([]string, error) {
	query, args, err := d.sq.
		Select("symbol").
		Distinct().
		From(barsView).
		OrderBy("symbol").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build symbols query", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol", err)
		}

		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// Close releases the database.
func (d *DuckDBBarSource) Close() error {
	return d.db.Close()
}
