package writer

import (
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/strategy"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// CurveRecord is one day of a run's strategy ledger.
type CurveRecord struct {
	Timestamp  int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Prediction float64 `parquet:"prediction"`
	Fresh      bool    `parquet:"fresh"`
	Position   float64 `parquet:"position"`
	Trade      float64 `parquet:"trade"`
	RawReturn  float64 `parquet:"raw_return"`
	Cost       float64 `parquet:"cost"`
	Return     float64 `parquet:"return"`
	Equity     float64 `parquet:"equity"`
}

// Date returns the record date in UTC.
func (r CurveRecord) Date() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}

// CurveRecords flattens a strategy ledger.
func CurveRecords(result strategy.Result) []CurveRecord {
	records := make([]CurveRecord, len(result.Days))
	for i, d := range result.Days {
		records[i] = CurveRecord{
			Timestamp:  d.Date.UnixMilli(),
			Prediction: d.Prediction,
			Fresh:      d.Fresh,
			Position:   d.Position,
			Trade:      d.Trade,
			RawReturn:  d.RawReturn,
			Cost:       d.Cost,
			Return:     d.Return,
			Equity:     d.Equity,
		}
	}

	return records
}

// WriteCurve writes a run's ledger to a parquet file.
func WriteCurve(path string, result strategy.Result) error {
	if err := writeParquetFile(path, CurveRecords(result)); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to write curve to %s", path)
	}

	return nil
}

// ReadCurve reads a file written by WriteCurve.
func ReadCurve(path string) ([]CurveRecord, error) {
	records, err := parquet.ReadFile[CurveRecord](path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeResultReadFailed, err, "failed to read curve from %s", path)
	}

	return records, nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return parquet.WriteFile(path, records)
}
