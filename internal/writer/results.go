// Package writer publishes backtest output: the results document, per-run
// curves and downloaded bar files.
package writer

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/version"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// WriteResults writes the results document as indented JSON, creating parent
// directories as needed.
func WriteResults(path string, results *types.Results) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to create directory for %s", path)
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to marshal results", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to write results to %s", path)
	}

	return nil
}

// ReadResults reads a results document.
func ReadResults(path string) (*types.Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeResultReadFailed, err, "failed to read results from %s", path)
	}

	var results types.Results
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeResultReadFailed, err, "failed to parse results in %s", path)
	}

	return &results, nil
}

// MergeResults folds results into the document at path and writes it back.
// Entries already in the file survive unless results replaces them. The file
// must have been written by a compatible engine version.
func MergeResults(path string, results *types.Results) (*types.Results, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return results, WriteResults(path, results)
	}

	existing, err := ReadResults(path)
	if err != nil {
		return nil, err
	}

	if err := version.CheckVersionCompatibility(results.EngineVersion, existing.EngineVersion); err != nil {
		return nil, err
	}

	existing.Merge(results)
	existing.EngineVersion = results.EngineVersion

	if err := WriteResults(path, existing); err != nil {
		return nil, err
	}

	return existing, nil
}
