package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

func TestCheckVersionCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		engineVersion string
		fileVersion   string
		expectCode    errors.ErrorCode
		errorContains string
	}{
		{name: "exact match", engineVersion: "0.4.0", fileVersion: "0.4.0"},
		{name: "engine patch higher", engineVersion: "0.4.3", fileVersion: "0.4.0"},
		{name: "file patch higher", engineVersion: "0.4.0", fileVersion: "0.4.7"},
		{name: "v prefix on both", engineVersion: "v0.4.0", fileVersion: "v0.4.1"},
		{name: "prerelease engine", engineVersion: "0.4.0-rc.1", fileVersion: "0.4.0"},
		{name: "engine is main", engineVersion: "main", fileVersion: "3.0.0"},
		{name: "file is main", engineVersion: "0.4.0", fileVersion: "main"},
		{name: "legacy file without version", engineVersion: "0.4.0", fileVersion: ""},
		{
			name:          "minor differs",
			engineVersion: "0.5.0",
			fileVersion:   "0.4.0",
			expectCode:    errors.ErrCodeVersionMismatch,
			errorContains: "minor version mismatch",
		},
		{
			name:          "major differs",
			engineVersion: "1.0.0",
			fileVersion:   "0.4.0",
			expectCode:    errors.ErrCodeVersionMismatch,
			errorContains: "major version mismatch",
		},
		{
			name:          "invalid engine version",
			engineVersion: "not-a-version",
			fileVersion:   "0.4.0",
			expectCode:    errors.ErrCodeInvalidVersion,
			errorContains: "invalid engine version",
		},
		{
			name:          "invalid file version",
			engineVersion: "0.4.0",
			fileVersion:   "four",
			expectCode:    errors.ErrCodeInvalidVersion,
			errorContains: "invalid results file version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckVersionCompatibility(tt.engineVersion, tt.fileVersion)

			if tt.expectCode == 0 {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.expectCode))
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
