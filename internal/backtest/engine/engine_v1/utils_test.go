package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
)

// UtilsTestSuite is a test suite for utils package
type UtilsTestSuite struct {
	suite.Suite
}

// TestUtilsSuite runs the test suite
func TestUtilsSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestGetCurvePath() {
	tests := []struct {
		name         string
		symbol       string
		horizon      int
		startDate    optional.Option[time.Time]
		endDate      optional.Option[time.Time]
		expectedPath string
	}{
		{
			name:         "Without date range",
			symbol:       "SPY",
			horizon:      21,
			startDate:    optional.None[time.Time](),
			endDate:      optional.None[time.Time](),
			expectedPath: "/results/curves/v1/SPY_21D.parquet",
		},
		{
			name:         "With date range",
			symbol:       "QQQ",
			horizon:      3,
			startDate:    optional.Some(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)),
			endDate:      optional.Some(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)),
			expectedPath: "/results/curves/v1/20150101_20231231/QQQ_3D.parquet",
		},
		{
			name:         "Only start date",
			symbol:       "SPY",
			horizon:      12,
			startDate:    optional.Some(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)),
			endDate:      optional.None[time.Time](),
			expectedPath: "/results/curves/v1/20200601_all/SPY_12D.parquet",
		},
		{
			name:         "Only end date",
			symbol:       "SPY",
			horizon:      12,
			startDate:    optional.None[time.Time](),
			endDate:      optional.Some(time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC)),
			expectedPath: "/results/curves/v1/all_20210331/SPY_12D.parquet",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config := EmptyConfig()
			config.StartDate = tc.startDate
			config.EndDate = tc.endDate

			b := &BacktestEngineV1{config: config, resultsFolder: "/results"}

			suite.Equal(filepath.FromSlash(tc.expectedPath), getCurvePath(b, tc.symbol, tc.horizon))
		})
	}
}
