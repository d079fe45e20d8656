package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/logger"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

type DuckDBBarSourceTestSuite struct {
	suite.Suite
	source  *DuckDBBarSource
	csvPath string
}

func TestDuckDBBarSourceSuite(t *testing.T) {
	suite.Run(t, new(DuckDBBarSourceTestSuite))
}

const barsCSV = `symbol,date,open,high,low,close,adjusted_close,volume
SPY,2024-01-03,101,102,100,101.5,101.0,1200
SPY,2024-01-02,100,101,99,100.5,100.0,1000
QQQ,2024-01-02,400,405,398,404,402.5,
SPY,2024-01-04,102,103,101,102.5,102.0,900
`

func (suite *DuckDBBarSourceTestSuite) SetupTest() {
	dir := suite.T().TempDir()
	suite.csvPath = filepath.Join(dir, "bars.csv")
	suite.Require().NoError(os.WriteFile(suite.csvPath, []byte(barsCSV), 0644))

	source, err := NewDuckDBBarSource("", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(source.Initialize(suite.csvPath))

	suite.source = source
}

func (suite *DuckDBBarSourceTestSuite) TearDownTest() {
	suite.source.Close()
}

func (suite *DuckDBBarSourceTestSuite) TestBarsAreSortedByDate() {
	series, err := suite.source.Bars(context.Background(), "SPY")
	suite.Require().NoError(err)

	suite.Equal("SPY", series.Symbol)
	suite.Require().Equal(3, series.Len())
	suite.True(series.Bars[0].Date.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	suite.Equal(100.0, series.Bars[0].AdjustedClose)
	suite.Equal(100.5, series.Bars[0].Close)
	suite.Equal(1000.0, series.Bars[0].Volume)
	suite.True(series.Bars[2].Date.Equal(time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)))
	suite.NoError(series.Validate())
}

func (suite *DuckDBBarSourceTestSuite) TestNullVolume() {
	series, err := suite.source.Bars(context.Background(), "QQQ")
	suite.Require().NoError(err)
	suite.Equal(1, series.Len())
	suite.Equal(0.0, series.Bars[0].Volume)
	suite.Equal(402.5, series.Bars[0].AdjustedClose)
}

func (suite *DuckDBBarSourceTestSuite) TestMissingSymbol() {
	_, err := suite.source.Bars(context.Background(), "IWM")
	suite.True(errors.HasCode(err, errors.ErrCodeMissingData))
}

func (suite *DuckDBBarSourceTestSuite) TestSymbols() {
	symbols, err := suite.source.Symbols(context.Background())
	suite.NoError(err)
	suite.Equal([]string{"QQQ", "SPY"}, symbols)
	suite.Equal(suite.csvPath, suite.source.Path())
}

func (suite *DuckDBBarSourceTestSuite) TestUnsupportedFileType() {
	err := suite.source.Initialize(filepath.Join(suite.T().TempDir(), "bars.json"))
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestDataPathError))
}

func (suite *DuckDBBarSourceTestSuite) TestMissingFile() {
	err := suite.source.Initialize(filepath.Join(suite.T().TempDir(), "absent.parquet"))
	suite.Error(err)
}
