package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
)

type RecorderTestSuite struct {
	suite.Suite
	recorder *Recorder
}

func TestRecorderSuite(t *testing.T) {
	suite.Run(t, new(RecorderTestSuite))
}

func (suite *RecorderTestSuite) SetupTest() {
	suite.recorder = NewRecorder("backtest")
}

func (suite *RecorderTestSuite) run() types.RunStats {
	return types.RunStats{
		Symbol:       "SPY",
		Horizon:      21,
		ModelVersion: "v1",
		Stats:        types.PerformanceStats{Sharpe: 1.25, CAGR: 0.08},
		Diagnostics:  types.ModelDiagnostics{Refits: 30, SkippedRefits: 5, SingularFits: 1},
	}
}

func (suite *RecorderTestSuite) TestRecordRun() {
	suite.recorder.RecordRun(suite.run(), 150*time.Millisecond)
	suite.recorder.RecordRun(suite.run(), 50*time.Millisecond)

	suite.Equal(2.0, testutil.ToFloat64(suite.recorder.runsTotal.WithLabelValues("SPY", "21", "false")))
	suite.Equal(1.25, testutil.ToFloat64(suite.recorder.sharpe.WithLabelValues("SPY", "v1", "21")))
	suite.Equal(0.08, testutil.ToFloat64(suite.recorder.cagr.WithLabelValues("SPY", "v1", "21")))
	suite.Equal(60.0, testutil.ToFloat64(suite.recorder.refits.WithLabelValues("fitted")))
	suite.Equal(10.0, testutil.ToFloat64(suite.recorder.refits.WithLabelValues("skipped")))
	suite.Equal(2.0, testutil.ToFloat64(suite.recorder.refits.WithLabelValues("singular")))
}

func (suite *RecorderTestSuite) TestRecordSkip() {
	suite.recorder.RecordSkip(SkipMissingData)
	suite.recorder.RecordSkip(SkipMissingData)
	suite.recorder.RecordSkip(SkipInvalidHorizon)

	suite.Equal(2.0, testutil.ToFloat64(suite.recorder.skipsTotal.WithLabelValues(SkipMissingData)))
	suite.Equal(1.0, testutil.ToFloat64(suite.recorder.skipsTotal.WithLabelValues(SkipInvalidHorizon)))
}

func (suite *RecorderTestSuite) TestRegistriesAreIndependent() {
	other := NewRecorder("backtest")
	other.RecordSkip(SkipMissingData)

	suite.Equal(0.0, testutil.ToFloat64(suite.recorder.skipsTotal.WithLabelValues(SkipMissingData)))
}

func (suite *RecorderTestSuite) TestWriteTextfile() {
	suite.recorder.RecordRun(suite.run(), time.Second)

	path := filepath.Join(suite.T().TempDir(), "backtest.prom")
	suite.NoError(suite.recorder.WriteTextfile(path))

	data, err := os.ReadFile(path)
	suite.NoError(err)
	suite.Contains(string(data), "backtest_runs_total")
	suite.Contains(string(data), "backtest_sharpe_ratio")
}

func (suite *RecorderTestSuite) TestNilRecorder() {
	var recorder *Recorder

	recorder.RecordRun(suite.run(), time.Second)
	recorder.RecordSkip(SkipMissingData)
	suite.Nil(recorder.Registry())
	suite.NoError(recorder.WriteTextfile("unused"))
}
