package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
)

type EngineTestSuite struct {
	suite.Suite
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) TestOnProcessDataCallbackWithProgress() {
	var progress []int
	callback := OnProcessDataCallback(func(current int, total int) error {
		progress = append(progress, current)
		return nil
	})

	for i := 1; i <= 5; i++ {
		err := callback(i, 5)
		suite.NoError(err)
	}

	suite.Equal([]int{1, 2, 3, 4, 5}, progress)
}

func (suite *EngineTestSuite) TestOnBacktestStartCallbackCanAbort() {
	abort := errors.New("abort")
	callback := OnBacktestStartCallback(func(totalSymbols int, totalHorizons int) error {
		if totalSymbols == 0 {
			return abort
		}

		return nil
	})

	suite.NoError(callback(2, 3))
	suite.ErrorIs(callback(0, 3), abort)
}

func (suite *EngineTestSuite) TestLifecycleCallbacksZeroValue() {
	var callbacks LifecycleCallbacks

	suite.Nil(callbacks.OnBacktestStart)
	suite.Nil(callbacks.OnBacktestEnd)
	suite.Nil(callbacks.OnSymbolStart)
	suite.Nil(callbacks.OnRunStart)
	suite.Nil(callbacks.OnRunEnd)
	suite.Nil(callbacks.OnSkip)
	suite.Nil(callbacks.OnProcessData)
}

type recordingStore struct {
	runs []types.RunStats
}

func (s *recordingStore) SaveRun(_ context.Context, run types.RunStats) error {
	s.runs = append(s.runs, run)

	return nil
}

func (suite *EngineTestSuite) TestRunStoreInterface() {
	var store RunStore = &recordingStore{}

	suite.NoError(store.SaveRun(context.Background(), types.RunStats{ID: "a", Symbol: "SPY", Horizon: 21}))
	suite.Len(store.(*recordingStore).runs, 1)
}
