package marketdata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/internal/writer"
	"github.com/guozhongyan/anxiousmonkey-backtests/mocks"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/marketdata/provider"
)

// ClientTestSuite is a test suite for the Client implementation
type ClientTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockProvider *mocks.MockProvider
	dataPath     string
	dates        provider.Range
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (suite *ClientTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.mockProvider = mocks.NewMockProvider(suite.ctrl)
	suite.dataPath = suite.T().TempDir()
	suite.dates = provider.Range{}
}

func (suite *ClientTestSuite) newClient() *Client {
	config := ClientConfig{ProviderType: ProviderBinance, DataPath: suite.dataPath}

	client, err := NewClientWithFactory(config, func(dates provider.Range) (provider.Provider, error) {
		suite.dates = dates

		return suite.mockProvider, nil
	}, nil)
	suite.Require().NoError(err)

	return client
}

func (suite *ClientTestSuite) params(tickers ...string) DownloadParams {
	return DownloadParams{
		Tickers:   tickers,
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (suite *ClientTestSuite) TestNewClient() {
	testCases := []struct {
		name        string
		config      ClientConfig
		expectError bool
	}{
		{"binance", ClientConfig{ProviderType: ProviderBinance, DataPath: "data"}, false},
		{"polygon with key", ClientConfig{ProviderType: ProviderPolygon, DataPath: "data", PolygonApiKey: "key"}, false},
		{"polygon without key", ClientConfig{ProviderType: ProviderPolygon, DataPath: "data"}, true},
		{"unknown provider", ClientConfig{ProviderType: "alpaca", DataPath: "data"}, true},
		{"missing data path", ClientConfig{ProviderType: ProviderBinance}, true},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			client, err := NewClient(tc.config, nil)
			if tc.expectError {
				suite.Error(err)
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
				suite.Nil(client)

				return
			}

			suite.NoError(err)
			suite.NotNil(client)
		})
	}
}

func (suite *ClientTestSuite) TestDownload() {
	spy := mocks.LinearSeries("SPY", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 40, 100, 110)
	qqq := mocks.FlatSeries("QQQ", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 40, 300)

	suite.mockProvider.EXPECT().SetProgress(gomock.Any()).Times(1)
	gomock.InOrder(
		suite.mockProvider.EXPECT().Bars(gomock.Any(), "SPY").Return(spy, nil),
		suite.mockProvider.EXPECT().Bars(gomock.Any(), "QQQ").Return(qqq, nil),
	)

	paths, err := suite.newClient().Download(context.Background(), suite.params("SPY", "QQQ"))
	suite.Require().NoError(err)
	suite.Equal([]string{
		filepath.Join(suite.dataPath, "SPY_2024-01-01_2024-03-01.parquet"),
		filepath.Join(suite.dataPath, "QQQ_2024-01-01_2024-03-01.parquet"),
	}, paths)
	suite.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), suite.dates.End)

	series, err := writer.ReadBars(paths[0])
	suite.Require().NoError(err)
	suite.Require().Len(series, 1)
	suite.Equal("SPY", series[0].Symbol)
	suite.Len(series[0].Bars, 40)
	suite.InDelta(110.0, series[0].Bars[39].AdjustedClose, 1e-9)
}

func (suite *ClientTestSuite) TestDownload_ProviderError() {
	spy := mocks.FlatSeries("SPY", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 10, 50)

	suite.mockProvider.EXPECT().SetProgress(gomock.Any())
	suite.mockProvider.EXPECT().Bars(gomock.Any(), "SPY").Return(spy, nil)
	suite.mockProvider.EXPECT().Bars(gomock.Any(), "NOPE").
		Return(types.BarSeries{}, errors.New(errors.ErrCodeMissingData, "no bars"))

	paths, err := suite.newClient().Download(context.Background(), suite.params("SPY", "NOPE"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingData))
	suite.Contains(err.Error(), "NOPE")
	suite.Len(paths, 1)
}

func (suite *ClientTestSuite) TestDownload_InvalidParams() {
	params := suite.params("SPY")
	params.EndDate = params.StartDate.AddDate(0, 0, -1)

	_, err := suite.newClient().Download(context.Background(), params)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = suite.newClient().Download(context.Background(), suite.params())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *ClientTestSuite) TestDownload_CancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	suite.mockProvider.EXPECT().SetProgress(gomock.Any())

	paths, err := suite.newClient().Download(ctx, suite.params("SPY"))
	suite.ErrorIs(err, context.Canceled)
	suite.Empty(paths)
}

func (suite *ClientTestSuite) TestOutputPathStripsSlash() {
	client := suite.newClient()

	path := client.outputPath("BTC/USDT", suite.params())
	suite.Equal(filepath.Join(suite.dataPath, "BTCUSDT_2024-01-01_2024-03-01.parquet"), path)
}
