package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/suite"

	apperrors "github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// mockPolygonAPIClient implements PolygonAPIClient for testing.
type mockPolygonAPIClient struct {
	iterator   PolygonAggsIterator
	lastParams *models.ListAggsParams
}

func (m *mockPolygonAPIClient) ListAggs(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) PolygonAggsIterator {
	m.lastParams = params

	return m.iterator
}

// mockPolygonIterator implements PolygonAggsIterator for testing.
type mockPolygonIterator struct {
	aggs  []models.Agg
	index int
	err   error
}

func (m *mockPolygonIterator) Next() bool {
	if m.index < len(m.aggs) {
		m.index++
		return true
	}
	return false
}

func (m *mockPolygonIterator) Item() models.Agg {
	if m.index > 0 && m.index <= len(m.aggs) {
		return m.aggs[m.index-1]
	}
	return models.Agg{}
}

func (m *mockPolygonIterator) Err() error {
	return m.err
}

type PolygonClientTestSuite struct {
	suite.Suite
	dates Range
}

func TestPolygonClientSuite(t *testing.T) {
	suite.Run(t, new(PolygonClientTestSuite))
}

func (suite *PolygonClientTestSuite) SetupTest() {
	suite.dates = Range{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

// newYorkMidnight is how Polygon stamps a daily aggregate.
func newYorkMidnight(year int, month time.Month, day int) models.Millis {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}

	return models.Millis(time.Date(year, month, day, 0, 0, 0, 0, loc))
}

func (suite *PolygonClientTestSuite) TestNewPolygonClient_ValidApiKey() {
	client, err := NewPolygonClient("test-api-key", suite.dates)
	suite.NoError(err)
	suite.NotNil(client)

	polygonClient, ok := client.(*PolygonClient)
	suite.True(ok)
	suite.NotNil(polygonClient.apiClient)
	suite.Nil(polygonClient.onProgress)
}

func (suite *PolygonClientTestSuite) TestNewPolygonClient_EmptyApiKey() {
	client, err := NewPolygonClient("", suite.dates)
	suite.Error(err)
	suite.Nil(client)
	suite.Contains(err.Error(), "apiKey is required")
}

func (suite *PolygonClientTestSuite) TestNewPolygonClient_InvalidRange() {
	_, err := NewPolygonClient("key", Range{Start: suite.dates.End, End: suite.dates.Start})
	suite.Error(err)
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeInvalidParameter))
}

func (suite *PolygonClientTestSuite) TestBars() {
	iterator := &mockPolygonIterator{aggs: []models.Agg{
		{Timestamp: newYorkMidnight(2024, 1, 3), Open: 101, High: 103, Low: 100, Close: 102, Volume: 2000},
		{Timestamp: newYorkMidnight(2024, 1, 2), Open: 100, High: 102, Low: 99, Close: 101, Volume: 1000},
	}}
	api := &mockPolygonAPIClient{iterator: iterator}
	client := NewPolygonClientWithAPI(api, suite.dates)

	var progress []float64
	client.SetProgress(func(current float64, total float64, message string) {
		progress = append(progress, current)
		suite.Contains(message, "SPY")
	})

	series, err := client.Bars(context.Background(), "SPY")
	suite.Require().NoError(err)
	suite.Equal("SPY", series.Symbol)
	suite.Require().Len(series.Bars, 2)

	// sorted ascending, stamped at UTC midnight of the trading day
	suite.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), series.Bars[0].Date)
	suite.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), series.Bars[1].Date)
	suite.Equal(101.0, series.Bars[0].AdjustedClose)
	suite.Equal(1000.0, series.Bars[0].Volume)
	suite.Len(progress, 2)

	suite.Require().NotNil(api.lastParams)
	suite.Equal("SPY", api.lastParams.Ticker)
	suite.Equal(models.Day, api.lastParams.Timespan)
	suite.Equal(1, api.lastParams.Multiplier)
	suite.Require().NotNil(api.lastParams.Adjusted)
	suite.True(*api.lastParams.Adjusted)
}

func (suite *PolygonClientTestSuite) TestBars_Empty() {
	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{iterator: &mockPolygonIterator{}}, suite.dates)

	_, err := client.Bars(context.Background(), "NOPE")
	suite.Error(err)
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeMissingData))
}

func (suite *PolygonClientTestSuite) TestBars_IteratorError() {
	iterator := &mockPolygonIterator{err: errors.New("rate limited")}
	client := NewPolygonClientWithAPI(&mockPolygonAPIClient{iterator: iterator}, suite.dates)

	_, err := client.Bars(context.Background(), "SPY")
	suite.Error(err)
	suite.True(apperrors.HasCode(err, apperrors.ErrCodeMarketDataFetchFailed))
	suite.Contains(err.Error(), "rate limited")
}
