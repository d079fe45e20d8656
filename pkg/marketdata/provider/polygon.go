package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// PolygonAggsIterator is the part of the Polygon aggregate iterator the
// client reads.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient lists aggregates. It is satisfied by an adapter around the
// Polygon REST client and by test fakes.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonRESTClient struct {
	client *polygon.Client
}

func (c *polygonRESTClient) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return c.client.ListAggs(ctx, params, options...)
}

// PolygonClient fetches split-adjusted daily aggregates from Polygon.io.
type PolygonClient struct {
	apiClient  PolygonAPIClient
	dates      Range
	location   *time.Location
	onProgress OnDownloadProgress
}

func NewPolygonClient(apiKey string, dates Range) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "apiKey is required")
	}

	if err := dates.Validate(); err != nil {
		return nil, err
	}

	client := NewPolygonClientWithAPI(&polygonRESTClient{client: polygon.New(apiKey)}, dates)

	return client, nil
}

// NewPolygonClientWithAPI creates a client over the given API.
func NewPolygonClientWithAPI(api PolygonAPIClient, dates Range) *PolygonClient {
	// Daily aggregates are stamped at midnight exchange time.
	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		location = time.UTC
	}

	return &PolygonClient{
		apiClient:  api,
		dates:      dates,
		location:   location,
		onProgress: nil,
	}
}

// SetProgress implements Provider.
func (c *PolygonClient) SetProgress(onProgress OnDownloadProgress) {
	c.onProgress = onProgress
}

// Bars implements Provider.
func (c *PolygonClient) Bars(ctx context.Context, symbol string) (types.BarSeries, error) {
	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(c.dates.Start),
		To:         models.Millis(c.dates.End),
	}.WithAdjusted(true).WithLimit(50000)

	totalDays := c.dates.End.Sub(c.dates.Start).Hours()/24 + 1
	it := c.apiClient.ListAggs(ctx, params)

	var bars []types.PriceBar

	for it.Next() {
		agg := it.Item()
		ts := time.Time(agg.Timestamp).In(c.location)
		date := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)

		bars = append(bars, types.PriceBar{
			Date:  date,
			Open:  agg.Open,
			High:  agg.High,
			Low:   agg.Low,
			Close: agg.Close,
			// adjusted=true applies splits to every price field
			AdjustedClose: agg.Close,
			Volume:        agg.Volume,
		})

		if c.onProgress != nil {
			c.onProgress(date.Sub(c.dates.Start).Hours()/24, totalDays, progressMessage(symbol, "Polygon"))
		}
	}

	if err := it.Err(); err != nil {
		return types.BarSeries{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "error iterating polygon aggregates for %s", symbol)
	}

	if len(bars) == 0 {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeMissingData, "polygon returned no bars for %s", symbol)
	}

	return types.BarSeries{Symbol: symbol, Bars: sortAndDedupe(bars)}, nil
}

func (c *PolygonClient) String() string {
	return fmt.Sprintf("polygon(%s..%s)", c.dates.Start.Format(time.DateOnly), c.dates.End.Format(time.DateOnly))
}
