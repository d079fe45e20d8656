package provider

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// binanceDailyInterval is the kline interval of a daily bar.
const binanceDailyInterval = "1d"

// binancePageSize is the number of klines requested per call.
const binancePageSize = 1000

// BinanceKlinesFetcher fetches one page of klines.
type BinanceKlinesFetcher interface {
	Klines(ctx context.Context, symbol string, interval string, startMillis int64, endMillis int64, limit int) ([]*binance.Kline, error)
}

type binanceRESTClient struct {
	client *binance.Client
}

func (c *binanceRESTClient) Klines(ctx context.Context, symbol string, interval string, startMillis int64, endMillis int64, limit int) ([]*binance.Kline, error) {
	return c.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(startMillis).
		EndTime(endMillis).
		Limit(limit).
		Do(ctx)
}

// BinanceClient fetches daily klines from the Binance public market data API.
// Crypto prices carry no corporate actions, so the adjusted close is the close.
type BinanceClient struct {
	fetcher    BinanceKlinesFetcher
	dates      Range
	onProgress OnDownloadProgress
}

func NewBinanceClient(dates Range) (Provider, error) {
	if err := dates.Validate(); err != nil {
		return nil, err
	}

	return NewBinanceClientWithFetcher(&binanceRESTClient{client: binance.NewClient("", "")}, dates), nil
}

// NewBinanceClientWithFetcher creates a client over the given fetcher.
func NewBinanceClientWithFetcher(fetcher BinanceKlinesFetcher, dates Range) *BinanceClient {
	return &BinanceClient{
		fetcher:    fetcher,
		dates:      dates,
		onProgress: nil,
	}
}

// SetProgress implements Provider.
func (c *BinanceClient) SetProgress(onProgress OnDownloadProgress) {
	c.onProgress = onProgress
}

// Bars implements Provider. Requests are paged until a short page is returned
// or the end date is reached.
func (c *BinanceClient) Bars(ctx context.Context, symbol string) (types.BarSeries, error) {
	// Binance API uses milliseconds for timestamps
	startMillis := c.dates.Start.UnixMilli()
	endMillis := c.dates.End.Add(24*time.Hour - time.Millisecond).UnixMilli()

	var bars []types.PriceBar

	current := startMillis

	for {
		if err := ctx.Err(); err != nil {
			return types.BarSeries{}, err
		}

		klines, err := c.fetcher.Klines(ctx, symbol, binanceDailyInterval, current, endMillis, binancePageSize)
		if err != nil {
			return types.BarSeries{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s from Binance", symbol)
		}

		for _, k := range klines {
			bar, err := klineToBar(k)
			if err != nil {
				return types.BarSeries{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid kline for %s", symbol)
			}

			bars = append(bars, bar)
		}

		if c.onProgress != nil {
			c.onProgress(float64(current-startMillis), float64(endMillis-startMillis), progressMessage(symbol, "Binance"))
		}

		if len(klines) < binancePageSize {
			break
		}

		// Use the close time of the last kline + 1ms to avoid duplicates
		current = klines[len(klines)-1].CloseTime + 1
		if current >= endMillis {
			break
		}
	}

	if len(bars) == 0 {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeMissingData, "binance returned no klines for %s", symbol)
	}

	return types.BarSeries{Symbol: symbol, Bars: sortAndDedupe(bars)}, nil
}

func klineToBar(k *binance.Kline) (types.PriceBar, error) {
	fields := []string{k.Open, k.High, k.Low, k.Close, k.Volume}
	values := make([]float64, len(fields))

	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return types.PriceBar{}, err
		}

		values[i] = v
	}

	openTime := time.UnixMilli(k.OpenTime).UTC()

	return types.PriceBar{
		Date:          time.Date(openTime.Year(), openTime.Month(), openTime.Day(), 0, 0, 0, 0, time.UTC),
		Open:          values[0],
		High:          values[1],
		Low:           values[2],
		Close:         values[3],
		AdjustedClose: values[3],
		Volume:        values[4],
	}, nil
}
