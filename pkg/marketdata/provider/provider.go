// Package provider fetches daily bar history from market data vendors.
package provider

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/types"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// OnDownloadProgress reports download progress for one ticker.
type OnDownloadProgress = func(current float64, total float64, message string)

// Provider is a bar source backed by a remote vendor. Bars fetches the daily
// history of one ticker between the provider's start and end dates.
type Provider interface {
	Bars(ctx context.Context, symbol string) (types.BarSeries, error)
	// SetProgress sets the progress callback. nil disables reporting.
	SetProgress(onProgress OnDownloadProgress)
}

// Range is the inclusive date range a provider fetches.
type Range struct {
	Start time.Time
	End   time.Time
}

// Validate checks that the range is non-empty.
func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return errors.New(errors.ErrCodeMissingParameter, "start and end dates are required")
	}

	if r.End.Before(r.Start) {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"end date %s is before start date %s", r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}

	return nil
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
// Polygon requires the API key as config.
func NewMarketDataProvider(providerType ProviderType, dates Range, config any) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceClient(dates)
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidProvider, "polygon provider requires API key string config")
		}

		return NewPolygonClient(apiKey, dates)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}

// sortAndDedupe orders bars by date and keeps the last bar of each day.
func sortAndDedupe(bars []types.PriceBar) []types.PriceBar {
	byDay := make(map[int64]int, len(bars))
	out := make([]types.PriceBar, 0, len(bars))

	for _, bar := range bars {
		key := types.DateKey(bar.Date)
		if i, ok := byDay[key]; ok {
			out[i] = bar

			continue
		}

		byDay[key] = len(out)
		out = append(out, bar)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	return out
}

func progressMessage(ticker string, source string) string {
	return fmt.Sprintf("Downloading %s from %s", ticker, source)
}
