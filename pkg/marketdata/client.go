// Package marketdata downloads daily bar history from a vendor into parquet
// files the backtest engine can read.
package marketdata

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/writer"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/marketdata/provider"
)

// ProviderType defines the type of market data provider.
type ProviderType = provider.ProviderType

const (
	ProviderPolygon = provider.ProviderPolygon
	ProviderBinance = provider.ProviderBinance
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  ProviderType `validate:"required,oneof=polygon binance"`
	DataPath      string       `validate:"required"`
	PolygonApiKey string       `validate:"required_if=ProviderType polygon"`
}

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Tickers   []string  `validate:"required,min=1,dive,required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
}

// ProviderFactory builds a provider for one date range.
type ProviderFactory func(dates provider.Range) (provider.Provider, error)

// Client downloads bars through a provider and stores one parquet file per ticker.
type Client struct {
	newProvider ProviderFactory
	config      ClientConfig
	validate    *validator.Validate
	onProgress  provider.OnDownloadProgress
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress) (*Client, error) {
	factory := func(dates provider.Range) (provider.Provider, error) {
		return provider.NewMarketDataProvider(config.ProviderType, dates, config.PolygonApiKey)
	}

	return NewClientWithFactory(config, factory, onProgress)
}

// NewClientWithFactory creates a client that builds its providers with factory.
func NewClientWithFactory(config ClientConfig, factory ProviderFactory, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	return &Client{
		newProvider: factory,
		config:      config,
		validate:    validate,
		onProgress:  onProgress,
	}, nil
}

// Download fetches every ticker and returns the written file paths in ticker
// order. The context can be used to cancel the download between tickers.
func (c *Client) Download(ctx context.Context, params DownloadParams) ([]string, error) {
	if err := c.validate.Struct(params); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	marketProvider, err := c.newProvider(provider.Range{Start: params.StartDate, End: params.EndDate})
	if err != nil {
		return nil, err
	}

	marketProvider.SetProgress(c.onProgress)

	paths := make([]string, 0, len(params.Tickers))

	for _, ticker := range params.Tickers {
		if err := ctx.Err(); err != nil {
			return paths, err
		}

		series, err := marketProvider.Bars(ctx, ticker)
		if err != nil {
			return paths, fmt.Errorf("download %s failed: %w", ticker, err)
		}

		path := c.outputPath(ticker, params)
		if err := writer.WriteBars(path, series); err != nil {
			return paths, err
		}

		paths = append(paths, path)
	}

	return paths, nil
}

// outputPath is DATA/TICKER_START_END.parquet. Slashes in crypto pairs are dropped.
func (c *Client) outputPath(ticker string, params DownloadParams) string {
	name := fmt.Sprintf("%s_%s_%s.parquet",
		strings.ReplaceAll(ticker, "/", ""),
		params.StartDate.Format(time.DateOnly),
		params.EndDate.Format(time.DateOnly))

	return filepath.Join(c.config.DataPath, name)
}
