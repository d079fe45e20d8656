package marketdata

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// BaseDownloadConfig contains common fields for all download configurations.
type BaseDownloadConfig struct {
	Tickers   []string `json:"tickers" jsonschema:"title=Tickers,description=The symbols to download (e.g. SPY or BTCUSDT),minItems=1,required" validate:"required,min=1,dive,required"`
	StartDate string   `json:"startDate" jsonschema:"title=Start Date,description=First trading day (YYYY-MM-DD),format=date,required" validate:"required"`
	EndDate   string   `json:"endDate" jsonschema:"title=End Date,description=Last trading day (YYYY-MM-DD),format=date,required" validate:"required"`
}

// PolygonDownloadConfig contains configuration for downloading from Polygon.io.
type PolygonDownloadConfig struct {
	BaseDownloadConfig

	ApiKey string `json:"apiKey" jsonschema:"title=API Key,description=Polygon.io API key for authentication,required" validate:"required"`
}

// BinanceDownloadConfig contains configuration for downloading from Binance.
// Binance public market data API does not require authentication.
type BinanceDownloadConfig struct {
	BaseDownloadConfig
}

// Validate validates the BaseDownloadConfig fields.
func (c *BaseDownloadConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	start, err := time.Parse(time.DateOnly, c.StartDate)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid startDate format, expected YYYY-MM-DD", err)
	}

	end, err := time.Parse(time.DateOnly, c.EndDate)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid endDate format, expected YYYY-MM-DD", err)
	}

	if !end.After(start) {
		return errors.Newf(errors.ErrCodeInvalidParameter, "endDate %s must be after startDate %s", c.EndDate, c.StartDate)
	}

	return nil
}

// Validate validates the PolygonDownloadConfig.
func (c *PolygonDownloadConfig) Validate() error {
	if c.ApiKey == "" {
		return errors.New(errors.ErrCodeMissingParameter, "apiKey is required")
	}

	return c.BaseDownloadConfig.Validate()
}

// ToDownloadParams converts a validated BaseDownloadConfig to DownloadParams.
func (c *BaseDownloadConfig) ToDownloadParams() (DownloadParams, error) {
	if err := c.Validate(); err != nil {
		return DownloadParams{}, err
	}

	start, _ := time.Parse(time.DateOnly, c.StartDate)
	end, _ := time.Parse(time.DateOnly, c.EndDate)

	return DownloadParams{
		Tickers:   c.Tickers,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// ToClientConfig converts a PolygonDownloadConfig to ClientConfig.
func (c *PolygonDownloadConfig) ToClientConfig(dataPath string) ClientConfig {
	return ClientConfig{
		ProviderType:  ProviderPolygon,
		DataPath:      dataPath,
		PolygonApiKey: c.ApiKey,
	}
}

// ToClientConfig converts a BinanceDownloadConfig to ClientConfig.
func (c *BinanceDownloadConfig) ToClientConfig(dataPath string) ClientConfig {
	return ClientConfig{
		ProviderType:  ProviderBinance,
		DataPath:      dataPath,
		PolygonApiKey: "",
	}
}

// ParsePolygonConfig parses JSON into a PolygonDownloadConfig.
func ParsePolygonConfig(jsonConfig string) (*PolygonDownloadConfig, error) {
	var config PolygonDownloadConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ParseBinanceConfig parses JSON into a BinanceDownloadConfig.
func ParseBinanceConfig(jsonConfig string) (*BinanceDownloadConfig, error) {
	var config BinanceDownloadConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
