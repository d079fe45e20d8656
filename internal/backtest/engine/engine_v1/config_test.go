package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/walkforward"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestEmptyConfig() {
	config := EmptyConfig()

	suite.Empty(config.Symbols)
	suite.Equal("v1", config.ModelVersion)
	suite.Equal([]int{3, 12, 21}, config.Horizons)
	suite.Equal(504, config.Lookback)
	suite.Equal(100, config.MinTrainRows)
	suite.Equal(1.0, config.Lambda)
	suite.Equal(walkforward.CadenceMonthly, config.Cadence)
	suite.Equal(5.0, config.CostBps)
	suite.Equal(1, config.Workers)
	suite.True(config.WriteCurves)
	suite.True(config.StartDate.IsNone())
	suite.True(config.EndDate.IsNone())
}

func (suite *ConfigTestSuite) TestTestConfig() {
	config := TestConfig([]string{"SPY"}, []int{21})

	suite.Equal([]string{"SPY"}, config.Symbols)
	suite.Equal([]int{21}, config.Horizons)
	suite.Equal(0.0, config.CostBps)
	suite.Equal(NoRounding, config.RoundPlaces)
	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestUnmarshalYAMLDefaults() {
	var config BacktestEngineV1Config
	err := yaml.Unmarshal([]byte("symbols: [SPY, QQQ]\n"), &config)

	suite.NoError(err)
	suite.Equal([]string{"SPY", "QQQ"}, config.Symbols)
	suite.Equal(EmptyConfig().Horizons, config.Horizons)
	suite.Equal(504, config.Lookback)
	suite.Equal(1.0, config.Lambda)
	suite.Equal(walkforward.CadenceMonthly, config.Cadence)
	suite.Equal(5.0, config.CostBps)
	suite.Equal(6, config.RoundPlaces)
	suite.True(config.WriteCurves)
	suite.Equal("info", config.LogLevel)
	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestUnmarshalYAMLComplete() {
	yamlData := `
symbols: [SPY]
model_version: ridge-v2
horizons: [5, 10]
lookback: 252
min_train_rows: 60
lambda: 0.5
cadence: weekly
cost_bps: 0
purge_overlap: true
workers: 4
round_places: 0
write_curves: false
log_level: debug
start_date: 2015-01-01
end_date: 2023-12-31T00:00:00Z
`

	var config BacktestEngineV1Config
	err := yaml.Unmarshal([]byte(yamlData), &config)

	suite.NoError(err)
	suite.Equal("ridge-v2", config.ModelVersion)
	suite.Equal([]int{5, 10}, config.Horizons)
	suite.Equal(252, config.Lookback)
	suite.Equal(60, config.MinTrainRows)
	suite.Equal(0.5, config.Lambda)
	suite.Equal(walkforward.CadenceWeekly, config.Cadence)
	// explicit zeros are kept, not replaced by defaults
	suite.Equal(0.0, config.CostBps)
	suite.Equal(0, config.RoundPlaces)
	suite.False(config.WriteCurves)
	suite.True(config.PurgeOverlap)
	suite.Equal(4, config.Workers)
	suite.Equal("debug", config.LogLevel)

	suite.True(config.StartDate.IsSome())
	suite.Equal(2015, config.StartDate.Unwrap().Year())
	suite.True(config.EndDate.IsSome())
	suite.Equal(time.December, config.EndDate.Unwrap().Month())

	suite.NoError(config.Validate())
}

func (suite *ConfigTestSuite) TestUnmarshalYAMLInvalid() {
	var config BacktestEngineV1Config
	err := yaml.Unmarshal([]byte("lookback: not_a_number\n"), &config)

	suite.Error(err)
}

func (suite *ConfigTestSuite) TestTrainerConfig() {
	config := EmptyConfig()
	config.PurgeOverlap = true
	config.Cadence = walkforward.CadenceQuarterly

	trainer := config.TrainerConfig()
	suite.Equal(504, trainer.Lookback)
	suite.Equal(100, trainer.MinTrainRows)
	suite.Equal(1.0, trainer.Lambda)
	suite.Equal(walkforward.CadenceQuarterly, trainer.Cadence)
	suite.True(trainer.PurgeOverlap)
	suite.NoError(trainer.Validate())
}

func (suite *ConfigTestSuite) TestValidate() {
	tests := []struct {
		name   string
		modify func(c *BacktestEngineV1Config)
	}{
		{"no symbols", func(c *BacktestEngineV1Config) { c.Symbols = nil }},
		{"empty symbol", func(c *BacktestEngineV1Config) { c.Symbols = []string{""} }},
		{"no horizons", func(c *BacktestEngineV1Config) { c.Horizons = nil }},
		{"zero horizon", func(c *BacktestEngineV1Config) { c.Horizons = []int{0} }},
		{"negative lambda", func(c *BacktestEngineV1Config) { c.Lambda = -1 }},
		{"unknown cadence", func(c *BacktestEngineV1Config) { c.Cadence = "daily" }},
		{"cost too large", func(c *BacktestEngineV1Config) { c.CostBps = 10000 }},
		{"no workers", func(c *BacktestEngineV1Config) { c.Workers = 0 }},
		{"unknown log level", func(c *BacktestEngineV1Config) { c.LogLevel = "trace" }},
		{"end before start", func(c *BacktestEngineV1Config) {
			c.StartDate = optional.Some(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			c.EndDate = optional.Some(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
		}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			config := TestConfig([]string{"SPY"}, []int{21})
			tt.modify(&config)

			err := config.Validate()
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	config := &BacktestEngineV1Config{}
	schema, err := config.GenerateSchema()

	suite.NoError(err)
	suite.NotNil(schema)
	suite.Equal("backtest-engine-v1-config", schema.Title)
	suite.Equal("Configuration schema for BacktestEngineV1", schema.Description)
	suite.Equal("http://json-schema.org/draft-07/schema#", schema.Version)
	suite.Contains(schema.Required, "symbols")
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	config := &BacktestEngineV1Config{}
	schemaJSON, err := config.GenerateSchemaJSON()

	suite.NoError(err)
	suite.NotEmpty(schemaJSON)

	var result map[string]interface{}
	err = json.Unmarshal([]byte(schemaJSON), &result)
	suite.NoError(err)
	suite.Equal("backtest-engine-v1-config", result["title"])

	properties, ok := result["properties"].(map[string]interface{})
	suite.Require().True(ok)
	suite.Contains(properties, "symbols")
	suite.Contains(properties, "horizons")

	cadence, ok := properties["cadence"].(map[string]interface{})
	suite.Require().True(ok)
	suite.ElementsMatch([]interface{}{"weekly", "monthly", "quarterly"}, cadence["enum"])

	startDate, ok := properties["start_date"].(map[string]interface{})
	suite.Require().True(ok)
	suite.Equal("date-time", startDate["format"])
}
