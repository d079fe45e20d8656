package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/guozhongyan/anxiousmonkey-backtests/internal/walkforward"
	"github.com/guozhongyan/anxiousmonkey-backtests/pkg/errors"
)

// NoRounding disables rounding of published statistics.
const NoRounding = -1

type BacktestEngineV1Config struct {
	Symbols      []string                   `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Instruments to backtest,minItems=1,required" validate:"required,min=1,dive,required"`
	ModelVersion string                     `yaml:"model_version" json:"model_version" jsonschema:"title=Model Version,description=Label the results are published under,default=v1" default:"v1" validate:"required"`
	Horizons     []int                      `yaml:"horizons" json:"horizons" jsonschema:"title=Horizons,description=Forward return horizons in trading days" default:"[3,12,21]" validate:"required,min=1,dive,gt=0"`
	Lookback     int                        `yaml:"lookback" json:"lookback" jsonschema:"title=Lookback,description=Maximum training rows per refit,minimum=1,default=504" default:"504" validate:"gt=0"`
	MinTrainRows int                        `yaml:"min_train_rows" json:"min_train_rows" jsonschema:"title=Minimum Training Rows,description=Smallest window that triggers a refit,minimum=1,default=100" default:"100" validate:"gt=0"`
	Lambda       float64                    `yaml:"lambda" json:"lambda" jsonschema:"title=Lambda,description=Ridge penalty,minimum=0,default=1" default:"1.0" validate:"gte=0"`
	Cadence      walkforward.Cadence        `yaml:"cadence" json:"cadence" jsonschema:"title=Cadence,description=Refit cadence" default:"monthly" validate:"oneof=weekly monthly quarterly"`
	CostBps      float64                    `yaml:"cost_bps" json:"cost_bps" jsonschema:"title=Cost,description=Transaction cost in basis points per unit of position change,minimum=0,default=5" default:"5" validate:"gte=0,lt=10000"`
	PurgeOverlap bool                       `yaml:"purge_overlap" json:"purge_overlap" jsonschema:"title=Purge Overlap,description=Drop training rows whose target window reaches the refit boundary"`
	Workers      int                        `yaml:"workers" json:"workers" jsonschema:"title=Workers,description=Runs executed in parallel,minimum=1,default=1" default:"1" validate:"gte=1"`
	RoundPlaces  int                        `yaml:"round_places" json:"round_places" jsonschema:"title=Round Places,description=Decimal places of published statistics (-1 disables rounding),minimum=-1,default=6" default:"6" validate:"gte=-1,lte=15"`
	WriteCurves  bool                       `yaml:"write_curves" json:"write_curves" jsonschema:"title=Write Curves,description=Write a parquet ledger per run,default=true" default:"true"`
	LogLevel     string                     `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info" default:"info" validate:"oneof=debug info warn error"`
	StartDate    optional.Option[time.Time] `yaml:"start_date" json:"start_date" jsonschema:"title=Start Date,description=Bars dated before this are ignored"`
	EndDate      optional.Option[time.Time] `yaml:"end_date" json:"end_date" jsonschema:"title=End Date,description=Bars dated after this are ignored"`
}

// UnmarshalYAML fills defaults first so that explicit zero values in the
// document survive.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		Symbols      []string            `yaml:"symbols"`
		ModelVersion string              `yaml:"model_version" default:"v1"`
		Horizons     []int               `yaml:"horizons" default:"[3,12,21]"`
		Lookback     int                 `yaml:"lookback" default:"504"`
		MinTrainRows int                 `yaml:"min_train_rows" default:"100"`
		Lambda       float64             `yaml:"lambda" default:"1.0"`
		Cadence      walkforward.Cadence `yaml:"cadence" default:"monthly"`
		CostBps      float64             `yaml:"cost_bps" default:"5"`
		PurgeOverlap bool                `yaml:"purge_overlap"`
		Workers      int                 `yaml:"workers" default:"1"`
		RoundPlaces  int                 `yaml:"round_places" default:"6"`
		WriteCurves  bool                `yaml:"write_curves" default:"true"`
		LogLevel     string              `yaml:"log_level" default:"info"`
		StartDate    *time.Time          `yaml:"start_date"`
		EndDate      *time.Time          `yaml:"end_date"`
	}

	var raw rawConfig
	if err := defaults.Set(&raw); err != nil {
		return err
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	*c = BacktestEngineV1Config{
		Symbols:      raw.Symbols,
		ModelVersion: raw.ModelVersion,
		Horizons:     raw.Horizons,
		Lookback:     raw.Lookback,
		MinTrainRows: raw.MinTrainRows,
		Lambda:       raw.Lambda,
		Cadence:      raw.Cadence,
		CostBps:      raw.CostBps,
		PurgeOverlap: raw.PurgeOverlap,
		Workers:      raw.Workers,
		RoundPlaces:  raw.RoundPlaces,
		WriteCurves:  raw.WriteCurves,
		LogLevel:     raw.LogLevel,
		StartDate:    optional.None[time.Time](),
		EndDate:      optional.None[time.Time](),
	}

	if raw.StartDate != nil {
		c.StartDate = optional.Some(raw.StartDate.UTC())
	}

	if raw.EndDate != nil {
		c.EndDate = optional.Some(raw.EndDate.UTC())
	}

	return nil
}

// Validate checks field constraints and the date range.
func (c *BacktestEngineV1Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if c.StartDate.IsSome() && c.EndDate.IsSome() && c.EndDate.Unwrap().Before(c.StartDate.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end_date is before start_date")
	}

	return nil
}

// TrainerConfig returns the walk-forward settings of the configuration.
func (c *BacktestEngineV1Config) TrainerConfig() walkforward.Config {
	return walkforward.Config{
		Lookback:     c.Lookback,
		MinTrainRows: c.MinTrainRows,
		Lambda:       c.Lambda,
		Cadence:      c.Cadence,
		PurgeOverlap: c.PurgeOverlap,
	}
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t {
			case reflect.TypeOf(optional.Option[time.Time]{}):
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			case reflect.TypeOf(walkforward.Cadence("")):
				return &jsonschema.Schema{
					Type: "string",
					Enum: []any{
						string(walkforward.CadenceWeekly),
						string(walkforward.CadenceMonthly),
						string(walkforward.CadenceQuarterly),
					},
					Default: string(walkforward.CadenceMonthly),
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a zero-cost configuration for the given symbols and horizons.
func TestConfig(symbols []string, horizons []int) BacktestEngineV1Config {
	config := EmptyConfig()
	config.Symbols = symbols
	config.Horizons = horizons
	config.CostBps = 0
	config.RoundPlaces = NoRounding

	return config
}

// EmptyConfig returns a BacktestEngineV1Config with default values and no symbols
func EmptyConfig() BacktestEngineV1Config {
	trainer := walkforward.DefaultConfig()

	return BacktestEngineV1Config{
		ModelVersion: "v1",
		Horizons:     []int{3, 12, 21},
		Lookback:     trainer.Lookback,
		MinTrainRows: trainer.MinTrainRows,
		Lambda:       trainer.Lambda,
		Cadence:      trainer.Cadence,
		CostBps:      5,
		Workers:      1,
		RoundPlaces:  6,
		WriteCurves:  true,
		LogLevel:     "info",
		StartDate:    optional.None[time.Time](),
		EndDate:      optional.None[time.Time](),
	}
}
