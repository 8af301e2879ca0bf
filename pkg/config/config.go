// Package config loads tracegen settings.
//
// Values are layered, later sources winning:
//
//  1. built-in defaults (the job trace input layout)
//  2. a YAML file given with --config
//  3. a .env file in the working directory
//  4. TRACEGEN_* environment variables
//  5. command line flags, applied by the caller
//
// Validate must be called after the last layer is applied.
package config

import (
	"os"

	"github.com/YuminosukeSato/tracegen/pkg/errors"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRACEGEN_"

// Config is the full tracegen configuration. The env tags name the
// environment overrides without EnvPrefix; list values are comma separated.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Store    StoreConfig    `yaml:"store"`
	Simulate SimulateConfig `yaml:"simulate"`
	Log      LogConfig      `yaml:"log"`
	Report   ReportConfig   `yaml:"report"`
}

// InputConfig describes the grouped input table and the grouping policy.
type InputConfig struct {
	GroupKey  int `yaml:"group_key" env:"GROUP_KEY" validate:"gte=0"`
	TagColumn int `yaml:"tag_column" env:"TAG_COLUMN" validate:"gte=0"`

	// Columns are the value columns in output order.
	Columns []int `yaml:"columns" env:"COLUMNS" envSeparator:"," validate:"required,min=1,unique,dive,gte=0"`

	// IntColumns use the input numbering.
	IntColumns []int `yaml:"int_columns" env:"INT_COLUMNS" envSeparator:"," validate:"unique,dive,gte=0"`

	// MaxGroups caps the stored groups; 0 means no cap.
	MaxGroups int `yaml:"max_groups" env:"MAX_GROUPS" validate:"gte=0"`

	SupportThreshold int `yaml:"support_threshold" env:"SUPPORT_THRESHOLD" validate:"gte=2"`
}

// StoreConfig selects the distribution store backend.
type StoreConfig struct {
	Backend string `yaml:"backend" env:"STORE" validate:"oneof=array table sqlite"`
}

// SimulateConfig controls synthesis.
type SimulateConfig struct {
	Seed uint64 `yaml:"seed" env:"SEED"`

	// Workers is the number of groups processed concurrently; 0 means one
	// per CPU.
	Workers int `yaml:"workers" env:"WORKERS" validate:"gte=0"`

	// TagColumn heads the group column of the consolidated file.
	TagColumn string `yaml:"tag_column" env:"CONSOLIDATED_TAG" validate:"required"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" validate:"oneof=console json"`
}

// ReportConfig enables optional outputs. Empty paths disable them.
type ReportConfig struct {
	MetricsFile string `yaml:"metrics_file" env:"METRICS_FILE"`
	PlotDir     string `yaml:"plot_dir" env:"PLOT_DIR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			GroupKey:         2,
			TagColumn:        2,
			Columns:          []int{1, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
			IntColumns:       []int{1, 3, 4, 5, 6, 7, 11, 12, 13, 14, 15, 16},
			MaxGroups:        10,
			SupportThreshold: 5,
		},
		Store:    StoreConfig{Backend: "array"},
		Simulate: SimulateConfig{Seed: 1, Workers: 1, TagColumn: "HT1"},
		Log:      LogConfig{Level: "info", Format: "console"},
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped
// when path is empty), ./.env and the process environment. It does not
// validate.
func Load(path string) (*Config, error) {
	return load(path, ".env", nil)
}

// load reads the environment overrides from environ, or from the process
// environment after the dotenv file is applied when environ is nil.
func load(path, dotenv string, environ map[string]string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if dotenv != "" {
		// .env never overrides variables already set in the environment.
		if err := godotenv.Load(dotenv); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "load %s", dotenv)
		}
	}
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}
	if err := cfg.applyEnv(environ); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides the fields whose variable is set and non-empty.
func (c *Config) applyEnv(environ map[string]string) error {
	err := env.ParseWithOptions(c, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	})
	if err == nil {
		return nil
	}
	if agg, ok := err.(env.AggregateError); ok {
		for _, e := range agg.Errors {
			if pe, ok := e.(env.ParseError); ok {
				return errors.NewValidationError(pe.Name, pe.Err.Error(), pe.Type.String())
			}
		}
	}
	return errors.Wrap(err, "read environment overrides")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fe.Namespace(), "failed '"+fe.Tag()+"' constraint", fe.Value())
		}
		return errors.Wrap(err, "validate config")
	}
	return nil
}
