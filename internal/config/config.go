// Package config loads binder settings from defaults, an optional YAML file
// and the environment, in that order.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PROPERTY_BINDER_"

// Config holds the binder settings. CacheTTL is how long an unused binding
// stays cached; SweepInterval is how often idle bindings are evicted.
type Config struct {
	CacheTTL         time.Duration `yaml:"cache_ttl"         env:"CACHE_TTL"         validate:"gt=0"`
	SweepInterval    time.Duration `yaml:"sweep_interval"    env:"SWEEP_INTERVAL"    validate:"gt=0"`
	MetricsNamespace string        `yaml:"metrics_namespace" env:"METRICS_NAMESPACE" validate:"required"`
	LogLevel         string        `yaml:"log_level"         env:"LOG_LEVEL"         validate:"oneof=debug info warn error"`
	Development      bool          `yaml:"development"       env:"DEVELOPMENT"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		CacheTTL:         10 * time.Minute,
		SweepInterval:    time.Minute,
		MetricsNamespace: "property_binder",
		LogLevel:         "info",
	}
}

// Load returns Default overlaid with the YAML file at path, when path is not
// empty, and then with the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "failed to read config file %s", path)
		}

		if err := Parse(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Parse overlays the YAML document in data onto cfg. Keys missing from the
// document keep their current values.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(err, "failed to parse config YAML")
	}

	return nil
}

// Validate checks the field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	return nil
}
