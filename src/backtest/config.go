package backtest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the recognized engine options.
type Config struct {
	Symbol             string  `yaml:"symbol"`
	FastWindow         int     `yaml:"fast_window"`
	SlowWindow         int     `yaml:"slow_window"`
	VolatilityFraction float64 `yaml:"volatility_fraction"`
	LookbackIntervals  int     `yaml:"lookback_intervals"`
	ContractSize       int     `yaml:"contract_size"`
	StartingCash       float64 `yaml:"starting_cash"`
}

func DefaultConfig() Config {
	return Config{
		FastWindow:         20,
		SlowWindow:         50,
		VolatilityFraction: 0,
		LookbackIntervals:  20,
		ContractSize:       100,
		StartingCash:       1_000_000,
	}
}

func (c Config) Validate() error {
	if c.FastWindow <= 0 || c.SlowWindow <= 0 {
		return fmt.Errorf("fast_window and slow_window must be greater than 0")
	}

	if c.LookbackIntervals <= 0 {
		return fmt.Errorf("lookback_intervals must be greater than 0")
	}

	if c.ContractSize <= 0 {
		return fmt.Errorf("contract_size must be greater than 0")
	}

	if c.VolatilityFraction < 0 {
		return fmt.Errorf("volatility_fraction must not be negative")
	}

	if c.StartingCash <= 0 {
		return fmt.Errorf("starting_cash must be greater than 0")
	}

	return nil
}

// LoadConfig reads a yaml config file over the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}
