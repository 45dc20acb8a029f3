package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenarioPath string // hcl file

	// Overrides for the scenario's simulation block; zero means "use the
	// scenario's value".
	TimeStep  float64
	Duration  float64
	Frequency float64

	LogFormat string
	LogLevel  string
}

// NewConfig validates a config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScenarioPath == "" {
		return nil, errors.New("ScenarioPath is a required configuration field and cannot be empty")
	}
	if cfg.TimeStep < 0 {
		return nil, errors.New("TimeStep override cannot be negative")
	}
	if cfg.Duration < 0 {
		return nil, errors.New("Duration override cannot be negative")
	}
	return &cfg, nil
}
