package app

import (
	"errors"
	"fmt"
	"slices"
)

// Accepted values for Config fields.
var (
	LogLevels     = []string{"debug", "info", "warn", "error"}
	LogFormats    = []string{"text", "json"}
	OutputFormats = []string{"text", "json"}
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPaths []string // hcl files or directories

	LogFormat string
	LogLevel  string

	// Output selects the report format.
	Output string
	// Recompile is the number of extra compiles after the first one.
	Recompile int
	// Metrics appends the builder metrics to the report.
	Metrics bool
}

// NewConfig validates cfg and fills in empty optional fields.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.GraphPaths) == 0 {
		return nil, errors.New("GraphPaths is a required configuration field and cannot be empty")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "text"
	}
	if !slices.Contains(LogLevels, cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log level %q: must be one of %v", cfg.LogLevel, LogLevels)
	}
	if !slices.Contains(LogFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log format %q: must be one of %v", cfg.LogFormat, LogFormats)
	}
	if !slices.Contains(OutputFormats, cfg.Output) {
		return nil, fmt.Errorf("invalid output %q: must be one of %v", cfg.Output, OutputFormats)
	}
	if cfg.Recompile < 0 {
		return nil, fmt.Errorf("recompile count cannot be negative, got %d", cfg.Recompile)
	}
	return &cfg, nil
}
