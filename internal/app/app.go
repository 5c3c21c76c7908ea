package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/framegraph/internal/builder"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *prometheus.Registry
	metrics  *builder.Metrics
}

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	logW io.Writer
}

// WithLogWriter sends log records to w instead of the report writer.
func WithLogWriter(w io.Writer) Option {
	return func(o *appOptions) { o.logW = w }
}

// New is the constructor for the main application. Each App owns its logger
// and metrics registry, so several can run side by side.
func New(outW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	o := appOptions{logW: outW}
	for _, opt := range opts {
		opt(&o)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, o.logW)
	logger.Debug("Logger configured successfully.")

	reg := prometheus.NewRegistry()
	metrics, err := builder.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		registry: reg,
		metrics:  metrics,
	}, nil
}

// Registry returns the application's metrics registry. This is primarily for testing.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}
