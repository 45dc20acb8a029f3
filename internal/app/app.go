// Package app encapsulates the application's dependencies, configuration,
// and lifecycle: scenario loading, network assembly, interface wiring, and
// the simulation run itself.
package app

import (
	"io"
	"log/slog"

	"github.com/vk/powerstep/internal/attribute"
	"github.com/vk/powerstep/internal/component"
)

// NetworkFactory assembles the circuit into an attribute registry and
// reports the system dimension (node rows plus source branch rows).
// Topology-file parsing lives outside the kernel; callers hand the kernel
// an already-assembled network.
type NetworkFactory func(reg *attribute.Registry) (comps []component.Component, systemSize int, err error)

// App encapsulates one simulation run's dependencies and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	network NetworkFactory
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger. A nil network
// factory selects the built-in demonstration network.
func NewApp(outW io.Writer, cfg *Config, network NetworkFactory) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")
	if network == nil {
		network = DefaultNetwork
	}
	return &App{outW: outW, logger: logger, network: network}
}
