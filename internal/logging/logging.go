// Package logging wires a single process-wide structured logger for
// speckit-flow, named per component the way hector's subsystems are.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Logger is the structured logger type used throughout the module.
type Logger = hclog.Logger

// Options configures the root logger.
type Options struct {
	Level  string // "trace", "debug", "info", "warn", "error"
	JSON   bool
	Output io.Writer // defaults to os.Stderr
}

// New builds the root logger for a component named "speckit-flow".
func New(opts Options) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := hclog.Info
	if opts.Level != "" {
		level = hclog.LevelFromString(opts.Level)
		if level == hclog.NoLevel {
			level = hclog.Info
		}
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "speckit-flow",
		Level:      level,
		Output:     out,
		JSONFormat: opts.JSON,
	})
}

// Discard returns a logger that drops everything, for tests.
func Discard() Logger {
	return hclog.NewNullLogger()
}
