// Package logging builds the leveled logger used by adbrec. Output is
// all-or-nothing: when verbose logging is off every entry is discarded, so
// diagnostics never reach the test run's console unless asked for.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ComponentKey is the field carrying the emitting component's name.
const ComponentKey = "component"

// DefaultComponent names entries emitted by the recorder.
const DefaultComponent = "adbrec"

// Options configures New.
type Options struct {
	// Component is attached to every entry. Defaults to DefaultComponent.
	Component string

	// Verbose enables output down to debug level. When false, output is
	// discarded.
	Verbose bool

	// Output receives log lines. Defaults to os.Stderr.
	Output io.Writer

	// Color forces ANSI colour on or off; ColorAuto detects a terminal.
	Color ColorMode

	// DisableTimestamp drops the leading timestamp.
	DisableTimestamp bool

	// JSON switches to logrus' JSON formatter.
	JSON bool
}

// New creates a logger entry configured from opts.
func New(opts Options) *logrus.Entry {
	logger := logrus.New()

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	if opts.Verbose {
		logger.SetOutput(out)
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetOutput(io.Discard)
		logger.SetLevel(logrus.InfoLevel)
	}

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&TextFormatter{
			DisableTimestamp: opts.DisableTimestamp,
			Color:            resolveColor(opts.Color, out),
		})
	}

	component := opts.Component
	if component == "" {
		component = DefaultComponent
	}
	return logger.WithField(ComponentKey, component)
}

// Discard returns a logger that drops everything. Useful as a default for
// collaborators constructed without a logger.
func Discard() *logrus.Entry {
	return New(Options{})
}
