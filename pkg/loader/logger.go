// SPDX-License-Identifier: Apache-2.0

package loader

import "github.com/pterm/pterm"

// Logger is the narrow logging surface used across the engine: the
// migration runner, the clone-test-apply pipeline, and the subset exposed
// to user migrations as MigrationContext.Log. Grounded on the teacher's
// pkg/migrations/logger.go, which wraps pterm.DefaultLogger behind a
// similarly narrow interface — trimmed here to Info/Warn/Error since this
// engine has no per-operation or per-schema logging events to name.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type ptermLogger struct {
	logger pterm.Logger
}

// NewLogger returns a pterm-backed Logger, the default for CLI use.
func NewLogger() Logger {
	return &ptermLogger{logger: pterm.DefaultLogger}
}

func (l *ptermLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, l.logger.Args(args))
}

func (l *ptermLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, l.logger.Args(args))
}

func (l *ptermLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, l.logger.Args(args))
}

type noopLogger struct{}

// NewNoopLogger returns a Logger that discards everything, for tests and
// library callers that don't want console output.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (*noopLogger) Info(msg string, args ...any)  {}
func (*noopLogger) Warn(msg string, args ...any)  {}
func (*noopLogger) Error(msg string, args ...any) {}
