// SPDX-License-Identifier: Apache-2.0

package squash

import "github.com/pterm/pterm"

// Logger is responsible for logging the steps of a squash.
type Logger interface {
	LogStepStart(step Step, args ...any)
	LogStepComplete(step Step, args ...any)

	Info(msg string, args ...any)
}

type squashLogger struct {
	logger pterm.Logger
}

type noopLogger struct{}

func NewLogger() Logger {
	return &squashLogger{logger: pterm.DefaultLogger}
}

func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (l *squashLogger) LogStepStart(step Step, args ...any) {
	l.logger.Info("starting "+string(step), l.logger.Args(args...))
}

func (l *squashLogger) LogStepComplete(step Step, args ...any) {
	l.logger.Info("completed "+string(step), l.logger.Args(args...))
}

func (l *squashLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, l.logger.Args(args...))
}

func (l *noopLogger) LogStepStart(step Step, args ...any)    {}
func (l *noopLogger) LogStepComplete(step Step, args ...any) {}
func (l *noopLogger) Info(msg string, args ...any)           {}
