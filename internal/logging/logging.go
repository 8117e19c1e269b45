// Package logging wires up the zap logger shared by the dispatcher and
// the demonstration CLI, matching the construction the teacher's
// main.go used for its poller/server binary.
package logging

import "go.uber.org/zap"

// New builds a *zap.SugaredLogger at Info level, or Debug when debug is
// true. It starts from zap's development config with Development
// turned off, which changes only DPanic handling and stack-trace
// capture; the encoder stays the development config's console encoder.
func New(debug bool) *zap.SugaredLogger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	cfg.Development = false

	return zap.Must(cfg.Build()).Sugar()
}
