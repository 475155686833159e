package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
// Any extra paths are added as outputs next to stderr, so a run can keep its own log file.
func NewLogger(debug bool, files ...string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = append([]string{"stderr"}, files...)
	return cfg.Build()
}
