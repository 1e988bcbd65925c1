// Package utils provides logging and float helpers shared across diachron.
package utils

import "go.uber.org/zap"

// NewLogger returns a zap logger named "diachron". When debug is true, uses development
// config (human-readable, debug level); otherwise production config (JSON, info level).
// outputPaths replaces the default stderr sink when given.
func NewLogger(debug bool, outputPaths ...string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	if len(outputPaths) > 0 {
		cfg.OutputPaths = outputPaths
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("diachron"), nil
}
