// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the shared application logger. It defaults to a no-op logger so
// packages can log safely before InitLogger runs.
var L = zap.NewNop()

// InitLogger replaces the global logger with a production zap logger.
// Call it once at startup, before any command logic executes.
func InitLogger() {
	logger, err := New(false)
	if err != nil {
		panic(fmt.Sprintf("initialize logger: %v", err))
	}
	L = logger
}

// New builds a zap.Logger configured for development or production.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = false
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

// NewWithFile builds a logger that tees output to both stderr and the given
// file path. Used when the batch command runs with --log-file.
func NewWithFile(development bool, path string) (*zap.Logger, error) {
	if path == "" {
		return New(development)
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.OutputPaths = []string{"stderr", path}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build file logger: %w", err)
	}
	return logger, nil
}
