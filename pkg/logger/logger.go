package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger. LOG_LEVEL-style knobs are intentionally
// not exposed: production runs at Info, everything else is a code change.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if debug {
		cfg = zap.NewDevelopmentConfig()
	}

	return cfg.Build()
}
