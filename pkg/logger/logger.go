package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gomantics/reposample/config"
)

// New builds a colored console logger in dev and a JSON logger otherwise.
// verbose lowers the level to debug in both modes.
func New(cfg *config.Config, verbose bool) *zap.Logger {
	var zc zap.Config

	if cfg.IsDev() {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}

	if verbose || cfg.Download.LogSkipped {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return zap.NewNop()
	}

	return logger
}

func NewNop() *zap.Logger {
	return zap.NewNop()
}
