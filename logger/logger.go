package logger

import (
	"github.com/princinho/storefront/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger. Development mode switches to a console
// encoder at debug level.
func New(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	}

	if cfg.Logger.Encoding != "" {
		zc.Encoding = cfg.Logger.Encoding
	}
	level, err := zapcore.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if cfg.IsDevelopment() {
		level = zapcore.DebugLevel
		zc.Encoding = "console"
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableCaller = cfg.Logger.DisableCaller
	zc.DisableStacktrace = cfg.Logger.DisableStacktrace
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}
