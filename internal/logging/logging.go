// Package logging configures the process-wide structured logger used by the
// host layers (HTTP, CLI bootstrap, scenario runner). The engine itself
// never logs — per §7, it surfaces every error to its caller and logs
// nothing internally.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nholding/tradeflow/internal/config"
)

// New builds a zap.Logger from the host's logging config: level parsed from
// cfg.Level (unrecognized values default to info, matching the teacher's
// fallback-on-bad-env-value convention in billygk-alpha-trading/internal/config),
// writing to stdout and, when cfg.File is set, also to a size-rotated file
// via lumberjack (the library replacement for the teacher's hand-rolled
// Rotator in billygk-alpha-trading/internal/logger).
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), level),
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core), nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
