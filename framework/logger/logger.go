// Package logger builds the application's zap logger from configuration.
package logger

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-dicontainer/framework/config"
)

const (
	debugColor = "\033[36m"
	infoColor  = "\033[32m"
	warnColor  = "\033[33m"
	errorColor = "\033[31m"
	resetColor = "\033[0m"
)

// New creates a logger writing to stdout: JSON in production or when
// LOG_FORMAT=json, colored console output otherwise.
func New(cfg *config.Config) *zap.Logger {
	return NewTo(cfg, os.Stdout)
}

// NewTo is New with an explicit destination.
func NewTo(cfg *config.Config, w io.Writer) *zap.Logger {
	level := ParseLevel(cfg.Log.Level)
	sink := zapcore.AddSync(w)

	if cfg.IsProduction() || cfg.Log.Format == "json" {
		core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, zap.NewAtomicLevelAt(level))
		return zap.New(core, zap.AddCaller()).With(zap.String("app", cfg.App.Name))
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    colorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), sink, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller())
}

// ParseLevel maps LOG_LEVEL to a zap level; unknown names mean info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var color string
	switch level {
	case zapcore.DebugLevel:
		color = debugColor
	case zapcore.InfoLevel:
		color = infoColor
	case zapcore.WarnLevel:
		color = warnColor
	default:
		color = errorColor
	}
	enc.AppendString(color + level.CapitalString() + resetColor)
}
