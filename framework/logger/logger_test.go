package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/go-dicontainer/framework/config"
	"github.com/km-arc/go-dicontainer/framework/logger"
)

func newConfig(env, level, format string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "test", Env: env},
		Log: config.LogConfig{Level: level, Format: format},
	}
}

func TestNewTo_JSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewTo(newConfig("production", "info", "console"), &buf)
	log.Info("built", zap.Int("components", 3))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "built", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "test", entry["app"])
	assert.EqualValues(t, 3, entry["components"])
}

func TestNewTo_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewTo(newConfig("local", "warn", "json"), &buf)
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewTo_ConsoleIsColored(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewTo(newConfig("local", "debug", "console"), &buf)
	log.Debug("resolving")

	assert.Contains(t, buf.String(), "\033[36mDEBUG\033[0m")
	assert.Contains(t, buf.String(), "resolving")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
	}
	for name, want := range tests {
		assert.Equal(t, want, logger.ParseLevel(name), name)
	}
}
