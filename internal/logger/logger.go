package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/cinedex/internal/version"
)

// presets maps an APP_ENV value to its base zap configuration.
var presets = map[string]func() zap.Config{
	"prod":   productionConfig,
	"local":  zap.NewDevelopmentConfig,
	"dev":    zap.NewDevelopmentConfig,
	"docker": zap.NewDevelopmentConfig,
	"test":   testConfig,
}

// NewLogger builds the process logger for env. prod writes JSON, the other
// environments write console lines. A non-empty level (debug, info, warn,
// error) replaces the preset's level.
func NewLogger(env, level string) (*zap.Logger, error) {
	preset, ok := presets[env]
	if !ok {
		return nil, fmt.Errorf("unknown environment %q for logger", env)
	}
	cfg := preset()

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.InitialFields = map[string]any{
		"service": "cinedex",
		"env":     env,
		"version": version.Version,
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func productionConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	return cfg
}

func testConfig() zap.Config {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.DisableStacktrace = true
	return cfg
}
