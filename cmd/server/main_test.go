package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/aegisshield/readiness-engine/internal/config"
)

func TestSetupLogging(t *testing.T) {
	t.Run("Configured Level Applies", func(t *testing.T) {
		logger, err := setupLogging(&config.Config{
			Environment: "development",
			Logging:     config.LoggingConfig{Level: "warn", Format: "console"},
		})
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("Debug Level", func(t *testing.T) {
		logger, err := setupLogging(&config.Config{
			Environment: "production",
			Logging:     config.LoggingConfig{Level: "debug", Format: "json"},
		})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("Invalid Level", func(t *testing.T) {
		_, err := setupLogging(&config.Config{
			Logging: config.LoggingConfig{Level: "verbose"},
		})
		assert.Error(t, err)
	})
}
