package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsInfoLevel(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, "info", cfg.Level)
	require.False(t, cfg.AddSource)
}

func TestDebugConfigAddsSource(t *testing.T) {
	cfg := DebugConfig()
	require.Equal(t, "debug", cfg.Level)
	require.True(t, cfg.AddSource)
}

func TestSetupInstallsDefaultLogger(t *testing.T) {
	logger := Setup(DefaultConfig())
	require.NotNil(t, logger)
	require.Same(t, logger, slog.Default())
}

func TestLevelFromStringMapsKnownLevels(t *testing.T) {
	require.Equal(t, slog.LevelDebug, levelFromString("debug"))
	require.Equal(t, slog.LevelWarn, levelFromString("warn"))
	require.Equal(t, slog.LevelError, levelFromString("error"))
	require.Equal(t, slog.LevelInfo, levelFromString("info"))
	require.Equal(t, slog.LevelInfo, levelFromString("unknown"))
}
