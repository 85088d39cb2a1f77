package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigConstants(t *testing.T) {
	assert.Equal(t, "tcoracle", configBaseName)
	assert.Equal(t, "tcoracle.yaml", configFileName)
	assert.Equal(t, ".", configFolderPath)
	assert.Equal(t, "TCORACLE", envPrefix)
	assert.Equal(t, ".tcoracle-cache", cacheDir)
	assert.Equal(t, 3, defaultMaxLevel)
	assert.Equal(t, 1, defaultParallel)
	assert.Equal(t, 15, defaultMaxMutants)
	assert.InDelta(t, 95.0, defaultCoverageThreshold, 0)
}

func TestConfigDefaults(t *testing.T) {
	assert.Equal(t, currentConfigVersion, viper.GetInt(configVersionKey))
	assert.Equal(t, defaultPython, viper.GetString(pythonKey))
	assert.Equal(t, 30*time.Second, seconds(sandboxTimeoutKey))
	assert.Equal(t, 10*time.Second, seconds(coverageReportKey))
	assert.Equal(t, defaultCheckers, viper.GetStringMapStringSlice(checkersKey))
	assert.Empty(t, viper.GetStringMapString(classifiersKey))
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("TCORACLE_SANDBOX_TIMEOUT", "7")
	t.Setenv("TCORACLE_SANDBOX_PYTHON", "/opt/python3.12")

	assert.Equal(t, 7*time.Second, seconds(sandboxTimeoutKey))
	assert.Equal(t, "/opt/python3.12", viper.GetString(pythonKey))
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"-4", slog.LevelDebug},
		{"loud", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, slog.LevelInfo))
		})
	}
}

func TestConfigureLogger(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	logPath := filepath.Join(t.TempDir(), "oracle.log")

	configureLogger(logPath, true)
	slog.Debug("probe", "level", 1)

	contents, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "msg=probe")
	assert.True(t, globalLogger.Enabled(t.Context(), slog.LevelDebug))
}

func TestConfigureLogger_DefaultLevel(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	configureLogger(filepath.Join(t.TempDir(), "oracle.log"), false)

	assert.False(t, globalLogger.Enabled(t.Context(), slog.LevelDebug))
	assert.True(t, globalLogger.Enabled(t.Context(), slog.LevelInfo))
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("exports variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("TCORACLE_SYNTHESIS_SEED=42\n"), 0o644))

		t.Setenv("TCORACLE_SYNTHESIS_SEED", "")
		require.NoError(t, os.Unsetenv("TCORACLE_SYNTHESIS_SEED"))

		require.NoError(t, loadDotEnv(path))
		assert.Equal(t, int64(42), viper.GetInt64(seedKey))
	})

	t.Run("keeps existing variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("TCORACLE_SYNTHESIS_MAX_CASES=99\n"), 0o644))

		t.Setenv("TCORACLE_SYNTHESIS_MAX_CASES", "4")

		require.NoError(t, loadDotEnv(path))
		assert.Equal(t, 4, viper.GetInt(maxCasesKey))
	})

	t.Run("missing file", func(t *testing.T) {
		assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})
}
