package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dine-composer/internal/config"
)

func TestNew(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		logger, closer, err := New(config.LoggingConfig{}, "test")
		require.NoError(t, err)
		assert.NotNil(t, logger)
		assert.Nil(t, closer)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("Stdout JSON", func(t *testing.T) {
		logger, closer, err := New(config.LoggingConfig{Level: "debug", Output: "stdout", Format: "json"}, "test")
		require.NoError(t, err)
		assert.Nil(t, closer)
		assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dinectl.log")
		logger, closer, err := New(config.LoggingConfig{Level: "warn", Output: "file", FilePath: path, Format: "json"}, "1.2.3")
		require.NoError(t, err)
		require.NotNil(t, closer)

		logger.Warn().Msg("hello")
		require.NoError(t, closer.Close())

		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(b), `"version":"1.2.3"`)
		assert.Contains(t, string(b), `"message":"hello"`)
	})

	t.Run("FileMissingPath", func(t *testing.T) {
		_, _, err := New(config.LoggingConfig{Output: "file"}, "test")
		assert.Error(t, err)
	})

	t.Run("InvalidLevel", func(t *testing.T) {
		logger, _, err := New(config.LoggingConfig{Level: "loud"}, "test")
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	Component(&base, "backend").Info().Msg("x")
	assert.Contains(t, buf.String(), `"component":"backend"`)

	assert.NotPanics(t, func() { Component(nil, "x").Info().Msg("dropped") })
}
