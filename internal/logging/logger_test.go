package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tso500-cohort-explorer/internal/domain"
)

func TestNewLoggerLevelAndFormat(t *testing.T) {
	logger, closer, err := NewLogger(domain.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stderr, logger.Out)
}

func TestNewLoggerUnknownLevelFallsBack(t *testing.T) {
	logger, _, err := NewLogger(domain.LoggingConfig{Level: "chatty"})
	require.NoError(t, err)

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestNewLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")
	logger, closer, err := NewLogger(domain.LoggingConfig{Level: "info", Format: "json", Output: "file", Filename: path})
	require.NoError(t, err)

	logger.WithField("patients", 12).Info("Cohort resolved")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Equal(t, "Cohort resolved", entry["message"])
	assert.Equal(t, float64(12), entry["patients"])
}

func TestNewLoggerRejectsBadOutput(t *testing.T) {
	_, _, err := NewLogger(domain.LoggingConfig{Output: "file"})
	assert.True(t, domain.IsConfigurationError(err))

	_, _, err = NewLogger(domain.LoggingConfig{Output: "syslog"})
	assert.True(t, domain.IsConfigurationError(err))
}
