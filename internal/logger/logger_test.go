package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/odds-tracker/internal/models"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLoggerWithOutput("debug", buf)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log = NewLoggerWithOutput("nonsense", buf)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level")
}

func TestNewLoggerProductionUsesJSON(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	buf := &bytes.Buffer{}
	log := NewLoggerWithOutput("info", buf)
	log.Info("hello")

	entry := parseLogOutput(buf)
	require.NotNil(t, entry)
	assert.Equal(t, "hello", entry["msg"])
}

func TestOddsLoggerUpdate(t *testing.T) {
	log, buf := setupTestLogger()
	oddsLogger := NewOddsLogger(log)

	oddsLogger.LogOddsUpdate(models.OddsChange{
		RunnerID: 42,
		Name:     "Frankel",
		Event:    "01-06-2024 14:30 Ascot",
		Previous: models.MustParseOdds("3.5"),
		Current:  models.NoOdds(),
	})

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "odds", logEntry["component"])
	assert.Equal(t, "Frankel", logEntry["runner"])
	assert.Equal(t, "3.50", logEntry["previous"])
	assert.Equal(t, "0.00", logEntry["current"])
}

func TestOddsLoggerPollFailed(t *testing.T) {
	log, buf := setupTestLogger()
	oddsLogger := NewOddsLogger(log)

	oddsLogger.LogPollFailed("cycle-1", "fetch", errors.New("boom"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "fetch", logEntry["stage"])
	assert.Equal(t, "boom", logEntry["error"])
	assert.Equal(t, "error", logEntry["level"])
}

func TestOddsLoggerReplay(t *testing.T) {
	log, buf := setupTestLogger()
	oddsLogger := NewOddsLogger(log)

	oddsLogger.LogReplayCompleted(10, 1, 55, 150*time.Millisecond)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(10), logEntry["snapshots"])
	assert.Equal(t, float64(1), logEntry["skipped"])
	assert.Equal(t, float64(150), logEntry["duration_ms"])
}
