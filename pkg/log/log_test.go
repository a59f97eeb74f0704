package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetLogger restores the shared logger after a test reconfigures it.
func resetLogger(t *testing.T) {
	t.Helper()
	original := logger
	t.Cleanup(func() { logger = original })
	logger = logrus.New()
}

func TestInit_LevelAndFormat(t *testing.T) {
	resetLogger(t)

	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: "stdout"}))
	assert.Equal(t, logrus.DebugLevel, logger.Level)
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	require.NoError(t, Init(Config{Level: "warn", Format: "text", Output: "stdout"}))
	assert.Equal(t, logrus.WarnLevel, logger.Level)
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	resetLogger(t)

	require.NoError(t, Init(Config{Level: "chatty", Format: "text", Output: "stdout"}))
	assert.Equal(t, logrus.InfoLevel, logger.Level)
}

func TestInit_FileOutput(t *testing.T) {
	resetLogger(t)

	logFile := filepath.Join(t.TempDir(), "logs", "farm2go.log")
	require.NoError(t, Init(Config{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		Filename: logFile,
		MaxSize:  10,
	}))

	Info("order placed")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "order placed")
}

func TestLevelFiltering(t *testing.T) {
	resetLogger(t)
	require.NoError(t, Init(Config{Level: "error", Format: "text", Output: "stdout"}))

	var buf bytes.Buffer
	logger.SetOutput(&buf)

	Debugf("reservation %d", 1)
	Infof("order %d", 2)
	Warnf("stock %d", 3)
	assert.Empty(t, strings.TrimSpace(buf.String()), "below-threshold levels must be dropped")

	Errorf("compensation failed for order %d", 4)
	assert.Contains(t, buf.String(), "compensation failed for order 4")
}

func TestWithFields(t *testing.T) {
	resetLogger(t)
	require.NoError(t, Init(Config{Level: "info", Format: "json", Output: "stdout"}))

	var buf bytes.Buffer
	logger.SetOutput(&buf)

	WithFields(map[string]interface{}{
		"order_id": 42,
		"status":   "confirmed",
	}).Info("order status advanced")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "order status advanced", entry["msg"])
	assert.Equal(t, float64(42), entry["order_id"])
	assert.Equal(t, "confirmed", entry["status"])
}

func TestGetLogger_SharedInstance(t *testing.T) {
	resetLogger(t)
	require.NoError(t, Init(Config{Level: "debug", Format: "text", Output: "stdout"}))

	assert.Same(t, logger, GetLogger())
	assert.Equal(t, logrus.DebugLevel, GetLogger().Level)
}
