package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.TraceLevel, parseLevel("trace"))
	assert.Equal(t, logrus.InfoLevel, parseLevel("INFO"))
	assert.Equal(t, logrus.WarnLevel, parseLevel("warn"))
	assert.Equal(t, logrus.ErrorLevel, parseLevel("error"))
	assert.Equal(t, logrus.FatalLevel, parseLevel("fatal"))
	assert.Equal(t, logrus.DebugLevel, parseLevel("whatever"))
}

func TestWithFieldsWritesJSON(t *testing.T) {
	l := New()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithFields(logrus.Fields{"room": "r1", "player": "player1"}).Info(PlayerIdentifiedMsg)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, PlayerIdentifiedMsg, entry["msg"])
	assert.Equal(t, "r1", entry["room"])
	assert.Equal(t, "info", entry["level"])
}

func TestInitWithoutPropertiesKeepsStdout(t *testing.T) {
	l := New()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	require.NoError(t, l.Init(t.TempDir()))
	assert.Equal(t, logrus.InfoLevel, l.Level())
	assert.Contains(t, buf.String(), LoggerPropertiesMissingMsg)
}

func TestInitAppliesProperties(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "pong.log")
	content := "logFilename=" + logFile + "\nmaxSize=1\nmaxBackups=1\nmaxAge=1\ncompress=false\nlevel=warn\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logger.properties"), []byte(content), 0o644))

	l := New()
	require.NoError(t, l.Init(dir))
	assert.Equal(t, logrus.WarnLevel, l.Level())

	l.Warn(ConnBrokenMsg)
	l.Info(RoomCreatedMsg)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), ConnBrokenMsg)
	assert.NotContains(t, string(data), RoomCreatedMsg)
}

func TestApplyWithoutFilename(t *testing.T) {
	l := New()
	l.Apply(Properties{Level: "error"})
	assert.Equal(t, logrus.ErrorLevel, l.Level())
}
