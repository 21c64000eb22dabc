package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestNewJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "json", &buf)

	log.Debug("hello")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "debug", entry["level"])
	assert.Contains(t, entry, "ts")
}

func TestNewLevel(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, New("warn", "json", nil).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("loud", "json", nil).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("", "text", nil).GetLevel())
}

func TestForService(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "json", &buf)

	ForService(log, "taskflow").Info("started")

	assert.Equal(t, "taskflow", decodeLine(t, &buf)["service"])
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := New("info", "json", &buf)

	WithRequestID(log, "req-1").Info("with id")
	assert.Equal(t, "req-1", decodeLine(t, &buf)["request_id"])

	buf.Reset()
	WithRequestID(log, "").Info("without id")
	assert.NotContains(t, decodeLine(t, &buf), "request_id")
}
