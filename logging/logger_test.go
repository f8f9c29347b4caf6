package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-server/confs"
)

func TestNewWithWriter_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(confs.Config{AppEnv: "prod", LogLevel: slog.LevelInfo}, &buf)

	logger.Info("reading stored", "kind", "temperature", "id", 7)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "reading stored", line["msg"])
	assert.Equal(t, "weather-server", line["app"])
	assert.Equal(t, "prod", line["env"])
	assert.Equal(t, "temperature", line["kind"])
}

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(confs.Config{AppEnv: "prod", LogLevel: slog.LevelWarn}, &buf)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithWriter_DevUsesTint(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(confs.Config{AppEnv: "dev", LogLevel: slog.LevelDebug}, &buf)

	logger.Debug("starting")
	assert.Contains(t, buf.String(), "starting")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
