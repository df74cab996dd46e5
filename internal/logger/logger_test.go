package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "edgespeed-api", slog.LevelInfo)

	log.Debug("hidden")
	log.Info("comparison complete", "speedup", 2.5)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "edgespeed-api", record["service"])
	assert.Equal(t, "comparison complete", record["msg"])
	assert.Equal(t, 2.5, record["speedup"])
}
