package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		"dEbUg":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"Warning": LevelWarn,
		"error":   LevelError,
		" error ": LevelError,
		"":        LevelInfo,
		"trace":   LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatJSON, ParseFormat("Json"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat(""))
	assert.Equal(t, FormatText, ParseFormat("yaml"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(Config{Level: LevelWarn, Format: FormatJSON, Output: &buf}), "matching")

	logger.Info("dropped")
	logger.Warn("invalid rule", "path", "$.a")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "invalid rule", record["msg"])
	assert.Equal(t, "matching", record["component"])
	assert.Equal(t, "$.a", record["path"])
}

func TestNop(t *testing.T) {
	assert.False(t, Nop().Enabled(t.Context(), LevelError))
	assert.NotNil(t, Component(nil, "x"))
}
