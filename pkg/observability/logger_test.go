// Package observability tests
package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("debug", &buf)

	log.Info("cache miss", String("extension", "example.tool"), Int("attempt", 2))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "cache miss", line["message"])
	assert.Equal(t, "example.tool", line["extension"])
	assert.Equal(t, float64(2), line["attempt"])
	assert.Equal(t, "info", line["level"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("warn", &buf)

	log.Debug("ignored")
	log.Info("ignored too")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", &buf).With(String("run_id", "abc123"))

	log.Info("started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc123", line["run_id"])
}

func TestErrField(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", &buf)

	log.Error("verify failed", Err(fmt.Errorf("signature mismatch")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "signature mismatch", line["error"])
}
