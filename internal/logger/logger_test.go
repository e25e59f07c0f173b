package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug", "json")

	log.Info().Str("component", "test").Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "coursehub", entry["service"])
	assert.Equal(t, "test", entry["component"])
	assert.Contains(t, entry, "time")
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "shouting", "json")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	New(&buf, "warn", "json")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
