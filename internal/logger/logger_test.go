package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Format: FormatJSON, Writer: &buf})
	require.NoError(t, err)

	log.Warn().Str("path", "pytest-report.xml").Msg("report not found")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "pytest-report.xml", line["path"])
	assert.Equal(t, "report not found", line["message"])
	assert.Contains(t, line, "time")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "WARN", Format: FormatJSON, Writer: &buf})
	require.NoError(t, err)

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
}

func TestNew_AutoFormatNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Writer: &buf})
	require.NoError(t, err)

	log.Info().Msg("hello")
	// A bytes.Buffer is not a terminal, so auto falls back to JSON.
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNew_ConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Format: FormatConsole, Writer: &buf})
	require.NoError(t, err)

	log.Error().Msg("write failed")
	assert.Contains(t, buf.String(), "write failed")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"})
	assert.Error(t, err)
}
