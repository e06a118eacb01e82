package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: slog.LevelDebug, Output: &buf, Color: true})

	log.Info("plain message", "k", "v")
	log.Warn("careful")
	log.With("component", "store").Error("broken")
	log.Info("Loaded memory fixture")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.NotContains(t, lines[0], "\033[")
	assert.Contains(t, lines[0], "k=v")
	assert.True(t, strings.HasPrefix(lines[1], colorYellow))
	assert.True(t, strings.HasPrefix(lines[2], colorRed))
	assert.Contains(t, lines[2], "component=store")
	assert.True(t, strings.HasSuffix(lines[2], colorReset))
	assert.True(t, strings.HasPrefix(lines[3], colorGreen))
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: slog.LevelWarn, Format: "JSON", Output: &buf})
	log.Info("skipped")
	log.Warn("kept")
	assert.NotContains(t, buf.String(), "skipped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}
