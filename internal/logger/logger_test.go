package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupBuffer redirects logger output to a fresh buffer and restores the
// stderr default on cleanup. Logger state is global, so these tests do not
// run in parallel.
func setupBuffer(t *testing.T, level, format string) *bytes.Buffer {
	t.Helper()

	buf := new(bytes.Buffer)
	InitWithWriter(buf, level, format, false)

	t.Cleanup(func() {
		InitWithWriter(os.Stderr, "INFO", "text", false)
	})

	return buf
}

func TestLevelFiltering(t *testing.T) {
	t.Run("DebugShowsAll", func(t *testing.T) {
		buf := setupBuffer(t, "DEBUG", "text")

		Debug("debug message")
		Info("info message")
		Warn("warn message")
		Error("error message")

		out := buf.String()
		assert.Contains(t, out, "debug message")
		assert.Contains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("WarnSuppressesLower", func(t *testing.T) {
		buf := setupBuffer(t, "WARN", "text")

		Debug("debug message")
		Info("info message")
		Warn("warn message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
	})

	t.Run("InvalidLevelIgnored", func(t *testing.T) {
		buf := setupBuffer(t, "INFO", "text")

		SetLevel("LOUD")
		Info("still here")

		assert.Contains(t, buf.String(), "still here")
	})
}

func TestTextFormat(t *testing.T) {
	buf := setupBuffer(t, "INFO", "text")

	Info("commit finished", "files", 3)

	out := buf.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "commit finished")
	assert.Contains(t, out, "files=3")
}

func TestJSONFormat(t *testing.T) {
	buf := setupBuffer(t, "INFO", "json")

	Info("commit finished", "files", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "commit finished", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, float64(3), entry["files"])
}

func TestWithBindsAttributes(t *testing.T) {
	buf := setupBuffer(t, "INFO", "text")

	log := With("txn_id", "abc-123")
	log.Info("staged", "path", "a.txt")

	out := buf.String()
	assert.Contains(t, out, "txn_id=abc-123")
	assert.Contains(t, out, "path=a.txt")
}

func TestSetFormatSwitchesHandler(t *testing.T) {
	buf := setupBuffer(t, "INFO", "text")

	Info("first")
	SetFormat("json")
	Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.False(t, strings.HasPrefix(lines[0], "{"))
	assert.True(t, strings.HasPrefix(lines[1], "{"))
}
