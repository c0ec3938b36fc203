package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestFileLogger(t *testing.T) {
	name := filepath.Join(t.TempDir(), "smash.log")
	log, closer := New(Config{Filename: name, Level: "warn", MaxSize: 1})

	log.Info("hidden")
	log.Warn("spawned", "cmd", "ls")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "msg=spawned")
	assert.Contains(t, string(data), "cmd=ls")
}

func TestDiscardLogger(t *testing.T) {
	log, closer := New(Config{})
	log.Error("nowhere")
	assert.NoError(t, closer.Close())
}
