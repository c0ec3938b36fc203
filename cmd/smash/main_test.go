package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOneShot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log_file: ''\n"), 0644))
	cfgPath, command = dir, "true; exit 3"
	t.Cleanup(func() { cfgPath, command = "", "" })

	code, err := run(true)
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestRunBadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("max_args: -1\n"), 0644))
	cfgPath = dir
	t.Cleanup(func() { cfgPath = "" })

	_, err := run(true)
	assert.Error(t, err)
}
