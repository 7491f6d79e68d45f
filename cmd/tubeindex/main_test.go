package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_ImportSearchAndStats(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TUBEINDEX_EMBEDDING_API_KEY", "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "tubeindex.yaml")
	dbPath := filepath.Join(dir, "tube.db")

	out, err := runCLI(t, "init", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default config")

	data := `{"videos": [{"id": "v1", "title": "Go generics explained", "channel": "GopherCon",
		"chunks": [{"id": "c1", "content": "Go 1.18 was released in 2022 with generics", "start_time": 75}]}]}`
	importPath := filepath.Join(dir, "videos.json")
	require.NoError(t, os.WriteFile(importPath, []byte(data), 0o644))

	out, err = runCLI(t, "import", importPath, "--config", cfgPath, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 video(s), 1 chunk(s)")

	out, err = runCLI(t, "search", "generics", "--mode", "keyword", "--config", cfgPath, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Go generics explained")
	assert.Contains(t, out, "1:15")

	out, err = runCLI(t, "temporal", "extract", "--config", cfgPath, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "stored metadata for 1")

	out, err = runCLI(t, "stats", "--json", "--config", cfgPath, "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"videos": 1`)
	assert.Contains(t, out, `"temporal_metadata": 1`)
}

func TestCLI_MissingConfig(t *testing.T) {
	_, err := runCLI(t, "stats", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "0:05", formatTimestamp(5))
	assert.Equal(t, "1:15", formatTimestamp(75))
	assert.Equal(t, "1:01:01", formatTimestamp(3661))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b", snippet("  a \n b ", 10))
	assert.Equal(t, "abc...", snippet("abcdef", 3))
}
