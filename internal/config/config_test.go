package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8084", cfg.Address())
	assert.Equal(t, []string{DefaultDataSource}, cfg.Data.Sources)
	assert.Equal(t, 30*time.Second, cfg.Data.FetchTimeout)
	assert.Equal(t, 4, cfg.Data.MaxConcurrentFetch)
	assert.Equal(t, 24*time.Hour, cfg.Data.SnapshotMaxAge)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DATA_SOURCES", " a.csv, https://example.com/b.csv ,")
	t.Setenv("DATA_SNAPSHOT_MAX_AGE", "0s")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []string{"a.csv", "https://example.com/b.csv"}, cfg.Data.Sources)
	assert.Equal(t, time.Duration(0), cfg.Data.SnapshotMaxAge)
	assert.Equal(t, "text", cfg.Logger.Format)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATA_SOURCES=local.csv\nLOG_LEVEL=debug\n"), 0o644))
	// Loaded variables leak into the process environment; clean them up.
	t.Cleanup(func() {
		os.Unsetenv("DATA_SOURCES")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"local.csv"}, cfg.Data.Sources)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"empty sources", "DATA_SOURCES", " , "},
		{"negative snapshot age", "DATA_SNAPSHOT_MAX_AGE", "-1h"},
		{"zero concurrency", "DATA_MAX_CONCURRENT_FETCHES", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
