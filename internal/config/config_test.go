package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	data := `{
		"log_level": "debug",
		"changelog": {"dir": "audit"},
		"backup": {"enabled": false, "cache_size": 8},
		"diff": {"context_lines": 0}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "audit", cfg.Changelog.Dir)
	assert.False(t, cfg.Backup.Enabled)
	assert.Equal(t, 8, cfg.Backup.CacheSize)
	assert.Equal(t, ".filemgr", cfg.Backup.Dir)
	assert.Equal(t, 1024, cfg.Backup.CompressMinSize)
	assert.Equal(t, 0, cfg.Diff.ContextLines)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FILEMGR_LOG_LEVEL", "error")
	t.Setenv("FILEMGR_CHANGELOG_DIR", "logs")

	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "logs", cfg.Changelog.Dir)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty changelog dir", func(c *Config) { c.Changelog.Dir = "" }},
		{"empty backup dir", func(c *Config) { c.Backup.Dir = "" }},
		{"zero cache", func(c *Config) { c.Backup.CacheSize = 0 }},
		{"negative compress size", func(c *Config) { c.Backup.CompressMinSize = -1 }},
		{"negative context", func(c *Config) { c.Diff.ContextLines = -2 }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
