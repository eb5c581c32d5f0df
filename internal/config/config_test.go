package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.HTTP.TimeoutSeconds)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 4000, cfg.Cache.MinFreshLength)
	assert.Equal(t, 250000, cfg.Cache.LegacyTruncationBytes)
	assert.Equal(t, 500, cfg.Guard.RateLimit)
	assert.Equal(t, int64(25*1024*1024), cfg.Guard.MaxResponseBytes)
	assert.Equal(t, 500, cfg.Pipeline.QualityLength)
	assert.InDelta(t, 1.4, cfg.Pipeline.EnhancementRatio, 0.001)
	assert.Contains(t, cfg.Archive.SnapshotTemplate, "%s")
	assert.Empty(t, cfg.Diffbot.Token)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
diffbot:
  token: test-token
proxy:
  url: http://proxy.internal:3128
pipeline:
  quality_length: 750
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test-token", cfg.Diffbot.Token)
	assert.Equal(t, "http://proxy.internal:3128", cfg.Proxy.URL)
	assert.Equal(t, 750, cfg.Pipeline.QualityLength)
	// Unset keys keep their defaults.
	assert.Equal(t, 500, cfg.Guard.RateLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "zero timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }},
		{name: "zero size cap", mutate: func(c *Config) { c.Guard.MaxResponseBytes = 0 }},
		{name: "zero rate limit", mutate: func(c *Config) { c.Guard.RateLimit = 0 }},
		{name: "ratio not above one", mutate: func(c *Config) { c.Pipeline.EnhancementRatio = 1.0 }},
		{name: "template without placeholder", mutate: func(c *Config) { c.Archive.SnapshotTemplate = "https://archive.ph/newest/" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
