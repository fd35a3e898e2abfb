package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.InDelta(t, 0.6, cfg.Ranking.VectorWeight, 1e-9)
	assert.InDelta(t, 0.4, cfg.Ranking.LexicalWeight, 1e-9)
	assert.Equal(t, 8, cfg.Ranking.DefaultTopK)
	assert.Contains(t, cfg.Index.Extensions, ".ts")
	assert.Greater(t, cfg.Ranking.KindPriors["function"], cfg.Ranking.KindPriors["import"])
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Embedding.CacheSize, cfg.Embedding.CacheSize)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
index:
  workers: 2
  sync_budget: 5s
embedding:
  provider: static
  cache_size: 10
ranking:
  vector_weight: 0.7
  lexical_weight: 0.3
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Index.Workers)
	assert.Equal(t, 5*time.Second, cfg.Index.SyncBudget)
	assert.Equal(t, "static", cfg.Embedding.Provider)
	assert.Equal(t, 10, cfg.Embedding.CacheSize)
	assert.InDelta(t, 0.7, cfg.Ranking.VectorWeight, 1e-9)

	// Untouched fields keep their defaults.
	assert.Equal(t, Default().Embedding.BatchSize, cfg.Embedding.BatchSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding:\n  provider: ollama\n"), 0o644))

	t.Setenv("CODESCOPE_EMBED_PROVIDER", "static")
	t.Setenv("CODESCOPE_CACHE_SIZE", "42")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Embedding.Provider)
	assert.Equal(t, 42, cfg.Embedding.CacheSize)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Index.Workers = 0 }},
		{"zero cache", func(c *Config) { c.Embedding.CacheSize = 0 }},
		{"zero batch", func(c *Config) { c.Embedding.BatchSize = 0 }},
		{"negative weight", func(c *Config) { c.Ranking.VectorWeight = -1 }},
		{"zero topk", func(c *Config) { c.Ranking.DefaultTopK = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
