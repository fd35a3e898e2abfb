// Package config loads codescope configuration from YAML with environment
// overrides. All ranking weights live here rather than as hard constants:
// the 0.6/0.4 split and the kind boosts are hand-tuned heuristics, not a
// contract, so they stay tunable per deployment.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete codescope configuration.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Watch     WatchConfig     `yaml:"watch"`
	LogLevel  string          `yaml:"log_level"`
}

// IndexConfig tunes the sync pipeline and the index store.
type IndexConfig struct {
	// DBPath is the SQLite file holding the persisted chunk list.
	DBPath string `yaml:"db_path"`
	// Extensions is the file extension allow-list.
	Extensions []string `yaml:"extensions"`
	// MaxFileBytes caps the size of an indexable file. Oversized files are
	// skipped whole, never partially indexed.
	MaxFileBytes int64 `yaml:"max_file_bytes"`
	// MaxChunkLines is the hard line ceiling for a single chunk.
	MaxChunkLines int `yaml:"max_chunk_lines"`
	// Workers bounds concurrent file extraction during a sync pass.
	Workers int `yaml:"workers"`
	// SyncBudget is the wall-clock budget for one sync pass.
	SyncBudget time.Duration `yaml:"sync_budget"`
	// SearchBudget is the wall-clock budget for one search.
	SearchBudget time.Duration `yaml:"search_budget"`
}

// EmbeddingConfig selects and tunes the embedding provider and cache.
type EmbeddingConfig struct {
	// Provider is "ollama" or "static".
	Provider string `yaml:"provider"`
	// OllamaHost is the Ollama API endpoint.
	OllamaHost string `yaml:"ollama_host"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimension is the expected vector dimensionality.
	Dimension int `yaml:"dimension"`
	// CacheSize bounds the LRU embedding cache (entries).
	CacheSize int `yaml:"cache_size"`
	// BatchSize is the number of texts embedded per batch.
	BatchSize int `yaml:"batch_size"`
	// TruncateBytes is how much of a truncated chunk gets embedded.
	TruncateBytes int `yaml:"truncate_bytes"`
	// RequestTimeout bounds a single provider call.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RankingConfig carries the hybrid ranker weights.
type RankingConfig struct {
	// VectorWeight and LexicalWeight blend cosine similarity with lexical
	// scoring when both signals are available.
	VectorWeight  float64 `yaml:"vector_weight"`
	LexicalWeight float64 `yaml:"lexical_weight"`
	// KindBoost multiplies chunks whose kind the query names explicitly.
	KindBoost float64 `yaml:"kind_boost"`
	// KindPriors are the per-kind multipliers applied otherwise.
	KindPriors map[string]float64 `yaml:"kind_priors"`
	// IntentBonus is the additive bonus per aligned keyword family.
	IntentBonus float64 `yaml:"intent_bonus"`
	// PreviewLength caps the code preview in results (bytes).
	PreviewLength int `yaml:"preview_length"`
	// DefaultTopK is the result cap when the caller does not set one.
	DefaultTopK int `yaml:"default_top_k"`
}

// WatchConfig tunes the optional file watcher.
type WatchConfig struct {
	// Debounce is the window used to coalesce file events.
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			DBPath:        defaultDBPath(),
			Extensions:    []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"},
			MaxFileBytes:  512 * 1024,
			MaxChunkLines: 300,
			Workers:       min(8, runtime.NumCPU()),
			SyncBudget:    60 * time.Second,
			SearchBudget:  15 * time.Second,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaHost:     "http://localhost:11434",
			Model:          "nomic-embed-text",
			Dimension:      768,
			CacheSize:      1000,
			BatchSize:      16,
			TruncateBytes:  2000,
			RequestTimeout: 30 * time.Second,
		},
		Ranking: RankingConfig{
			VectorWeight:  0.6,
			LexicalWeight: 0.4,
			KindBoost:     1.25,
			KindPriors: map[string]float64{
				"function": 1.1,
				"class":    1.1,
				"method":   1.05,
				"property": 1.0,
				"export":   1.0,
				"file":     0.85,
				"import":   0.8,
			},
			IntentBonus:   0.15,
			PreviewLength: 240,
			DefaultTopK:   8,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// Load reads configuration from path, falling back to defaults for any
// unset field and applying CODESCOPE_* environment overrides last. A missing
// file is not an error; the defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Index.Workers <= 0 {
		return fmt.Errorf("index.workers must be positive, got %d", c.Index.Workers)
	}
	if c.Embedding.CacheSize <= 0 {
		return fmt.Errorf("embedding.cache_size must be positive, got %d", c.Embedding.CacheSize)
	}
	if c.Embedding.BatchSize <= 0 {
		return fmt.Errorf("embedding.batch_size must be positive, got %d", c.Embedding.BatchSize)
	}
	if c.Ranking.VectorWeight < 0 || c.Ranking.LexicalWeight < 0 {
		return fmt.Errorf("ranking weights must be non-negative")
	}
	if c.Ranking.DefaultTopK <= 0 {
		return fmt.Errorf("ranking.default_top_k must be positive, got %d", c.Ranking.DefaultTopK)
	}
	return nil
}

// applyEnv applies environment variable overrides. Env wins over file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CODESCOPE_DB_PATH"); v != "" {
		cfg.Index.DBPath = v
	}
	if v := os.Getenv("CODESCOPE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CODESCOPE_EMBED_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("CODESCOPE_OLLAMA_HOST"); v != "" {
		cfg.Embedding.OllamaHost = v
	}
	if v := os.Getenv("CODESCOPE_EMBED_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("CODESCOPE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Embedding.CacheSize = n
		}
	}
	if v := os.Getenv("CODESCOPE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Index.Workers = n
		}
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codescope/index.db"
	}
	return home + "/.codescope/index.db"
}
