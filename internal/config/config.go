// Package config loads QFS's configuration: where the database lives,
// default search tuning, and embedder selection. One layer (file, then
// environment overrides) is enough for the core — a per-project override
// cascade is a CLI front-end concern and out of scope here.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/qfs-dev/qfs/internal/logging"
)

// Config is QFS's complete runtime configuration.
type Config struct {
	// DatabasePath is the path to the SQLite database file.
	DatabasePath string `yaml:"database_path"`

	Search     SearchConfig     `yaml:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
}

// SearchConfig tunes the BM25 and RRF fusion parameters.
type SearchConfig struct {
	// RRFConstant is the k smoothing constant for reciprocal rank fusion.
	RRFConstant int `yaml:"rrf_constant"`

	// DefaultLimit is the result count used when a caller doesn't specify one.
	DefaultLimit int `yaml:"default_limit"`

	// MultiGetMaxBytes is loaded from the config file, but the CLI does not
	// pass it on: multi_get falls back to multiget.DefaultMaxBytes when the
	// caller gives no size cap.
	MultiGetMaxBytes int `yaml:"multi_get_max_bytes"`
}

// EmbeddingsConfig selects and tunes the embedder.
type EmbeddingsConfig struct {
	// Model names the embedding model. The CLI always builds the static
	// embedder, whose ModelName is "static-minilm" whatever this value is.
	Model string `yaml:"model"`

	// Dimensions is the expected embedding width (D = 384 per the spec).
	Dimensions int `yaml:"dimensions"`

	// CacheSize bounds the LRU cache of query embeddings.
	CacheSize int `yaml:"cache_size"`
}

// Default returns QFS's default configuration.
func Default() *Config {
	return &Config{
		DatabasePath: logging.DefaultDatabasePath(),
		Search: SearchConfig{
			RRFConstant:      60,
			DefaultLimit:     20,
			MultiGetMaxBytes: 10240,
		},
		Embeddings: EmbeddingsConfig{
			Model:      "static-minilm",
			Dimensions: 384,
			CacheSize:  1000,
		},
	}
}

// Load reads a YAML config file, falling back to defaults for anything
// unset, then applies environment overrides. A missing file is not an
// error: Load(path) with a nonexistent path just returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnv(cfg), nil
			}
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	return applyEnv(cfg), nil
}

func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("QFS_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("QFS_RRF_CONSTANT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.RRFConstant = n
		}
	}
	if v := os.Getenv("QFS_EMBED_MODEL"); v != "" {
		cfg.Embeddings.Model = v
	}
	return cfg
}
