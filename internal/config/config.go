// Package config loads the server's typed configuration from a TOML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full set of tunables for the server.
type Config struct {
	ListenAddr string `toml:"listen_addr"`
	DataDir    string `toml:"data_dir"`

	AdminKey string `toml:"admin_key"`
	JWTSecret string `toml:"jwt_secret"`

	Ollama OllamaConfig `toml:"ollama"`
	Index  IndexConfig  `toml:"index"`
	Rate   RateConfig   `toml:"rate"`
}

// OllamaConfig configures the embedding backend.
type OllamaConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
	Timeout time.Duration `toml:"timeout"`
	Dimensions int `toml:"dimensions"`
}

// IndexConfig configures the ingest pipeline.
type IndexConfig struct {
	MaxFileSizeBytes int64 `toml:"max_file_size_bytes"`
	ChunkSize        int   `toml:"chunk_size"`
	ChunkOverlap     int   `toml:"chunk_overlap"`
	WorkerPoolSize   int   `toml:"worker_pool_size"`
	WatchEnabled     bool  `toml:"watch_enabled"`
}

// RateConfig configures the token-bucket rate limiter.
type RateConfig struct {
	GlobalPerMinute int `toml:"global_per_minute"`
	SearchPerMinute int `toml:"search_per_minute"`
	IndexPerMinute  int `toml:"index_per_minute"`
}

// Default returns the configuration used when no file is present, matching
// the defaults spec'd for each component.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		DataDir:    "./data",
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			Model:      "nomic-embed-text",
			Timeout:    15 * time.Second,
			Dimensions: 768,
		},
		Index: IndexConfig{
			MaxFileSizeBytes: 50 * 1024 * 1024,
			ChunkSize:        1000,
			ChunkOverlap:     200,
			WorkerPoolSize:   5,
			WatchEnabled:     false,
		},
		Rate: RateConfig{
			GlobalPerMinute: 100,
			SearchPerMinute: 50,
			IndexPerMinute:  10,
		},
	}
}

// Load reads path if it exists, layering it over Default(), then applies
// environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	abs, err := filepath.Abs(cfg.DataDir)
	if err == nil {
		cfg.DataDir = abs
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCSEARCH_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("DOCSEARCH_ADMIN_KEY"); v != "" {
		cfg.AdminKey = v
	}
	if v := os.Getenv("DOCSEARCH_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DOCSEARCH_OLLAMA_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("DOCSEARCH_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
}
