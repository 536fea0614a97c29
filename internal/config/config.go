// Package config provides configuration loading and structs for the SME Panel indexing service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Blob      BlobConfig      `yaml:"blob"`
	Docstore  DocstoreConfig  `yaml:"docstore"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Index     IndexConfig     `yaml:"index"`
	Query     QueryConfig     `yaml:"query"`
	Cache     CacheConfig     `yaml:"cache"`
	Artifact  ArtifactConfig  `yaml:"artifact"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BlobConfig holds blob store settings. Provider "fs" stores objects under
// Path/Bucket; Bucket and Region are kept for providers that need them.
type BlobConfig struct {
	Provider string `yaml:"provider"`
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Path     string `yaml:"path"`
}

// DocstoreConfig holds document metadata store settings.
type DocstoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds embedding provider settings. Provider is one of
// "openai" (OpenAI-compatible HTTP API), "onnx" (local model, requires CGO),
// or "mock" (deterministic, tests only).
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	ModelPath  string `yaml:"model_path"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
}

// ChatConfig holds completion provider settings (OpenAI-compatible).
type ChatConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// IndexConfig holds chunking and vector index build settings.
type IndexConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	IndexType    string `yaml:"index_type"`
}

// QueryConfig holds retrieval and answer assembly settings.
type QueryConfig struct {
	TopK            int     `yaml:"top_k"`
	KeywordWeight   float64 `yaml:"keyword_weight"`
	SemanticWeight  float64 `yaml:"semantic_weight"`
	MinScore        float64 `yaml:"min_score"`
	MaxContextChars int     `yaml:"max_context_chars"`
}

// CacheConfig holds vector store cache settings. MaxEntries 0 means unbounded.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// ArtifactConfig holds artifact persistence settings.
type ArtifactConfig struct {
	LocalDir string `yaml:"local_dir"`
}

// WatchConfig holds inbox directory watch settings. Files dropped into the
// watched directories are uploaded and submitted for indexing automatically.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies environment
// overrides and defaults, expands paths, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Blob.Path = expandPath(cfg.Blob.Path, configDir)
	cfg.Docstore.DatabasePath = expandPath(cfg.Docstore.DatabasePath, configDir)
	cfg.Artifact.LocalDir = expandPath(cfg.Artifact.LocalDir, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that provider settings required before any I/O are present.
// It fails fast so that a misconfigured service never attempts partial work.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.BaseURL == "" {
			return fmt.Errorf("config: embedding.base_url is required for provider %q", c.Embedding.Provider)
		}
		if c.Embedding.Model == "" {
			return fmt.Errorf("config: embedding.model is required for provider %q", c.Embedding.Provider)
		}
	case "onnx":
		if c.Embedding.ModelPath == "" {
			return fmt.Errorf("config: embedding.model_path is required for provider %q", c.Embedding.Provider)
		}
	case "mock":
	default:
		return fmt.Errorf("config: unknown embedding provider %q (supported: openai, onnx, mock)", c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("config: embedding.dimensions must be positive")
	}
	if c.Chat.BaseURL == "" {
		return fmt.Errorf("config: chat.base_url is required")
	}
	if c.Chat.Model == "" {
		return fmt.Errorf("config: chat.model is required")
	}
	switch c.Blob.Provider {
	case "fs":
		if c.Blob.Path == "" {
			return fmt.Errorf("config: blob.path is required for provider %q", c.Blob.Provider)
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown blob provider %q (supported: fs, memory)", c.Blob.Provider)
	}
	if c.Index.ChunkOverlap >= c.Index.ChunkSize {
		return fmt.Errorf("config: index.chunk_overlap (%d) must be smaller than index.chunk_size (%d)",
			c.Index.ChunkOverlap, c.Index.ChunkSize)
	}
	return nil
}

// applyEnvOverrides applies SMEPANEL_* environment variables over file values.
// Only credentials and endpoints are overridable; structural settings stay in the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SMEPANEL_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("SMEPANEL_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("SMEPANEL_CHAT_BASE_URL"); v != "" {
		cfg.Chat.BaseURL = v
	}
	if v := os.Getenv("SMEPANEL_CHAT_API_KEY"); v != "" {
		cfg.Chat.APIKey = v
	}
	if v := os.Getenv("SMEPANEL_BLOB_BUCKET"); v != "" {
		cfg.Blob.Bucket = v
	}
	if v := os.Getenv("SMEPANEL_BLOB_REGION"); v != "" {
		cfg.Blob.Region = v
	}
	if v := os.Getenv("SMEPANEL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
