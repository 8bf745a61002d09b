// Package config provides YAML-based configuration for docq.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. DOCQ_CONFIG environment variable
//  3. ~/.docq/config.yaml
//  4. ./docq.yaml
//
// If no file is found the system runs entirely from env vars (backwards compatible).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Ollama configures the chat/generation backend.
	Ollama OllamaConfig `yaml:"ollama"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Store configures the chunk store backend.
	Store StoreConfig `yaml:"store"`

	// Chunking configures the text splitter.
	Chunking ChunkingConfig `yaml:"chunking"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// OllamaConfig holds Ollama backend settings.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string `yaml:"host"`
	// Model is the default chat model name.
	Model string `yaml:"model"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (ollama, openai, azure).
	Provider string `yaml:"provider"`
	// Model is the default embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
}

// StoreConfig holds chunk store settings.
type StoreConfig struct {
	// Backend selects the store implementation: sqlite (default) or qdrant.
	Backend string `yaml:"backend"`
	// DBPath is the SQLite database path.
	DBPath string `yaml:"db_path"`
	// QdrantHost is the Qdrant server hostname.
	QdrantHost string `yaml:"qdrant_host"`
	// QdrantPort is the Qdrant gRPC port.
	QdrantPort int `yaml:"qdrant_port"`
	// QdrantAPIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	QdrantAPIKey string `yaml:"qdrant_api_key"`
	// QdrantTLS enables TLS for the Qdrant connection.
	QdrantTLS bool `yaml:"qdrant_tls"`
}

// ChunkingConfig holds text splitter settings.
type ChunkingConfig struct {
	// Size is the maximum characters per chunk.
	Size int `yaml:"size"`
	// Overlap is the characters shared between consecutive chunks.
	Overlap int `yaml:"overlap"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var DOCQ_API_KEY.
	APIKey string `yaml:"api_key"`
	// UploadsDir is where raw uploaded files are retained.
	UploadsDir string `yaml:"uploads_dir"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"OLLAMA_HOST", func(c *Config) string { return c.Ollama.Host }},
	{"OLLAMA_MODEL", func(c *Config) string { return c.Ollama.Model }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"STORE_BACKEND", func(c *Config) string { return c.Store.Backend }},
	{"DOCQ_DB", func(c *Config) string { return c.Store.DBPath }},
	{"QDRANT_HOST", func(c *Config) string { return c.Store.QdrantHost }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Store.QdrantPort) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Store.QdrantAPIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Store.QdrantTLS) }},
	{"CHUNK_SIZE", func(c *Config) string { return intStr(c.Chunking.Size) }},
	{"CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Chunking.Overlap) }},
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"DOCQ_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"DOCQ_UPLOADS_DIR", func(c *Config) string { return c.Server.UploadsDir }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" || yamlVal == "0" || yamlVal == "false" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("DOCQ_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".docq", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("docq.yaml"); err == nil {
		return "docq.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
