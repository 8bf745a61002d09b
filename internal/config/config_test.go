package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
ollama:
  host: http://ollama.internal:11434
  model: llama3.2
embedding:
  provider: ollama
  model: nomic-embed-text
  dimensions: 768
store:
  backend: qdrant
  qdrant_host: qdrant.internal
  qdrant_port: 6334
chunking:
  size: 800
  overlap: 120
server:
  host: 0.0.0.0
  port: 9090
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"OLLAMA_HOST", "OLLAMA_MODEL",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"STORE_BACKEND", "QDRANT_HOST", "QDRANT_PORT",
		"CHUNK_SIZE", "CHUNK_OVERLAP",
		"SERVER_HOST", "SERVER_PORT",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"OLLAMA_HOST":          "http://ollama.internal:11434",
		"OLLAMA_MODEL":         "llama3.2",
		"EMBEDDING_PROVIDER":   "ollama",
		"EMBEDDING_MODEL":      "nomic-embed-text",
		"EMBEDDING_DIMENSIONS": "768",
		"STORE_BACKEND":        "qdrant",
		"QDRANT_HOST":          "qdrant.internal",
		"QDRANT_PORT":          "6334",
		"CHUNK_SIZE":           "800",
		"CHUNK_OVERLAP":        "120",
		"SERVER_HOST":          "0.0.0.0",
		"SERVER_PORT":          "9090",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
embedding:
  provider: ollama
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading — it should NOT be overwritten.
	t.Setenv("EMBEDDING_PROVIDER", "openai")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("EMBEDDING_PROVIDER"); got != "openai" {
		t.Errorf("EMBEDDING_PROVIDER: expected env override %q, got %q", "openai", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestIntStr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   int
		want string
	}{
		{0, ""},
		{1, "1"},
		{6334, "6334"},
	}
	for _, tt := range tests {
		if got := intStr(tt.in); got != tt.want {
			t.Errorf("intStr(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
