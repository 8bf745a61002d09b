package embedder

import (
	"fmt"
	"os"
	"strconv"

	"github.com/docqhq/docq-go/internal/rag"
)

// Default embedding models per backend.
const (
	// DefaultOllamaModel is the embedding model used when neither the
	// request nor the environment names one.
	DefaultOllamaModel = "mxbai-embed-large:latest"

	defaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of mxbai-embed-large.
	// Other Ollama models may differ — override with EMBEDDING_DIMENSIONS.
	defaultOllamaDimensions = 1024
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536
)

// DefaultDimensions returns the correct default embedding vector size for the
// given backend name. Callers that need to pre-configure a vector store (e.g.
// Qdrant collection creation) should use this rather than hardcoding a value.
// EMBEDDING_DIMENSIONS always takes precedence when set.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case "ollama":
		return defaultOllamaDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// DefaultModel returns the fallback embedding model for the given backend,
// honoring EMBEDDING_MODEL when set.
func DefaultModel(backend string) string {
	if v := getEnv("EMBEDDING_MODEL"); v != "" {
		return v
	}
	switch backend {
	case "ollama":
		return DefaultOllamaModel
	default:
		return defaultOpenAIModel
	}
}

// NewFromEnv constructs a rag.Embedder from environment configuration.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER — ollama (default), openai, or azure
//  2. EMBEDDING_ENDPOINT — overrides the backend's default endpoint
//  3. EMBEDDING_MODEL — overrides the default model for the resolved backend
//  4. EMBEDDING_API_KEY — overrides the backend's native API key variable
//  5. EMBEDDING_DIMENSIONS — overrides the default dimensions
func NewFromEnv() (rag.Embedder, error) {
	backend := getEnvOrDefault("EMBEDDING_PROVIDER", "ollama")

	switch backend {
	case "ollama":
		host := getEnv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:         host,
			DefaultModel: DefaultModel("ollama"),
		}), nil

	case "openai":
		dims := getEnvInt("EMBEDDING_DIMENSIONS", defaultOpenAIDimensions)
		apiKey := getEnv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = getEnv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		baseURL := getEnv("EMBEDDING_ENDPOINT")
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:      baseURL,
			APIKey:       apiKey,
			DefaultModel: DefaultModel("openai"),
			Dimensions:   dims,
		}), nil

	case "azure":
		dims := getEnvInt("EMBEDDING_DIMENSIONS", defaultOpenAIDimensions)
		apiKey := getEnv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = getEnv("AZURE_OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		endpoint := getEnv("EMBEDDING_ENDPOINT")
		if endpoint == "" {
			endpoint = getEnv("AZURE_OPENAI_ENDPOINT")
		}
		if endpoint == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
		apiVersion := getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2025-04-01-preview")
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:      endpoint + "/openai",
			APIKey:       apiKey,
			DefaultModel: DefaultModel("azure"),
			Dimensions:   dims,
			Azure:        true,
			APIVersion:   apiVersion,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q — valid values: ollama, openai, azure", backend)
	}
}

// getEnv returns the value of the named environment variable, or empty string.
func getEnv(key string) string {
	return os.Getenv(key)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
