package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Ollama is a Generator backed by a local Ollama server.
// Safe for concurrent use; each Generate call builds its own LLM handle
// because the model is chosen per request.
type Ollama struct {
	// host is the Ollama server base URL (e.g. "http://localhost:11434").
	host string
	// defaultModel is used when a call passes an empty model name.
	defaultModel string
	// client is used for non-generation endpoints like /api/tags.
	client *http.Client
}

// OllamaConfig holds the settings for constructing an Ollama generator.
type OllamaConfig struct {
	// Host is the Ollama server base URL (e.g. "http://localhost:11434").
	Host string
	// DefaultModel is the chat model used when a call does not name one.
	DefaultModel string
}

// NewOllama constructs an Ollama generator from the given config.
func NewOllama(cfg *OllamaConfig) *Ollama {
	host := cfg.Host
	if host == "" {
		host = "http://localhost:11434"
	}
	return &Ollama{
		host:         host,
		defaultModel: cfg.DefaultModel,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

// Generate runs a single-shot completion of prompt with the named model.
func (g *Ollama) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = g.defaultModel
	}

	llm, err := ollama.New(
		ollama.WithServerURL(g.host),
		ollama.WithModel(model),
	)
	if err != nil {
		return "", fmt.Errorf("generator: create ollama client: %w", err)
	}

	answer, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return answer, nil
}

// ollamaTagsResponse is the JSON body returned from the Ollama /api/tags endpoint.
type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	} `json:"models"`
}

// ListModels returns the models the Ollama server has pulled.
func (g *Ollama) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("generator: create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generator: list models: HTTP %d", resp.StatusCode)
	}

	var result ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("generator: decode response: %w", err)
	}

	models := make([]ModelInfo, 0, len(result.Models))
	for _, m := range result.Models {
		models = append(models, ModelInfo{Name: m.Name, Size: m.Size})
	}
	return models, nil
}
