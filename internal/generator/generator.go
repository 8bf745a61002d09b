// Package generator produces answers from assembled prompts by calling a
// chat model backend. It is the last stage of the query pipeline: the
// retrieval layers build the prompt, the generator turns it into text.
package generator

import (
	"context"
	"errors"
)

// ErrBackendUnavailable is returned when the generation backend cannot be
// reached. Callers map it to a bad-gateway response.
var ErrBackendUnavailable = errors.New("generator: backend unavailable")

// ModelInfo describes one model available on the backend.
type ModelInfo struct {
	// Name is the model identifier used in generation requests.
	Name string `json:"name"`

	// Size is the on-disk model size in bytes, when the backend reports it.
	Size int64 `json:"size,omitempty"`
}

// Generator turns a fully assembled prompt into an answer.
type Generator interface {
	// Generate runs a single-shot completion of prompt with the named
	// model and returns the answer text.
	Generate(ctx context.Context, model, prompt string) (string, error)

	// ListModels returns the models the backend currently serves.
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
