package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/docqhq/docq-go/internal/store"
)

// OllamaPinger probes an Ollama server with a zero-cost GET /api/tags
// request. It satisfies the Pinger interface and is used by GET /api/ready.
// The same backend serves both embedding and generation, so one probe
// covers both concerns.
type OllamaPinger struct {
	// host is the Ollama server base URL.
	host string
	// client is the HTTP client used for probes.
	client *http.Client
}

// NewOllamaPinger constructs an OllamaPinger for the given base URL.
func NewOllamaPinger(host string) *OllamaPinger {
	return &OllamaPinger{
		host:   host,
		client: &http.Client{Timeout: probeTimeout},
	}
}

// Name returns the backend label used in readiness responses.
func (p *OllamaPinger) Name() string { return "ollama" }

// Ping issues GET /api/tags and succeeds on any 2xx response.
func (p *OllamaPinger) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// StorePinger probes the chunk store by listing its partitions, which
// exercises the full connection path for both SQLite and Qdrant backends.
type StorePinger struct {
	// store is the backend to probe.
	store store.Store
}

// NewStorePinger constructs a StorePinger for the given store.
func NewStorePinger(s store.Store) *StorePinger {
	return &StorePinger{store: s}
}

// Name returns the dependency label used in readiness responses.
func (p *StorePinger) Name() string { return "store" }

// Ping lists partitions with a short deadline.
func (p *StorePinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if _, err := p.store.ListPartitions(ctx); err != nil {
		return fmt.Errorf("list partitions failed: %w", err)
	}
	return nil
}
