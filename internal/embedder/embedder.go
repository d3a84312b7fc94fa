// Package embedder turns text into vectors through a remote embedding API.
//
// Passages and queries use distinct model variants that share one vector
// space, so a query vector can be compared directly with stored passages.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmbedding is returned, wrapped, by every failed embedding call.
var ErrEmbedding = errors.New("embedding failed")

// Embedder is the embedding gateway.
type Embedder interface {
	// EmbedDocuments embeds passages in one remote call. The result has
	// the same length and order as texts. Empty input makes no call.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Config selects and configures an Embedder backend.
type Config struct {
	Provider     string
	BaseURL      string
	APIKey       string
	PassageModel string
	QueryModel   string
	Timeout      time.Duration
}

// New builds the Embedder for cfg.Provider ("openai" or "ollama").
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(cfg)
	case "ollama":
		return NewOllamaEmbedder(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
}

func checkCount(want, got int) error {
	if want != got {
		return fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbedding, want, got)
	}
	return nil
}
