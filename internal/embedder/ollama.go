package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaEmbedder calls the Ollama /api/embed endpoint.
type OllamaEmbedder struct {
	baseURL      string
	passageModel string
	queryModel   string
	client       *http.Client
}

// NewOllamaEmbedder creates an embedder targeting the Ollama instance at
// cfg.BaseURL. An empty QueryModel reuses PassageModel.
func NewOllamaEmbedder(cfg Config) *OllamaEmbedder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	query := cfg.QueryModel
	if query == "" {
		query = cfg.PassageModel
	}
	return &OllamaEmbedder{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		passageModel: cfg.PassageModel,
		queryModel:   query,
		client:       &http.Client{Timeout: timeout},
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedDocuments embeds passages with the passage model.
func (e *OllamaEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, e.passageModel, texts)
}

// EmbedQuery embeds text with the query model.
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	results, err := e.embed(ctx, e.queryModel, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

func (e *OllamaEmbedder) embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama request: %v", ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama returned %d: %s", ErrEmbedding, resp.StatusCode, string(respBody))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrEmbedding, err)
	}
	if err := checkCount(len(texts), len(result.Embeddings)); err != nil {
		return nil, err
	}
	return result.Embeddings, nil
}
