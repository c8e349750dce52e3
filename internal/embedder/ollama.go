package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// OllamaEmbedder talks to a local Ollama server through /api/embed, which
// accepts a whole batch of inputs per request.
type OllamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client
}

type embedRequest struct {
	Model    string   `json:"model"`
	Input    []string `json:"input"`
	Truncate bool     `json:"truncate"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder returns an embedder for model served at baseURL.
func NewOllamaEmbedder(baseURL, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *OllamaEmbedder) Model() string { return e.model }

// EmbedBatch embeds texts in a single round trip. Inputs longer than the
// model context are truncated server-side rather than rejected.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	data, err := postJSON(ctx, e.client, "ollama", e.baseURL+"/api/embed", nil,
		embedRequest{Model: e.model, Input: texts, Truncate: true},
		ollamaErrorMessage)
	if err != nil {
		return nil, err
	}

	var result embedResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode ollama embed response: %w", err)
	}
	if err := checkVectors(result.Embeddings, len(texts)); err != nil {
		return nil, fmt.Errorf("ollama model %s: %w", e.model, err)
	}
	return result.Embeddings, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// Ollama reports failures as {"error": "..."}.
func ollamaErrorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		return e.Error
	}
	return ""
}
