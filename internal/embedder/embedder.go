// Package embedder turns text into vectors through a configured provider.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"codeseek/internal/config"
)

// Embedder is the contract every embedding backend satisfies.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

const dimensionProbe = "dimension probe"

// Provider wraps an Embedder and remembers its output dimension.
type Provider struct {
	Embedder

	mu  sync.Mutex
	dim int
}

// NewProvider wraps e.
func NewProvider(e Embedder) *Provider {
	return &Provider{Embedder: e}
}

// Dimension returns the provider's vector size, probing the backend with a
// single embedding on first use.
func (p *Provider) Dimension(ctx context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dim > 0 {
		return p.dim, nil
	}
	v, err := p.Embed(ctx, dimensionProbe)
	if err != nil {
		return 0, fmt.Errorf("probe embedding dimension: %w", err)
	}
	if len(v) == 0 {
		return 0, errors.New("probe embedding dimension: provider returned an empty vector")
	}
	p.dim = len(v)
	return p.dim, nil
}

// Registry builds the configured provider once and hands the same instance to
// every caller.
type Registry struct {
	mu       sync.Mutex
	build    func() (Embedder, error)
	provider *Provider
}

// NewRegistry creates a registry for the provider described by cfg.
func NewRegistry(cfg config.EmbeddingConfig) *Registry {
	return &Registry{build: func() (Embedder, error) { return fromConfig(cfg) }}
}

// NewStaticRegistry creates a registry around an already constructed embedder.
func NewStaticRegistry(e Embedder) *Registry {
	return &Registry{build: func() (Embedder, error) { return e, nil }}
}

// Provider returns the shared provider, constructing it on first call.
func (r *Registry) Provider() (*Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.provider != nil {
		return r.provider, nil
	}
	e, err := r.build()
	if err != nil {
		return nil, err
	}
	r.provider = NewProvider(e)
	return r.provider, nil
}

func fromConfig(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaEmbedder(cfg.URL, cfg.Model), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.URL, cfg.APIKey, cfg.Model), nil
	case "mock":
		return NewMockEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
