// Package index keeps a vector collection in step with a source tree and
// answers similarity queries against it.
package index

import (
	"context"
	"fmt"

	"codeseek/internal/chunker"
	"codeseek/internal/chunker/languages"
	"codeseek/internal/config"
	"codeseek/internal/embedder"
	"codeseek/internal/logging"
	"codeseek/internal/store"

	"go.uber.org/zap"
)

// Engine wires the store, embedder, chunker, synchronizer, indexer and
// searcher built from one configuration.
type Engine struct {
	Store     store.Gateway
	Embedders *embedder.Registry
	Sync      *Synchronizer
	Indexer   *Indexer
	Searcher  *Searcher
}

// Open builds an Engine from cfg, opening the configured store backend.
func Open(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	g, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	e, err := NewEngine(cfg, g, embedder.NewRegistry(cfg.Embedding), logger)
	if err != nil {
		g.Close()
		return nil, err
	}
	return e, nil
}

// NewEngine builds an Engine on an existing gateway and embedder registry.
func NewEngine(cfg *config.Config, g store.Gateway, embedders *embedder.Registry, logger *zap.Logger) (*Engine, error) {
	logger = logging.OrNop(logger)
	reg := chunker.NewRegistry()
	languages.RegisterAll(reg)
	c, err := chunker.New(reg, chunker.Options{
		WindowSize: cfg.Chunking.WindowSize,
		Overlap:    cfg.Chunking.OverlapLines(),
		Languages:  cfg.Chunking.Languages,
		Boundaries: cfg.Chunking.Boundaries,
		Logger:     logger.Named("chunker"),
	})
	if err != nil {
		return nil, err
	}

	s := NewSynchronizer(g, embedders, c, cfg.Store.Collection, logger.Named("sync"))
	return &Engine{
		Store:     g,
		Embedders: embedders,
		Sync:      s,
		Indexer:   NewIndexer(s, cfg.Ignore, logger.Named("indexer")),
		Searcher:  NewSearcher(g, embedders, cfg.Store.Collection, cfg.Query.Instruction, cfg.Query.Limit),
	}, nil
}

// UpdateFile synchronizes a single file.
func (e *Engine) UpdateFile(ctx context.Context, path string) (Result, error) {
	return e.Sync.UpdateFile(ctx, path)
}

// IndexProject synchronizes every eligible file under root.
func (e *Engine) IndexProject(ctx context.Context, root string) (*Stats, error) {
	return e.Indexer.IndexProject(ctx, root)
}

// Query runs a similarity search.
func (e *Engine) Query(ctx context.Context, text string, limit int) ([]SearchResult, error) {
	return e.Searcher.Query(ctx, text, limit)
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.Store.Close()
}
