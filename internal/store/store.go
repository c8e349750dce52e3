// Package store is the gateway to the vector store holding indexed chunks.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"codeseek/internal/config"

	"go.uber.org/zap"
)

// DistanceCosine is the only distance metric codeseek provisions.
const DistanceCosine = "cosine"

var (
	// ErrCollectionNotFound is returned by operations on a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrDimensionMismatch is returned when a vector does not fit the collection.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Payload is the chunk metadata stored next to each vector.
type Payload struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Text      string `json:"text"`
}

// Point is a stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// ScoredPoint is a search hit; Score is the cosine similarity to the query.
type ScoredPoint struct {
	ID      string
	Score   float64
	Payload Payload
}

// CollectionInfo describes a collection. Found is false when it does not exist.
type CollectionInfo struct {
	Found      bool
	VectorSize int
}

// Gateway is the narrow contract codeseek needs from a vector store. Every
// write blocks until the store reports it applied.
type Gateway interface {
	// DescribeCollection reports whether name exists and its vector size.
	DescribeCollection(ctx context.Context, name string) (CollectionInfo, error)
	// CreateCollection creates name with cosine distance.
	CreateCollection(ctx context.Context, name string, dim int) error
	// DeleteCollection drops name and all of its points.
	DeleteCollection(ctx context.Context, name string) error
	// DeleteByFilePath removes every point whose payload file_path equals path.
	DeleteByFilePath(ctx context.Context, name, path string) error
	// Upsert inserts or overwrites points by ID.
	Upsert(ctx context.Context, name string, points []Point) error
	// Search returns up to limit points by descending cosine similarity.
	Search(ctx context.Context, name string, vector []float32, limit int) ([]ScoredPoint, error)
	// FilePaths returns the distinct payload file paths in name.
	FilePaths(ctx context.Context, name string) ([]string, error)
	// Close releases the gateway.
	Close() error
}

// EnsureCollection makes sure name exists with vector size dim. A collection
// with a different size is dropped and recreated, losing its points; the
// returned bool reports that recreation.
func EnsureCollection(ctx context.Context, g Gateway, name string, dim int, logger *zap.Logger) (bool, error) {
	if dim <= 0 {
		return false, fmt.Errorf("ensure collection %s: invalid dimension %d", name, dim)
	}
	info, err := g.DescribeCollection(ctx, name)
	if err != nil {
		return false, fmt.Errorf("describe collection %s: %w", name, err)
	}
	switch {
	case !info.Found:
		if err := g.CreateCollection(ctx, name, dim); err != nil {
			return false, fmt.Errorf("create collection %s: %w", name, err)
		}
		return false, nil
	case info.VectorSize == dim:
		return false, nil
	}

	if logger != nil {
		logger.Warn("embedding dimension changed, recreating collection; all indexed points are dropped",
			zap.String("collection", name),
			zap.Int("old_size", info.VectorSize),
			zap.Int("new_size", dim))
	}
	if err := g.DeleteCollection(ctx, name); err != nil {
		return false, fmt.Errorf("drop collection %s: %w", name, err)
	}
	if err := g.CreateCollection(ctx, name, dim); err != nil {
		return false, fmt.Errorf("recreate collection %s: %w", name, err)
	}
	return true, nil
}

// Open creates the gateway selected by cfg.Backend.
func Open(cfg config.StoreConfig) (Gateway, error) {
	switch cfg.Backend {
	case "qdrant":
		return NewQdrantStore(cfg.URL, cfg.APIKey), nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		return OpenSQLite(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}
