package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"codeseek/internal/chunker"
	"codeseek/internal/embedder"
	"codeseek/internal/logging"
	"codeseek/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result reports the outcome of synchronizing one file.
type Result struct {
	Path    string
	Chunks  int
	Removed bool // the file no longer exists; its points were only deleted
	// Nested counts stored files under Path that were dropped because Path
	// vanished as a directory.
	Nested int
}

// Synchronizer keeps the points of a single file in step with its content.
// It assumes it is the only writer for the collection.
type Synchronizer struct {
	store      store.Gateway
	embedders  *embedder.Registry
	chunker    *chunker.Chunker
	collection string
	logger     *zap.Logger
	newID      func() string

	mu    sync.Mutex
	ready bool
}

// NewSynchronizer creates a synchronizer writing to collection.
func NewSynchronizer(g store.Gateway, embedders *embedder.Registry, c *chunker.Chunker, collection string, logger *zap.Logger) *Synchronizer {
	logger = logging.OrNop(logger)
	return &Synchronizer{
		store:      g,
		embedders:  embedders,
		chunker:    c,
		collection: collection,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

// EnsureCollection matches the collection to the provider's dimension. The
// check runs once per Synchronizer; later calls are no-ops.
func (s *Synchronizer) EnsureCollection(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return false, nil
	}
	p, err := s.embedders.Provider()
	if err != nil {
		return false, err
	}
	dim, err := p.Dimension(ctx)
	if err != nil {
		return false, err
	}
	recreated, err := store.EnsureCollection(ctx, s.store, s.collection, dim, s.logger)
	if err != nil {
		return false, err
	}
	s.ready = true
	return recreated, nil
}

// UpdateFile replaces every point for path with fresh ones built from the
// file's current content. A file that no longer exists ends up with no
// points and is not an error. When path was a directory that has left the
// tree, every stored file beneath it is removed as well.
func (s *Synchronizer) UpdateFile(ctx context.Context, path string) (Result, error) {
	abs, err := normalizePath(path)
	if err != nil {
		return Result{Path: path}, err
	}
	res := Result{Path: abs}

	if _, err := s.EnsureCollection(ctx); err != nil {
		return res, err
	}
	if err := s.store.DeleteByFilePath(ctx, s.collection, abs); err != nil {
		return res, fmt.Errorf("delete points for %s: %w", abs, err)
	}

	content, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("file gone, points removed", zap.String("path", abs))
		res.Removed = true
		res.Nested, err = s.removeUnder(ctx, abs)
		return res, err
	}
	if err != nil {
		return res, fmt.Errorf("read %s: %w", abs, err)
	}

	chunks := s.chunker.ChunkFile(abs, content)
	if len(chunks) == 0 {
		return res, nil
	}

	p, err := s.embedders.Provider()
	if err != nil {
		return res, err
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.EmbedBatch(ctx, texts)
	if err != nil {
		return res, fmt.Errorf("embed %s: %w", abs, err)
	}
	if len(vectors) != len(chunks) {
		return res, fmt.Errorf("embed %s: got %d vectors for %d chunks", abs, len(vectors), len(chunks))
	}

	points := make([]store.Point, len(chunks))
	for i, c := range chunks {
		points[i] = store.Point{
			ID:     s.newID(),
			Vector: vectors[i],
			Payload: store.Payload{
				FilePath:  abs,
				StartLine: c.StartLine,
				EndLine:   c.EndLine,
				Text:      c.Text,
			},
		}
	}
	if err := s.store.Upsert(ctx, s.collection, points); err != nil {
		return res, fmt.Errorf("upsert points for %s: %w", abs, err)
	}

	res.Chunks = len(points)
	s.logger.Debug("file synchronized", zap.String("path", abs), zap.Int("chunks", res.Chunks))
	return res, nil
}

// Remove deletes every point for path without looking at the file.
func (s *Synchronizer) Remove(ctx context.Context, path string) error {
	abs, err := normalizePath(path)
	if err != nil {
		return err
	}
	if _, err := s.EnsureCollection(ctx); err != nil {
		return err
	}
	if err := s.store.DeleteByFilePath(ctx, s.collection, abs); err != nil {
		return fmt.Errorf("delete points for %s: %w", abs, err)
	}
	return nil
}

// removeUnder deletes the points of every stored file strictly below dir.
func (s *Synchronizer) removeUnder(ctx context.Context, dir string) (int, error) {
	stored, err := s.store.FilePaths(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("list indexed files: %w", err)
	}
	removed := 0
	for _, p := range stored {
		if p == dir || !withinDir(p, dir) {
			continue
		}
		if err := s.store.DeleteByFilePath(ctx, s.collection, p); err != nil {
			return removed, fmt.Errorf("delete points for %s: %w", p, err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Debug("directory gone, nested points removed", zap.String("path", dir), zap.Int("files", removed))
	}
	return removed, nil
}

// withinDir reports whether p is dir or lies below it. A trailing separator
// on dir, as with the filesystem root, is ignored.
func withinDir(p, dir string) bool {
	if p == dir {
		return true
	}
	prefix := strings.TrimRight(dir, string(filepath.Separator)) + string(filepath.Separator)
	return strings.HasPrefix(p, prefix)
}

// normalizePath makes path absolute and clean so every entry point stores
// the same key for a file.
func normalizePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty file path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

// Collection returns the name of the collection the synchronizer writes to.
func (s *Synchronizer) Collection() string {
	return s.collection
}
