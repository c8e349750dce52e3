package index

import (
	"context"
	"fmt"
	"path/filepath"

	"codeseek/internal/logging"
	"codeseek/internal/walker"

	"go.uber.org/zap"
)

// Stats reports indexing results.
type Stats struct {
	FilesTotal   int
	FilesSynced  int
	FilesFailed  int
	FilesRemoved int
	ChunksTotal  int
	Recreated    bool
}

// ProgressFunc is called after each file with the current phase name and
// how many of total items have been processed.
type ProgressFunc func(phase string, processed, total int)

// Indexer synchronizes every eligible file under a project root.
type Indexer struct {
	sync       *Synchronizer
	matcher    *walker.Matcher
	logger     *zap.Logger
	onProgress ProgressFunc
}

// NewIndexer creates an indexer that skips paths matched by ignore.
func NewIndexer(s *Synchronizer, ignore []string, logger *zap.Logger) *Indexer {
	logger = logging.OrNop(logger)
	return &Indexer{
		sync:    s,
		matcher: walker.NewMatcher(ignore),
		logger:  logger,
	}
}

// OnProgress registers fn to receive progress updates.
func (ix *Indexer) OnProgress(fn ProgressFunc) {
	ix.onProgress = fn
}

// Matcher returns the ignore matcher used by the indexer.
func (ix *Indexer) Matcher() *walker.Matcher {
	return ix.matcher
}

func (ix *Indexer) progress(phase string, processed, total int) {
	if ix.onProgress != nil {
		ix.onProgress(phase, processed, total)
	}
}

// IndexProject synchronizes every non-ignored file under root, one at a time
// in lexical order. A failing file is logged and counted; the run continues.
// Points for files under root that were not visited are deleted afterwards.
func (ix *Indexer) IndexProject(ctx context.Context, root string) (*Stats, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	var stats Stats
	stats.Recreated, err = ix.sync.EnsureCollection(ctx)
	if err != nil {
		return nil, err
	}

	files, err := walker.Collect(ctx, absRoot, ix.matcher)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, err)
	}
	stats.FilesTotal = len(files)
	ix.logger.Info("indexing project", zap.String("root", absRoot), zap.Int("files", len(files)))

	visited := make(map[string]struct{}, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return &stats, err
		}
		visited[f.Path] = struct{}{}

		res, err := ix.sync.UpdateFile(ctx, f.Path)
		if err != nil {
			ix.logger.Error("failed to sync file", zap.String("path", f.Path), zap.Error(err))
			stats.FilesFailed++
		} else {
			stats.FilesSynced++
			stats.ChunksTotal += res.Chunks
		}
		ix.progress("Indexing files...", i+1, len(files))
	}

	removed, err := ix.prune(ctx, absRoot, visited)
	stats.FilesRemoved = removed
	if err != nil {
		return &stats, err
	}

	ix.logger.Info("indexing complete",
		zap.Int("synced", stats.FilesSynced),
		zap.Int("failed", stats.FilesFailed),
		zap.Int("removed", stats.FilesRemoved),
		zap.Int("chunks", stats.ChunksTotal))
	return &stats, nil
}

// prune deletes points for stored files under root that the walk did not
// visit, which covers files deleted from disk and files newly ignored.
func (ix *Indexer) prune(ctx context.Context, root string, visited map[string]struct{}) (int, error) {
	stored, err := ix.sync.store.FilePaths(ctx, ix.sync.collection)
	if err != nil {
		ix.logger.Warn("cannot list indexed files, skipping prune", zap.Error(err))
		return 0, nil
	}

	var stale []string
	for _, p := range stored {
		if _, ok := visited[p]; ok {
			continue
		}
		if withinDir(p, root) {
			stale = append(stale, p)
		}
	}

	removed := 0
	for i, p := range stale {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := ix.sync.Remove(ctx, p); err != nil {
			ix.logger.Error("failed to prune file", zap.String("path", p), zap.Error(err))
			continue
		}
		removed++
		ix.progress("Pruning stale files...", i+1, len(stale))
	}
	return removed, nil
}
