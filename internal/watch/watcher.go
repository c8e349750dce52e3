// Package watch reports batches of changed files under a project root.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"codeseek/internal/logging"
	"codeseek/internal/walker"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeFunc receives the absolute paths changed since the previous batch.
type ChangeFunc func(ctx context.Context, paths []string)

// Watcher watches every non-ignored directory under a root and hands
// changed file paths to a callback once per debounce interval.
type Watcher struct {
	root     string
	matcher  *walker.Matcher
	debounce time.Duration
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	pending  map[string]struct{}
}

// New creates a watcher for root. Nothing is watched until Run.
func New(root string, matcher *walker.Matcher, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if matcher == nil {
		matcher = walker.NewMatcher(nil)
	}
	logger = logging.OrNop(logger)
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		root:     absRoot,
		matcher:  matcher,
		debounce: debounce,
		logger:   logger,
		watcher:  fw,
		pending:  make(map[string]struct{}),
	}, nil
}

// Run watches until ctx is done. Events and callbacks share one goroutine,
// so onChange is never invoked concurrently with itself.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	defer w.watcher.Close()

	if err := w.addTree(w.root, false); err != nil {
		return err
	}

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		case <-ticker.C:
			w.flush(ctx, onChange)
		}
	}
}

// Close stops watching. Run also closes the watcher when it returns.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}
	return w.matcher.Ignored(rel)
}

// addTree watches dir and its non-ignored subdirectories. With enqueue set,
// files already present are queued, which covers files written into a new
// directory before it was being watched.
func (w *Watcher) addTree(dir string, enqueue bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if path != w.root && w.ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(err))
			}
			return nil
		}
		if enqueue && d.Type().IsRegular() {
			w.pending[path] = struct{}{}
		}
		return nil
	})
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if w.ignored(path) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.addTree(path, true); err != nil {
				w.logger.Warn("failed to watch new directory", zap.String("path", path), zap.Error(err))
			}
			return
		}
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.pending[path] = struct{}{}
	}
}

func (w *Watcher) flush(ctx context.Context, onChange ChangeFunc) {
	if len(w.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		// Directories removed from the tree arrive here too; they have no
		// points of their own and are skipped.
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			continue
		}
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	w.logger.Debug("files changed", zap.Int("count", len(paths)))
	onChange(ctx, paths)
}
