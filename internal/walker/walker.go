// Package walker enumerates the files of a project tree that are eligible for indexing.
package walker

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FileInfo holds metadata about a discovered file.
type FileInfo struct {
	Path    string // absolute, cleaned
	RelPath string // slash-separated, relative to the walk root
}

// Matcher decides whether a path is excluded by the ignore list.
//
// A plain entry matches when it equals any segment of the relative path or
// the base name. Entries containing glob metacharacters are matched against
// each segment and against the whole relative path.
type Matcher struct {
	literal map[string]struct{}
	globs   []string
}

// NewMatcher builds a matcher from ignore entries. Blank entries and
// invalid glob patterns are skipped.
func NewMatcher(entries []string) *Matcher {
	m := &Matcher{literal: make(map[string]struct{})}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.ContainsAny(e, "*?[{") {
			if doublestar.ValidatePattern(e) {
				m.globs = append(m.globs, e)
			}
			continue
		}
		m.literal[e] = struct{}{}
	}
	return m
}

// Ignored reports whether rel (relative to the project root, either
// separator) is excluded.
func (m *Matcher) Ignored(rel string) bool {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." || rel == "" {
		return false
	}
	segments := strings.Split(rel, "/")
	for _, seg := range segments {
		if _, ok := m.literal[seg]; ok {
			return true
		}
	}
	for _, g := range m.globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
		for _, seg := range segments {
			if ok, _ := doublestar.Match(g, seg); ok {
				return true
			}
		}
	}
	return false
}

// Walk traverses root in lexical order and sends every regular file not
// excluded by m on the returned channel. Ignored directories are not
// descended into. The walk stops early when ctx is cancelled.
func Walk(ctx context.Context, root string, m *Matcher) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- err
			return
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == absRoot {
					return err
				}
				return nil // unreadable entries are skipped
			}
			if path == absRoot {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			rel, _ := filepath.Rel(absRoot, path)
			if m.Ignored(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			select {
			case files <- FileInfo{Path: path, RelPath: filepath.ToSlash(rel)}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

// Collect drains Walk into a slice.
func Collect(ctx context.Context, root string, m *Matcher) ([]FileInfo, error) {
	files, errs := Walk(ctx, root, m)
	var out []FileInfo
	for f := range files {
		out = append(out, f)
	}
	if err := <-errs; err != nil {
		return out, err
	}
	return out, nil
}
