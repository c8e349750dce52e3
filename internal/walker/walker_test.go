package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x\n"), 0o644))
	}
}

func TestMatcher_Ignored(t *testing.T) {
	m := NewMatcher([]string{".git", "node_modules", "*.lock", "gen/**/*.pb.go", "  "})

	cases := map[string]bool{
		"main.go":                      false,
		".git":                         true,
		".git/config":                  true,
		"web/node_modules/react/x.js":  true,
		"node_modules":                 true,
		"Cargo.lock":                   true,
		"sub/yarn.lock":                true,
		"gen/api/v1/svc.pb.go":         true,
		"gen/api/v1/svc.go":            false,
		"src/gitignore.go":             false,
		"docs/node_modules_readme.txt": false,
		".":                            false,
	}
	for rel, want := range cases {
		assert.Equal(t, want, m.Ignored(rel), rel)
	}
}

func TestMatcher_LiteralEntryIsNotAPrefix(t *testing.T) {
	m := NewMatcher([]string{"build"})
	assert.True(t, m.Ignored("build/out.txt"))
	assert.False(t, m.Ignored("builder/main.go"))
}

func TestCollect_LexicalOrderAndIgnores(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"b.go",
		"a.py",
		"pkg/z.go",
		"pkg/a.go",
		"node_modules/lib/index.js",
		".git/HEAD",
		"go.sum.lock",
	)

	files, err := Collect(context.Background(), root, NewMatcher([]string{".git", "node_modules", "*.lock"}))
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
		assert.True(t, filepath.IsAbs(f.Path))
	}
	assert.Equal(t, []string{"a.py", "b.go", "pkg/a.go", "pkg/z.go"}, rels)
}

func TestCollect_MissingRoot(t *testing.T) {
	_, err := Collect(context.Background(), filepath.Join(t.TempDir(), "nope"), NewMatcher(nil))
	require.Error(t, err)
}

func TestWalk_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.go", "b.go", "c.go")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	files, err := Collect(ctx, root, NewMatcher(nil))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, files)
}
