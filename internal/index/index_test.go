package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"codeseek/internal/config"
	"codeseek/internal/embedder"
	"codeseek/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCollection = "test"

const pyTwoFuncs = `def alpha(x):
    y = x + 1
    if y > 2:
        y = 0
    return y

def beta(items):
    total = 0
    for i in items:
        total += i
    def inner():
        return 1
    total += inner()
    return total
`

// recordingEmbedder wraps the mock and remembers every input, failing on
// texts that contain the configured marker.
type recordingEmbedder struct {
	*embedder.MockEmbedder

	mu         sync.Mutex
	queries    []string
	batches    int
	failMarker string
}

func (r *recordingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	r.mu.Lock()
	r.queries = append(r.queries, text)
	r.mu.Unlock()
	return r.MockEmbedder.Embed(ctx, text)
}

func (r *recordingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	r.mu.Lock()
	r.batches++
	r.mu.Unlock()
	for _, t := range texts {
		if r.failMarker != "" && strings.Contains(t, r.failMarker) {
			return nil, errors.New("embedding backend rejected input")
		}
	}
	return r.MockEmbedder.EmbedBatch(ctx, texts)
}

type fixture struct {
	engine *Engine
	mem    *store.MemoryStore
	emb    *recordingEmbedder
	root   string
}

func newFixture(t *testing.T, dim int, mutate func(*config.Config)) *fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	return newFixtureOn(t, mem, dim, mutate)
}

func newFixtureOn(t *testing.T, mem *store.MemoryStore, dim int, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Backend = "memory"
	cfg.Store.Collection = testCollection
	if mutate != nil {
		mutate(cfg)
	}
	emb := &recordingEmbedder{MockEmbedder: embedder.NewMockEmbedder(dim)}
	e, err := NewEngine(cfg, mem, embedder.NewStaticRegistry(emb), nil)
	require.NoError(t, err)
	return &fixture{engine: e, mem: mem, emb: emb, root: t.TempDir()}
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	p := filepath.Join(f.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

type span struct {
	start, end int
	text       string
}

func (f *fixture) spans(path string) []span {
	var out []span
	for _, p := range f.mem.Points(testCollection) {
		if p.Payload.FilePath == path {
			out = append(out, span{p.Payload.StartLine, p.Payload.EndLine, p.Payload.Text})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

func numbered(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func TestUpdateFile_PointsMatchChunks(t *testing.T) {
	f := newFixture(t, 16, nil)
	ctx := context.Background()
	path := f.write(t, "pkg/funcs.py", pyTwoFuncs)

	res, err := f.engine.UpdateFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Chunks)
	assert.False(t, res.Removed)
	assert.Equal(t, 1, f.emb.batches, "one embedding round trip per file")

	pts := f.mem.Points(testCollection)
	require.Len(t, pts, 2)
	for _, p := range pts {
		assert.Equal(t, path, p.Payload.FilePath)
		want, err := f.emb.MockEmbedder.Embed(ctx, p.Payload.Text)
		require.NoError(t, err)
		assert.Equal(t, want, p.Vector)
	}
	assert.Equal(t, []span{
		{1, 5, pts[0].Payload.Text},
		{7, 14, pts[1].Payload.Text},
	}, f.spans(path))
}

func TestUpdateFile_Idempotent(t *testing.T) {
	f := newFixture(t, 8, nil)
	ctx := context.Background()
	path := f.write(t, "notes.txt", numbered(47))

	_, err := f.engine.UpdateFile(ctx, path)
	require.NoError(t, err)
	first := f.spans(path)
	firstIDs := map[string]bool{}
	for _, p := range f.mem.Points(testCollection) {
		firstIDs[p.ID] = true
	}

	_, err = f.engine.UpdateFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, first, f.spans(path))
	assert.Len(t, first, 4)

	for _, p := range f.mem.Points(testCollection) {
		assert.False(t, firstIDs[p.ID], "ids are regenerated on every sync")
	}
}

func TestUpdateFile_ReplacesOnChange(t *testing.T) {
	f := newFixture(t, 8, nil)
	ctx := context.Background()
	path := f.write(t, "notes.txt", numbered(47))
	_, err := f.engine.UpdateFile(ctx, path)
	require.NoError(t, err)

	f.write(t, "notes.txt", numbered(10))
	res, err := f.engine.UpdateFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Chunks)
	assert.Len(t, f.spans(path), 1)
}

func TestUpdateFile_DeletedFileRemovesPoints(t *testing.T) {
	f := newFixture(t, 8, nil)
	ctx := context.Background()
	keep := f.write(t, "keep.py", pyTwoFuncs)
	gone := f.write(t, "gone.py", pyTwoFuncs)
	for _, p := range []string{keep, gone} {
		_, err := f.engine.UpdateFile(ctx, p)
		require.NoError(t, err)
	}

	require.NoError(t, os.Remove(gone))
	res, err := f.engine.UpdateFile(ctx, gone)
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Empty(t, f.spans(gone))
	assert.Len(t, f.spans(keep), 2)
}

func TestUpdateFile_NeverExistedIsNotAnError(t *testing.T) {
	f := newFixture(t, 8, nil)
	res, err := f.engine.UpdateFile(context.Background(), filepath.Join(f.root, "missing.go"))
	require.NoError(t, err)
	assert.True(t, res.Removed)
}

func TestUpdateFile_VanishedDirectoryRemovesNestedFiles(t *testing.T) {
	f := newFixture(t, 8, nil)
	ctx := context.Background()
	nested := f.write(t, "sub/x.txt", "inside\n")
	deeper := f.write(t, "sub/deep/y.txt", "deeper\n")
	sibling := f.write(t, "subway.txt", "next door\n")
	for _, p := range []string{nested, deeper, sibling} {
		_, err := f.engine.UpdateFile(ctx, p)
		require.NoError(t, err)
	}

	dir := filepath.Join(f.root, "sub")
	require.NoError(t, os.Rename(dir, filepath.Join(t.TempDir(), "moved")))

	res, err := f.engine.UpdateFile(ctx, dir)
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Equal(t, 2, res.Nested)
	assert.Empty(t, f.spans(nested))
	assert.Empty(t, f.spans(deeper))
	assert.Len(t, f.spans(sibling), 1)
}

func TestWithinDir(t *testing.T) {
	sep := string(filepath.Separator)
	root := sep
	tests := []struct {
		p, dir string
		want   bool
	}{
		{sep + "a" + sep + "b.go", root, true},
		{sep + "a" + sep + "b.go", sep + "a", true},
		{sep + "a" + sep + "b.go", sep + "a" + sep, true},
		{sep + "a", sep + "a", true},
		{sep + "ab" + sep + "c.go", sep + "a", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, withinDir(tt.p, tt.dir), "%s in %s", tt.p, tt.dir)
	}
}

func TestUpdateFile_EmptyFileHasNoPoints(t *testing.T) {
	f := newFixture(t, 8, nil)
	path := f.write(t, "empty.go", "")
	res, err := f.engine.UpdateFile(context.Background(), path)
	require.NoError(t, err)
	assert.Zero(t, res.Chunks)
	assert.Zero(t, f.emb.batches)
	assert.Empty(t, f.mem.Points(testCollection))
}

func TestUpdateFile_NormalizesPath(t *testing.T) {
	f := newFixture(t, 8, nil)
	path := f.write(t, "a/b.txt", "hello\n")
	messy := filepath.Join(f.root, "a", "..", "a", ".", "b.txt")

	res, err := f.engine.UpdateFile(context.Background(), messy)
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.Len(t, f.spans(path), 1)
}

func TestUpdateFile_EmbedFailureSurfaces(t *testing.T) {
	f := newFixture(t, 8, nil)
	f.emb.failMarker = "EXPLODE"
	path := f.write(t, "bad.txt", "EXPLODE\n")

	_, err := f.engine.UpdateFile(context.Background(), path)
	require.Error(t, err)
	assert.Empty(t, f.spans(path))
}

func TestIndexProject_IgnoresFailuresAndCounts(t *testing.T) {
	f := newFixture(t, 8, func(c *config.Config) {
		c.Ignore = []string{"node_modules", ".git", "*.lock"}
	})
	f.emb.failMarker = "EXPLODE"
	f.write(t, "a.py", pyTwoFuncs)
	f.write(t, "b/bad.txt", "EXPLODE\n")
	f.write(t, "b/c.txt", numbered(21))
	f.write(t, "node_modules/dep/index.js", "function x() {}\n")
	f.write(t, ".git/HEAD", "ref: refs/heads/main\n")
	f.write(t, "yarn.lock", "lock\n")

	stats, err := f.engine.IndexProject(context.Background(), f.root)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.FilesTotal)
	assert.Equal(t, 2, stats.FilesSynced)
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 4, stats.ChunksTotal)

	paths, err := f.mem.FilePaths(context.Background(), testCollection)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(f.root, "a.py"),
		filepath.Join(f.root, "b", "c.txt"),
	}, paths)
}

func TestIndexProject_PrunesDeletedAndIgnoredFiles(t *testing.T) {
	mem := store.NewMemoryStore()
	f := newFixtureOn(t, mem, 8, nil)
	ctx := context.Background()
	f.write(t, "a.py", pyTwoFuncs)
	gone := f.write(t, "gone.txt", "bye\n")
	f.write(t, "gen/out.txt", "generated\n")

	_, err := f.engine.IndexProject(ctx, f.root)
	require.NoError(t, err)

	require.NoError(t, os.Remove(gone))
	second := newFixtureOn(t, mem, 8, func(c *config.Config) { c.Ignore = []string{"gen"} })
	var phases []string
	second.engine.Indexer.OnProgress(func(phase string, processed, total int) {
		if len(phases) == 0 || phases[len(phases)-1] != phase {
			phases = append(phases, phase)
		}
	})
	stats, err := second.engine.IndexProject(ctx, f.root)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesRemoved)
	assert.Equal(t, []string{"Indexing files...", "Pruning stale files..."}, phases)

	paths, err := mem.FilePaths(ctx, testCollection)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(f.root, "a.py")}, paths)
}

func TestIndexProject_LeavesOtherRootsAlone(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := context.Background()
	one := newFixtureOn(t, mem, 8, nil)
	two := newFixtureOn(t, mem, 8, nil)
	one.write(t, "x.txt", "one\n")
	two.write(t, "y.txt", "two\n")

	_, err := one.engine.IndexProject(ctx, one.root)
	require.NoError(t, err)
	stats, err := two.engine.IndexProject(ctx, two.root)
	require.NoError(t, err)
	assert.Zero(t, stats.FilesRemoved)

	paths, err := mem.FilePaths(ctx, testCollection)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}

func TestIndexProject_MissingRoot(t *testing.T) {
	f := newFixture(t, 8, nil)
	_, err := f.engine.IndexProject(context.Background(), filepath.Join(f.root, "nope"))
	require.Error(t, err)
}

func TestQuery_OrderingLimitAndInstruction(t *testing.T) {
	f := newFixture(t, 32, nil)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		f.write(t, fmt.Sprintf("doc%d.txt", i), numbered(47+i))
	}
	_, err := f.engine.IndexProject(ctx, f.root)
	require.NoError(t, err)

	results, err := f.engine.Query(ctx, "where is line 3", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultLimit)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		assert.NotEmpty(t, r.Code)
		assert.True(t, filepath.IsAbs(r.FilePath))
		assert.LessOrEqual(t, r.StartLine, r.EndLine)
	}

	require.NotEmpty(t, f.emb.queries)
	last := f.emb.queries[len(f.emb.queries)-1]
	assert.Equal(t, config.DefaultInstruction+"where is line 3", last)

	results, err = f.engine.Query(ctx, "anything", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestQuery_ExactChunkRanksFirst(t *testing.T) {
	f := newFixture(t, 32, func(c *config.Config) { c.Query.Instruction = "" })
	ctx := context.Background()
	path := f.write(t, "pkg/funcs.py", pyTwoFuncs)
	_, err := f.engine.UpdateFile(ctx, path)
	require.NoError(t, err)

	target := f.spans(path)[1].text
	results, err := f.engine.Query(ctx, target, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 7, results[0].StartLine)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}

func TestQuery_EmptyCollection(t *testing.T) {
	f := newFixture(t, 8, nil)
	ctx := context.Background()
	_, err := f.engine.Sync.EnsureCollection(ctx)
	require.NoError(t, err)

	results, err := f.engine.Query(ctx, "nothing here", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQuery_MissingCollection(t *testing.T) {
	f := newFixture(t, 8, nil)
	_, err := f.engine.Query(context.Background(), "q", 5)
	assert.ErrorIs(t, err, store.ErrCollectionNotFound)
}

func TestQuery_DimensionMismatch(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, mem.CreateCollection(ctx, testCollection, 12))

	f := newFixtureOn(t, mem, 8, nil)
	_, err := f.engine.Query(ctx, "q", 5)
	assert.ErrorIs(t, err, store.ErrDimensionMismatch)
}

func TestModelSwitchRecreatesCollection(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := context.Background()

	small := newFixtureOn(t, mem, 384, nil)
	path := small.write(t, "pkg/funcs.py", pyTwoFuncs)
	_, err := small.engine.UpdateFile(ctx, path)
	require.NoError(t, err)
	require.Len(t, mem.Points(testCollection), 2)

	large := newFixtureOn(t, mem, 768, nil)
	recreated, err := large.engine.Sync.EnsureCollection(ctx)
	require.NoError(t, err)
	assert.True(t, recreated)

	info, err := mem.DescribeCollection(ctx, testCollection)
	require.NoError(t, err)
	assert.Equal(t, 768, info.VectorSize)
	assert.Empty(t, mem.Points(testCollection))
}
