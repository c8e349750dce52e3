package tui

import (
	"strings"
	"testing"

	"codeseek/internal/index"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMarkdown(t *testing.T) {
	md := FormatMarkdown("open the db", []index.SearchResult{
		{Score: 0.91234, FilePath: "/src/store/sqlite.py", StartLine: 10, EndLine: 22, Code: "def open_db():\n    pass\n"},
		{Score: 0.5, FilePath: "/src/main.go", StartLine: 1, EndLine: 3, Code: "package main"},
	})

	assert.Contains(t, md, `## Search results for "open the db" (2 chunks)`)
	assert.Contains(t, md, "### 1. `/src/store/sqlite.py:10-22`")
	assert.Contains(t, md, "**Score:** 0.9123")
	assert.Contains(t, md, "```python\ndef open_db():\n    pass\n```")
	assert.Contains(t, md, "```go\npackage main\n```")
	assert.Less(t, strings.Index(md, "sqlite.py"), strings.Index(md, "main.go"))
}

func TestFormatMarkdown_NestedFences(t *testing.T) {
	code := "# Usage\n\n```go\nx := 1\n```\n"
	md := FormatMarkdown("usage", []index.SearchResult{
		{Score: 0.7, FilePath: "/README.md", StartLine: 1, EndLine: 5, Code: code},
	})
	assert.Contains(t, md, "````markdown\n# Usage\n\n```go\nx := 1\n```\n````")
	assert.Equal(t, "```", codeFence("no ticks"))
	assert.Equal(t, "`````", codeFence("a ```` b"))
}

func TestFormatMarkdown_NoResults(t *testing.T) {
	assert.Equal(t, `No results found for query: "nothing"`, FormatMarkdown("nothing", nil))
}

func TestFenceLanguage(t *testing.T) {
	assert.Equal(t, "rust", fenceLanguage("lib.rs"))
	assert.Equal(t, "go", fenceLanguage("a/b.GO"))
	assert.Equal(t, "", fenceLanguage("Makefile"))
}

func TestRenderMarkdown_FallsBackWithoutRenderer(t *testing.T) {
	assert.Equal(t, "# hi", RenderMarkdown(nil, "# hi"))

	r, err := NewRenderer(80)
	require.NoError(t, err)
	out := RenderMarkdown(r, "# heading\n\nbody")
	assert.Contains(t, out, "heading")
	assert.Contains(t, out, "body")
}

func TestSearchModel_Commands(t *testing.T) {
	m := newSearchModel(nil, 5)
	m.initViewport(80, 24)

	assert.Nil(t, m.command("/limit 9"))
	assert.Equal(t, 9, m.limit)

	m.command("/limit zero")
	assert.Equal(t, 9, m.limit)
	assert.Equal(t, "error", m.entries[len(m.entries)-1].kind)

	m.command("/clear")
	assert.Empty(t, m.entries)

	assert.NotNil(t, m.command("/exit"))
}
