package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"codeseek/internal/index"

	"github.com/charmbracelet/glamour"
)

// fenceLanguages maps extensions to markdown fence tags where they differ.
var fenceLanguages = map[string]string{
	"py":  "python",
	"js":  "javascript",
	"ts":  "typescript",
	"rs":  "rust",
	"yml": "yaml",
	"md":  "markdown",
}

func fenceLanguage(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if lang, ok := fenceLanguages[ext]; ok {
		return lang
	}
	return ext
}

// codeFence returns a backtick fence longer than any backtick run in code.
func codeFence(code string) string {
	longest, run := 0, 0
	for _, c := range code {
		if c == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

// FormatMarkdown renders results as a markdown document, one section per hit.
func FormatMarkdown(query string, results []index.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results found for query: %q", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search results for %q (%d chunks)\n\n", query, len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "### %d. `%s:%d-%d`\n\n", i+1, r.FilePath, r.StartLine, r.EndLine)
		fmt.Fprintf(&sb, "**Score:** %.4f\n\n", r.Score)
		fence := codeFence(r.Code)
		fmt.Fprintf(&sb, "%s%s\n%s\n%s\n\n", fence, fenceLanguage(r.FilePath), strings.TrimRight(r.Code, "\n"), fence)
	}
	return sb.String()
}

// FormatPlain renders results for terminals where markdown rendering is off.
func FormatPlain(results []index.SearchResult) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%s %s\n",
			scoreStyle.Render(fmt.Sprintf("%d. [%.4f]", i+1, r.Score)),
			pathStyle.Render(fmt.Sprintf("%s:%d-%d", r.FilePath, r.StartLine, r.EndLine)))
		sb.WriteString(resultStyle.Render(strings.TrimRight(r.Code, "\n")))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// NewRenderer returns a glamour renderer wrapping at width.
func NewRenderer(width int) (*glamour.TermRenderer, error) {
	if width <= 0 {
		width = 100
	}
	return glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
}

// RenderMarkdown renders md with r, returning md unchanged if r is nil or fails.
func RenderMarkdown(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
