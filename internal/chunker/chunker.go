package chunker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"
)

// ErrInvalidWindow is returned when the sliding window would not advance.
var ErrInvalidWindow = errors.New("invalid sliding window: overlap must be smaller than window size")

var (
	errNoGrammar   = errors.New("no grammar registered")
	errSyntaxError = errors.New("source contains syntax errors")
)

// Chunk is a contiguous span of a file selected as one retrievable unit.
// Lines are 1-indexed and inclusive.
type Chunk struct {
	Text      string
	FilePath  string
	StartLine int
	EndLine   int
}

// Options configures a Chunker.
type Options struct {
	WindowSize int
	Overlap    int
	// Languages maps file extensions (without dot) to registered language names.
	Languages map[string]string
	// Boundaries lists the syntax node types emitted as whole chunks.
	Boundaries []string
	Logger     *zap.Logger
}

// Chunker splits files into chunks, preferring tree-sitter structure and
// falling back to overlapping line windows.
type Chunker struct {
	registry   *Registry
	languages  map[string]string
	boundaries map[string]struct{}
	window     int
	overlap    int
	logger     *zap.Logger
}

// New creates a chunker backed by the given registry. It rejects window
// settings that would never advance.
func New(r *Registry, opts Options) (*Chunker, error) {
	if opts.WindowSize <= 0 || opts.Overlap < 0 || opts.Overlap >= opts.WindowSize {
		return nil, fmt.Errorf("%w (window=%d, overlap=%d)", ErrInvalidWindow, opts.WindowSize, opts.Overlap)
	}
	langs := make(map[string]string, len(opts.Languages))
	for ext, lang := range opts.Languages {
		langs[strings.ToLower(strings.TrimPrefix(ext, "."))] = lang
	}
	bounds := make(map[string]struct{}, len(opts.Boundaries))
	for _, b := range opts.Boundaries {
		bounds[b] = struct{}{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chunker{
		registry:   r,
		languages:  langs,
		boundaries: bounds,
		window:     opts.WindowSize,
		overlap:    opts.Overlap,
		logger:     logger,
	}, nil
}

// Language returns the structural language configured for path, or "".
func (c *Chunker) Language(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return ""
	}
	return c.languages[ext]
}

// ChunkFile returns the chunks for one file. Every call recomputes from
// scratch; the result is deterministic for identical input.
func (c *Chunker) ChunkFile(path string, content []byte) []Chunk {
	if lang := c.Language(path); lang != "" {
		chunks, err := c.structural(lang, path, content)
		if err != nil {
			c.logger.Debug("structural extraction abandoned",
				zap.String("path", path), zap.String("language", lang), zap.Error(err))
		} else if len(chunks) > 0 {
			return chunks
		}
	}
	return c.Windows(path, string(content))
}

func (c *Chunker) structural(lang, path string, src []byte) ([]Chunk, error) {
	grammar := c.registry.Grammar(lang)
	if grammar == nil {
		return nil, fmt.Errorf("%w for %q", errNoGrammar, lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parse %s: empty tree", path)
	}
	if root.HasError() {
		return nil, errSyntaxError
	}

	v := visitor{
		boundaries: c.boundaries,
		src:        src,
		path:       path,
		totalLines: len(splitLines(string(src))),
	}
	v.visit(root)
	return v.chunks, nil
}

// visitor walks a syntax tree and emits a chunk for every outermost boundary node.
type visitor struct {
	boundaries map[string]struct{}
	src        []byte
	path       string
	totalLines int
	chunks     []Chunk
}

func (v *visitor) visit(n *sitter.Node) {
	if n == nil {
		return
	}
	if _, ok := v.boundaries[n.Type()]; ok {
		v.emit(n)
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		v.visit(n.NamedChild(i))
	}
}

func (v *visitor) emit(n *sitter.Node) {
	text := n.Content(v.src)
	if strings.TrimSpace(text) == "" {
		return
	}
	start := int(n.StartPoint().Row) + 1
	end := int(n.EndPoint().Row) + 1
	// A node that ends at column 0 stops on the previous line.
	if n.EndPoint().Column == 0 && end > start {
		end--
	}
	if end > v.totalLines {
		end = v.totalLines
	}
	if start > end {
		start = end
	}
	v.chunks = append(v.chunks, Chunk{
		Text:      text,
		FilePath:  v.path,
		StartLine: start,
		EndLine:   end,
	})
}

// Windows slices content into windows of WindowSize lines advancing by
// WindowSize-Overlap. The final window may be shorter; blank windows are dropped.
func (c *Chunker) Windows(path, content string) []Chunk {
	lines := splitLines(content)
	advance := c.window - c.overlap

	var chunks []Chunk
	for start := 0; start < len(lines); start += advance {
		end := start + c.window
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Text:      text,
			FilePath:  path,
			StartLine: start + 1,
			EndLine:   end,
		})
	}
	return chunks
}

// splitLines splits on newlines; a trailing newline does not start a new line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// CountLines returns the number of lines in content using the same rules as
// the chunker.
func CountLines(content string) int {
	return len(splitLines(content))
}
