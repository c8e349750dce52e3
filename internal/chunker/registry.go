package chunker

import (
	"sort"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Registry maps structural language names to tree-sitter grammars.
type Registry struct {
	mu    sync.RWMutex
	langs map[string]*sitter.Language
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		langs: make(map[string]*sitter.Language),
	}
}

// Register adds a grammar under the given language name.
func (r *Registry) Register(name string, lang *sitter.Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs[name] = lang
}

// Grammar returns the grammar for a language name, or nil.
func (r *Registry) Grammar(name string) *sitter.Language {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.langs[name]
}

// Languages returns the registered language names in sorted order.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.langs))
	for name := range r.langs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
