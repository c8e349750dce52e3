// Package languages registers the tree-sitter grammars codeseek ships with.
package languages

import "codeseek/internal/chunker"

// RegisterAll registers every bundled grammar.
func RegisterAll(r *chunker.Registry) {
	RegisterGo(r)
	RegisterJavaScript(r)
	RegisterTypeScript(r)
	RegisterTSX(r)
	RegisterPython(r)
	RegisterJava(r)
	RegisterRust(r)
}
