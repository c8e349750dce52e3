package languages

import (
	"codeseek/internal/chunker"

	"github.com/smacker/go-tree-sitter/rust"
)

func RegisterRust(r *chunker.Registry) {
	r.Register("rust", rust.GetLanguage())
}
