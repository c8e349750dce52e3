package languages

import (
	"codeseek/internal/chunker"

	"github.com/smacker/go-tree-sitter/golang"
)

func RegisterGo(r *chunker.Registry) {
	r.Register("go", golang.GetLanguage())
}
