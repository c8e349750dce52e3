package languages

import (
	"codeseek/internal/chunker"

	"github.com/smacker/go-tree-sitter/typescript/tsx"
)

func RegisterTSX(r *chunker.Registry) {
	r.Register("tsx", tsx.GetLanguage())
}
