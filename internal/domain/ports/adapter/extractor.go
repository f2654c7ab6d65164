package adapter

import (
	"iter"

	"ai-doc-generator/internal/domain/model"
)

// SnippetExtractor lazily yields the documentable units of a file in source order.
// It is pure: the same file always yields the same sequence.
type SnippetExtractor interface {
	Snippets(file model.SourceFile) iter.Seq2[model.Snippet, error]
}
