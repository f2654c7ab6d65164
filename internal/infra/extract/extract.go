// Package extract finds documentable snippets in uploaded source files.
package extract

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"ai-doc-generator/internal/domain"
	"ai-doc-generator/internal/domain/model"
	"ai-doc-generator/internal/domain/ports/adapter"
)

var _ adapter.SnippetExtractor = (*Registry)(nil)

// maxSnippetBytes caps the code sent to the AI provider for a single snippet.
const maxSnippetBytes = 2000

// language extracts every snippet of one file; results may be unordered.
type language interface {
	extract(src string) ([]model.Snippet, error)
}

// Registry dispatches files to a language extractor by extension.
type Registry struct {
	byExt map[string]language
}

// NewRegistry knows Python, JavaScript, Java, C++, HTML and CSS.
func NewRegistry() *Registry {
	html := htmlLang{}
	return &Registry{byExt: map[string]language{
		".py":   pythonLang{},
		".js":   newCLike(jsRules),
		".java": newCLike(javaRules),
		".cpp":  newCLike(cppRules),
		".html": html,
		".htm":  html,
		".css":  cssLang{},
	}}
}

// Extensions lists the supported extensions in sorted order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Snippets(file model.SourceFile) iter.Seq2[model.Snippet, error] {
	return func(yield func(model.Snippet, error) bool) {
		lang, ok := r.byExt[file.Ext()]
		if !ok {
			yield(model.Snippet{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFile, file.Name))
			return
		}
		snippets, err := lang.extract(file.Content)
		if err != nil {
			yield(model.Snippet{}, fmt.Errorf("extract %s: %w", file.Name, err))
			return
		}
		sort.SliceStable(snippets, func(i, j int) bool { return snippets[i].Line < snippets[j].Line })
		for _, s := range snippets {
			s.File = file.Name
			s.Code = truncate(s.Code)
			if !yield(s, nil) {
				return
			}
		}
	}
}

func truncate(code string) string {
	code = strings.TrimSpace(code)
	if len(code) <= maxSnippetBytes {
		return code
	}
	cut := maxSnippetBytes
	// keep the cut on a rune boundary
	for cut > 0 && code[cut]&0xC0 == 0x80 {
		cut--
	}
	return code[:cut] + "\n..."
}

// lineAt returns the 1-based line of byte offset off.
func lineAt(src string, off int) int {
	if off > len(src) {
		off = len(src)
	}
	return strings.Count(src[:off], "\n") + 1
}
