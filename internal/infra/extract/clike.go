package extract

import (
	"regexp"

	"ai-doc-generator/internal/domain/model"
)

type rule struct {
	kind model.SnippetKind
	re   *regexp.Regexp
	// name is the capture group holding the symbol name, 0 for none.
	name int
}

var controlRules = []rule{
	{kind: model.SnippetIf, re: regexp.MustCompile(`\bif\s*\(`)},
	{kind: model.SnippetFor, re: regexp.MustCompile(`\bfor\s*\(`)},
	{kind: model.SnippetWhile, re: regexp.MustCompile(`\bwhile\s*\(`)},
	{kind: model.SnippetSwitch, re: regexp.MustCompile(`\bswitch\s*\(`)},
	{kind: model.SnippetTry, re: regexp.MustCompile(`\btry\s*\{`)},
}

var (
	jsRules = []rule{
		{kind: model.SnippetClass, re: regexp.MustCompile(`\bclass\s+(\w+)[^{;]*\{`), name: 1},
		{kind: model.SnippetFunction, re: regexp.MustCompile(`\bfunction\s*\*?\s*(\w+)\s*\(`), name: 1},
		{kind: model.SnippetFunction, re: regexp.MustCompile(`\b(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?(?:\([^)]*\)|\w+)\s*=>`), name: 1},
		{kind: model.SnippetMethod, re: regexp.MustCompile(`(?m)^[ \t]*(?:(?:static|async|get|set)\s+)*(\w+)\s*\([^)]*\)\s*\{`), name: 1},
	}
	javaRules = []rule{
		{kind: model.SnippetClass, re: regexp.MustCompile(`\b(?:class|interface|enum)\s+(\w+)[^{;]*\{`), name: 1},
		{kind: model.SnippetMethod, re: regexp.MustCompile(`(?m)^[ \t]*(?:(?:public|private|protected|static|final|abstract|synchronized|native)\s+)*[\w<>\[\],.?]+(?:\s*\[\])*\s+(\w+)\s*\([^)]*\)\s*(?:throws\s+[\w.,\s]+)?\{`), name: 1},
	}
	cppRules = []rule{
		{kind: model.SnippetClass, re: regexp.MustCompile(`\b(?:class|struct)\s+(\w+)[^{;()]*\{`), name: 1},
		{kind: model.SnippetFunction, re: regexp.MustCompile(`(?m)^[ \t]*(?:(?:static|inline|virtual|const|constexpr|unsigned|signed)\s+)*[\w:<>,]+[\s*&]+(?:\w+::)*~?(\w+)\s*\([^;{)]*\)\s*(?:const\s*)?(?:override\s*)?\{`), name: 1},
	}
)

// keywords are never symbol names, even when a header regex matches them.
var keywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "new": true, "else": true, "do": true, "try": true,
	"function": true, "sizeof": true, "throw": true, "synchronized": true,
}

// clike handles brace-delimited languages.
type clike struct {
	rules []rule
}

func newCLike(symbols []rule) clike {
	rules := make([]rule, 0, len(symbols)+len(controlRules))
	rules = append(rules, symbols...)
	rules = append(rules, controlRules...)
	return clike{rules: rules}
}

func (c clike) extract(src string) ([]model.Snippet, error) {
	clean := blankComments(src)

	type span struct{ start, end int }
	var classes []span
	var out []model.Snippet
	seen := map[int]bool{}

	for _, r := range c.rules {
		for _, m := range r.re.FindAllStringSubmatchIndex(clean, -1) {
			start := m[0]
			// the header regexes may swallow leading indentation
			for start < len(clean) && (clean[start] == ' ' || clean[start] == '\t') {
				start++
			}
			name := ""
			if r.name > 0 && m[2*r.name] >= 0 {
				name = clean[m[2*r.name]:m[2*r.name+1]]
				if keywords[name] {
					continue
				}
			}
			if seen[start] {
				continue
			}
			seen[start] = true

			end := statementEnd(clean, m[1]-1)
			kind := r.kind
			switch kind {
			case model.SnippetClass:
				classes = append(classes, span{start, end})
			case model.SnippetMethod, model.SnippetFunction:
				kind = model.SnippetFunction
				for _, cl := range classes {
					if start > cl.start && start < cl.end {
						kind = model.SnippetMethod
						break
					}
				}
			}
			out = append(out, model.Snippet{
				Kind: kind,
				Name: name,
				Line: lineAt(src, start),
				Code: src[start:end],
			})
		}
	}
	return out, nil
}

// statementEnd returns the end offset of the statement whose header ends at or after from:
// the matching '}' of its first top-level block, or the first top-level ';'.
func statementEnd(s string, from int) int {
	depth := 0
	for i := from; i < len(s); i++ {
		switch s[i] {
		case '"', '\'', '`':
			i = skipQuoted(s, i)
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				return i + 1
			}
		case '{':
			if depth == 0 {
				return matchBrace(s, i)
			}
		}
	}
	return len(s)
}

// matchBrace returns the offset just past the '}' closing the '{' at open.
func matchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '"', '\'', '`':
			i = skipQuoted(s, i)
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(s)
}

// skipQuoted returns the offset of the closing quote of the literal opened at i.
func skipQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j
		case '\n':
			if q != '`' {
				return j
			}
		}
	}
	return len(s) - 1
}

// blankComments replaces // and /* */ comments with spaces, keeping newlines so
// offsets and line numbers still match the original source.
func blankComments(src string) string {
	b := []byte(src)
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == '"' || b[i] == '\'' || b[i] == '`':
			i = skipQuoted(src, i)
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '/':
			for ; i < len(b) && b[i] != '\n'; i++ {
				b[i] = ' '
			}
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			b[i], b[i+1] = ' ', ' '
			i += 2
			for ; i < len(b); i++ {
				if b[i] == '*' && i+1 < len(b) && b[i+1] == '/' {
					b[i], b[i+1] = ' ', ' '
					i++
					break
				}
				if b[i] != '\n' {
					b[i] = ' '
				}
			}
		}
	}
	return string(b)
}
