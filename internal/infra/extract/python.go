package extract

import (
	"regexp"
	"strings"

	"ai-doc-generator/internal/domain/model"
)

var pyHeader = regexp.MustCompile(`^([ \t]*)(?:(class|def|async\s+def)\s+(\w+)|(if|for|while|try)\b)`)

// pythonLang delimits blocks by indentation.
type pythonLang struct{}

func (pythonLang) extract(src string) ([]model.Snippet, error) {
	lines := strings.Split(src, "\n")
	type classSpan struct{ from, to int }
	var classes []classSpan
	var out []model.Snippet

	inString := false
	for i, line := range lines {
		// skip bodies of triple-quoted strings
		if n := strings.Count(line, `"""`) + strings.Count(line, `'''`); n%2 == 1 {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		m := pyHeader.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent := width(m[1])
		end := blockEnd(lines, i, indent)
		code := strings.Join(lines[i:end], "\n")

		var kind model.SnippetKind
		name := m[3]
		switch {
		case m[2] == "class":
			kind = model.SnippetClass
			classes = append(classes, classSpan{i, end})
		case m[2] != "":
			kind = model.SnippetFunction
			for _, c := range classes {
				if i > c.from && i < c.to {
					kind = model.SnippetMethod
					break
				}
			}
		case m[4] == "if":
			kind = model.SnippetIf
		case m[4] == "for":
			kind = model.SnippetFor
		case m[4] == "while":
			kind = model.SnippetWhile
		case m[4] == "try":
			kind = model.SnippetTry
		}
		out = append(out, model.Snippet{Kind: kind, Name: name, Line: i + 1, Code: code})
	}
	return out, nil
}

// blockEnd returns the index of the first line after the block opened at lines[start].
// Continuation lines of a multi-line header stay inside the block.
func blockEnd(lines []string, start, indent int) int {
	open := strings.Count(lines[start], "(") - strings.Count(lines[start], ")")
	end := start + 1
	for ; end < len(lines); end++ {
		l := lines[end]
		if open > 0 {
			open += strings.Count(l, "(") - strings.Count(l, ")")
			continue
		}
		if strings.TrimSpace(l) == "" {
			continue
		}
		if width(leading(l)) <= indent {
			break
		}
	}
	// drop trailing blank lines
	for end > start+1 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return end
}

func leading(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}

// width counts a tab as four columns.
func width(ws string) int {
	n := 0
	for _, r := range ws {
		if r == '\t' {
			n += 4
		} else {
			n++
		}
	}
	return n
}
