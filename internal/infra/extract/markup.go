package extract

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"ai-doc-generator/internal/domain/model"
)

// documentedTags are the elements worth a description.
var documentedTags = map[string]bool{
	"div": true, "p": true, "a": true, "ul": true, "li": true, "img": true,
	"section": true, "script": true, "link": true, "form": true, "nav": true,
	"header": true, "footer": true, "table": true,
}

type htmlLang struct{}

func (htmlLang) extract(src string) ([]model.Snippet, error) {
	z := html.NewTokenizer(strings.NewReader(src))
	var out []model.Snippet
	off := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return out, nil
		}
		raw := string(z.Raw())
		start := off
		off += len(raw)
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		if !documentedTags[tok.Data] {
			continue
		}
		out = append(out, model.Snippet{
			Kind: model.SnippetTag,
			Name: tagLabel(tok),
			Line: lineAt(src, start),
			Code: raw,
		})
	}
}

// tagLabel renders a tag as name#id.class for headings.
func tagLabel(t html.Token) string {
	var b strings.Builder
	b.WriteString(t.Data)
	for _, a := range t.Attr {
		switch a.Key {
		case "id":
			b.WriteString("#" + a.Val)
		case "class":
			for _, c := range strings.Fields(a.Val) {
				b.WriteString("." + c)
			}
		}
	}
	return b.String()
}

var (
	cssMedia   = regexp.MustCompile(`@media\s*([^{]+)\{`)
	cssRule    = regexp.MustCompile(`([^{}@;]+)\{([^{}]*)\}`)
	cssComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

type cssLang struct{}

func (cssLang) extract(src string) ([]model.Snippet, error) {
	// blank comments in place so offsets still map to lines
	clean := cssComment.ReplaceAllStringFunc(src, func(c string) string {
		return strings.Map(func(r rune) rune {
			if r == '\n' {
				return r
			}
			return ' '
		}, c)
	})

	var out []model.Snippet
	masked := []byte(clean)
	for _, m := range cssMedia.FindAllStringSubmatchIndex(clean, -1) {
		end := matchBrace(clean, m[1]-1)
		out = append(out, model.Snippet{
			Kind: model.SnippetMedia,
			Name: "@media " + strings.TrimSpace(clean[m[2]:m[3]]),
			Line: lineAt(src, m[0]),
			Code: clean[m[0]:end],
		})
		// rules inside a media query belong to it
		for i := m[0]; i < end; i++ {
			if masked[i] != '\n' {
				masked[i] = ' '
			}
		}
	}

	rest := string(masked)
	for _, m := range cssRule.FindAllStringSubmatchIndex(rest, -1) {
		selStart := m[2]
		for selStart < m[3] && strings.ContainsRune(" \t\r\n", rune(rest[selStart])) {
			selStart++
		}
		selector := strings.TrimSpace(rest[m[2]:m[3]])
		if selector == "" {
			continue
		}
		body := strings.TrimSpace(rest[m[4]:m[5]])
		out = append(out, model.Snippet{
			Kind: model.SnippetRule,
			Name: selector,
			Line: lineAt(src, selStart),
			Code: selector + " { " + body + " }",
		})
	}
	return out, nil
}
