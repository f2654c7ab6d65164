// Package render turns finished generations into downloadable documents.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"ai-doc-generator/internal/domain/model"
	"ai-doc-generator/internal/domain/ports/adapter"
)

var _ adapter.DocumentRenderer = (*HTMLRenderer)(nil)

// PublicPrefix is the URL prefix the HTTP layer serves OutputDir under.
const PublicPrefix = "/docs/"

var page = template.Must(template.New("doc").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Documentation {{.ID}}</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;color:#222}
table{border-collapse:collapse;width:100%;margin-bottom:2rem}
th,td{border:1px solid #ddd;padding:.4rem .6rem;text-align:left;vertical-align:top}
th{background:#f4f4f4}
td.failed{color:#b00}
.warn{background:#fff4e5;border-left:4px solid #f90;padding:.5rem 1rem}
</style>
</head>
<body>
<h1>Generated documentation</h1>
<p>Generation {{.ID}} &middot; {{.Generated.Format "2006-01-02 15:04:05 MST"}}</p>
{{range .Warnings}}<p class="warn">{{.}}</p>
{{end}}{{if not .Files}}<p>No documentable code was found.</p>
{{end}}{{range .Files}}<h2>{{.Name}}</h2>
<table>
<tr><th>Line</th><th>Type</th><th>Name</th><th>Description</th></tr>
{{range .Items}}<tr><td>{{.Line}}</td><td>{{.Kind}}</td><td>{{.Name}}</td><td{{if .Failed}} class="failed"{{end}}>{{.Text}}</td></tr>
{{end}}</table>
{{end}}</body>
</html>
`))

type fileSection struct {
	Name  string
	Items []model.Description
}

type pageData struct {
	ID        string
	Generated time.Time
	Warnings  []string
	Files     []fileSection
}

// HTMLRenderer writes documentation_<id>.html into a directory served over HTTP.
type HTMLRenderer struct {
	dir string
	log *zerolog.Logger
}

func NewHTMLRenderer(dir string, logger *zerolog.Logger) (*HTMLRenderer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	l := logger.With().Str("component", "HTMLRenderer").Logger()
	return &HTMLRenderer{dir: dir, log: &l}, nil
}

// DocumentName is the file name of a generation's rendered document.
func DocumentName(jobID string) string {
	return "documentation_" + jobID + ".html"
}

// Dir is the directory documents are written to.
func (r *HTMLRenderer) Dir() string { return r.dir }

func (r *HTMLRenderer) Render(ctx context.Context, jobID string, descriptions []model.Description, warnings []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	data := pageData{
		ID:        jobID,
		Generated: time.Now(),
		Warnings:  warnings,
		Files:     groupByFile(descriptions),
	}
	if err := page.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	name := DocumentName(jobID)
	tmp, err := os.CreateTemp(r.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(r.dir, name)); err != nil {
		return "", fmt.Errorf("publish document: %w", err)
	}

	r.log.Debug().Str("generation_id", jobID).Int("descriptions", len(descriptions)).Msg("document rendered")
	return PublicPrefix + name, nil
}

// Remove deletes a generation's document; a missing file is not an error.
func (r *HTMLRenderer) Remove(jobID string) error {
	err := os.Remove(filepath.Join(r.dir, DocumentName(jobID)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// groupByFile keeps first-seen file order and description order within a file.
func groupByFile(descs []model.Description) []fileSection {
	var out []fileSection
	idx := map[string]int{}
	for _, d := range descs {
		i, ok := idx[d.File]
		if !ok {
			i = len(out)
			idx[d.File] = i
			out = append(out, fileSection{Name: d.File})
		}
		out[i].Items = append(out[i].Items, d)
	}
	return out
}
