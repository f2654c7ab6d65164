package adapter

import (
	"context"
	"io"

	"ai-doc-generator/internal/domain/model"
)

// DocumentRenderer writes the final documentation for a finished generation and
// returns the public path clients use to fetch it.
type DocumentRenderer interface {
	Render(ctx context.Context, jobID string, descriptions []model.Description, warnings []string) (string, error)
}

// ResultExporter streams a finished result in a downloadable format.
type ResultExporter interface {
	ContentType() string
	Export(w io.Writer, job *model.GenerationJob) error
}
