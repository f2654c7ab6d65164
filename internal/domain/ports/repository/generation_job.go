package repository

import (
	"context"
	"time"

	"ai-doc-generator/internal/domain/model"
)

// Mutation changes one job in place. Returning an error discards every change it made.
type Mutation func(job *model.GenerationJob) error

// GenerationJobStore is the process-wide table of generation jobs.
// Mutations on one job are serialized; unrelated jobs never contend.
type GenerationJobStore interface {
	Create(ctx context.Context) (string, error)
	Get(ctx context.Context, id string) (*model.GenerationJob, error)
	Update(ctx context.Context, id string, mutate Mutation) (*model.GenerationJob, error)
	RequestCancel(ctx context.Context, id string) (*model.GenerationJob, error)
	// Reap removes terminal jobs (and never-started queued ones) last updated before olderThan
	// and returns their ids.
	Reap(ctx context.Context, olderThan time.Time) ([]string, error)
	Len() int
}
