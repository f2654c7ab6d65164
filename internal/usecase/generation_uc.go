package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"ai-doc-generator/internal/domain"
	"ai-doc-generator/internal/domain/model"
	"ai-doc-generator/internal/domain/ports/repository"
	"ai-doc-generator/internal/infra/logging"
	"ai-doc-generator/internal/infra/metrics"
)

// Compile-time check
var _ GenerationUseCase = (*generationUC)(nil)

// GenerationUseCase is the surface polled and driven by clients.
type GenerationUseCase interface {
	CreateID(ctx context.Context) (string, error)
	// StartGeneration hands a queued job to the background runner and returns at once.
	StartGeneration(ctx context.Context, id string, files []model.SourceFile, batchSize int) error
	GetProgress(ctx context.Context, id string) (string, error)
	// Cancel is idempotent and acknowledged for any issued id, even a finished one.
	Cancel(ctx context.Context, id string) error
	GetJob(ctx context.Context, id string) (*model.GenerationJob, error)
}

// TaskRunner runs work outside the request, e.g. a worker pool.
type TaskRunner interface {
	Submit(task func(ctx context.Context) error) error
}

// JobRunner processes one claimed job to completion.
type JobRunner interface {
	Run(ctx context.Context, id string, files []model.SourceFile, batchSize int) error
}

type generationUC struct {
	store  repository.GenerationJobStore
	runner JobRunner
	tasks  TaskRunner
	log    *zerolog.Logger
}

func NewGenerationUseCase(store repository.GenerationJobStore, runner JobRunner, tasks TaskRunner, logger *zerolog.Logger) *generationUC {
	l := logger.With().Str("component", "GenerationUC").Logger()
	return &generationUC{store: store, runner: runner, tasks: tasks, log: &l}
}

func (g *generationUC) CreateID(ctx context.Context) (string, error) {
	id, err := g.store.Create(ctx)
	if err != nil {
		return "", err
	}
	metrics.SetStoredJobs(g.store.Len())
	logging.With(logging.WithGenerationID(ctx, id), g.log).Debug().Msg("generation id issued")
	return id, nil
}

func (g *generationUC) StartGeneration(ctx context.Context, id string, files []model.SourceFile, batchSize int) error {
	if id == "" {
		return fmt.Errorf("%w: missing generation id", domain.ErrInvalidArgument)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no supported files uploaded", domain.ErrInvalidArgument)
	}
	if _, err := g.store.Update(ctx, id, func(job *model.GenerationJob) error {
		return job.Claim()
	}); err != nil {
		return err
	}

	// the request context ends with the response; the job must outlive it
	owned := append([]model.SourceFile(nil), files...)
	err := g.tasks.Submit(func(runCtx context.Context) error {
		return g.runner.Run(runCtx, id, owned, batchSize)
	})
	if err == nil {
		return nil
	}

	if _, rerr := g.store.Update(ctx, id, func(job *model.GenerationJob) error {
		job.Release()
		return nil
	}); rerr != nil {
		logging.With(ctx, g.log).Error().Err(rerr).Str("generation_id", id).Msg("release claim failed")
	}
	if !errors.Is(err, domain.ErrBusy) {
		err = fmt.Errorf("%w: %v", domain.ErrBusy, err)
	}
	return err
}

func (g *generationUC) GetProgress(ctx context.Context, id string) (string, error) {
	job, err := g.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return job.ProgressString(), nil
}

func (g *generationUC) Cancel(ctx context.Context, id string) error {
	job, err := g.store.RequestCancel(ctx, id)
	if err != nil {
		return err
	}
	logging.With(logging.WithGenerationID(ctx, id), g.log).Info().
		Str("status", string(job.Status)).Bool("cancel_requested", job.CancelRequested).
		Msg("cancel acknowledged")
	return nil
}

func (g *generationUC) GetJob(ctx context.Context, id string) (*model.GenerationJob, error) {
	return g.store.Get(ctx, id)
}
