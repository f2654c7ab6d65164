package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"ai-doc-generator/internal/domain"
	"ai-doc-generator/internal/domain/model"
	"ai-doc-generator/internal/domain/ports/adapter"
	"ai-doc-generator/internal/domain/ports/repository"
	"ai-doc-generator/internal/infra/logging"
	"ai-doc-generator/internal/infra/metrics"
)

const cancelledWarning = "cancelled before dispatch"

// ControllerConfig tunes batch sizing and pacing.
type ControllerConfig struct {
	Limits BatchLimits
	// Cooldown spaces consecutive AI calls of one generation.
	Cooldown time.Duration
}

// GenerationController drives one generation from queued to a terminal state.
// Batches of one job run strictly in order; cancellation is observed only
// between batches, never by aborting an in-flight AI call.
type GenerationController struct {
	store      repository.GenerationJobStore
	extractor  adapter.SnippetExtractor
	describer  adapter.SnippetDescriber
	renderer   adapter.DocumentRenderer
	cfg        ControllerConfig
	newBatchID func() string
	sleep      func(ctx context.Context, d time.Duration) error
	log        *zerolog.Logger
}

func NewGenerationController(
	store repository.GenerationJobStore,
	extractor adapter.SnippetExtractor,
	describer adapter.SnippetDescriber,
	renderer adapter.DocumentRenderer,
	cfg ControllerConfig,
	logger *zerolog.Logger,
) *GenerationController {
	l := logger.With().Str("component", "GenerationController").Logger()
	return &GenerationController{
		store:      store,
		extractor:  extractor,
		describer:  describer,
		renderer:   renderer,
		cfg:        cfg,
		newBatchID: func() string { return ulid.Make().String() },
		sleep:      sleepCtx,
		log:        &l,
	}
}

// Run processes a claimed job. It returns nil whenever the job reached a terminal
// state, including failed; errors mean the job could not be finalized.
func (c *GenerationController) Run(ctx context.Context, id string, files []model.SourceFile, batchSize int) (err error) {
	ctx = logging.WithGenerationID(ctx, id)
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "GenerationController.Run")()

	metrics.JobStarted()
	defer metrics.JobFinished()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("generation panicked")
			err = c.fail(ctx, id, "internal error")
		}
	}()

	snap, err := c.store.Update(ctx, id, func(job *model.GenerationJob) error {
		if err := job.Transition(model.JobStatusGenerating); err != nil {
			return err
		}
		if job.CancelRequested {
			return job.Transition(model.JobStatusCancelled)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("start generation %s: %w", id, err)
	}
	if snap.Status == model.JobStatusCancelled {
		c.finished(log, snap)
		return nil
	}
	log.Info().Int("files", len(files)).Msg("generation started")

	snippets, warnings, err := c.extract(files)
	if err != nil {
		log.Warn().Err(err).Msg("extraction failed")
		return c.fail(ctx, id, err.Error())
	}

	size := c.cfg.Limits.Clamp(batchSize)
	groups := Partition(snippets, size)
	if _, err := c.store.Update(ctx, id, func(job *model.GenerationJob) error {
		job.Batches = make([]model.Batch, len(groups))
		for i, g := range groups {
			job.Batches[i] = model.Batch{ID: c.newBatchID(), Index: i, Snippets: g, State: model.BatchPending}
		}
		return nil
	}); err != nil {
		return c.fail(ctx, id, err.Error())
	}
	log.Debug().Int("snippets", len(snippets)).Int("batch_size", size).Int("batches", len(groups)).Msg("batches planned")

	for i, g := range groups {
		// checkpoint: the only place a cancel request takes effect
		snap, err := c.store.Update(ctx, id, func(job *model.GenerationJob) error {
			if job.CancelRequested {
				job.SkipRemaining(cancelledWarning)
				return job.Transition(model.JobStatusCancelled)
			}
			now := time.Now()
			job.Batches[i].State = model.BatchInFlight
			job.Batches[i].StartedAt = &now
			return nil
		})
		if err != nil {
			return c.fail(ctx, id, err.Error())
		}
		if snap.Status == model.JobStatusCancelled {
			c.finished(log, snap)
			return nil
		}

		descs, derr := c.describer.DescribeBatch(ctx, g)
		if derr == nil && len(descs) != len(g) {
			derr = fmt.Errorf("%w: got %d descriptions for %d snippets", domain.ErrBatchFailed, len(descs), len(g))
		}

		snap, err = c.store.Update(ctx, id, func(job *model.GenerationJob) error {
			return c.settle(job, i, descs, derr)
		})
		if err != nil {
			return c.fail(ctx, id, err.Error())
		}
		if snap.Status == model.JobStatusCancelled {
			c.finished(log, snap)
			return nil
		}
		log.Debug().Int("batch", i+1).Int("of", len(groups)).Int("percent", snap.Percent).Msg("batch settled")

		if err := ctx.Err(); err != nil {
			// shutting down: the job stays generating until reaped with the process
			return err
		}
		if c.cfg.Cooldown > 0 && i < len(groups)-1 {
			if err := c.sleep(ctx, c.cfg.Cooldown); err != nil {
				return err
			}
		}
	}

	return c.finalize(ctx, log, id, warnings)
}

// extract collects snippets of every file in upload order. Unsupported files
// become warnings; any other extractor error fails the generation.
func (c *GenerationController) extract(files []model.SourceFile) ([]model.Snippet, []string, error) {
	var out []model.Snippet
	var warnings []string
	for _, f := range files {
		for s, err := range c.extractor.Snippets(f) {
			if errors.Is(err, domain.ErrUnsupportedFile) {
				warnings = append(warnings, fmt.Sprintf("skipped %s: unsupported file type", f.Name))
				break
			}
			if err != nil {
				return nil, nil, err
			}
			out = append(out, s)
		}
	}
	return out, warnings, nil
}

func (c *GenerationController) settle(job *model.GenerationJob, i int, descs []string, derr error) error {
	b := &job.Batches[i]
	now := time.Now()
	b.SettledAt = &now

	if job.CancelRequested {
		// the result of a call that raced a cancel is discarded
		b.State = model.BatchSkipped
		b.Warning = "cancelled while in flight"
		job.SkipRemaining(cancelledWarning)
		metrics.IncBatch("cancelled")
		return job.Transition(model.JobStatusCancelled)
	}

	if derr == nil {
		b.State = model.BatchCompleted
		b.Descriptions = descs
		metrics.IncBatch("completed")
	} else {
		b.State = model.BatchSkipped
		b.Descriptions = make([]string, len(b.Snippets))
		for k := range b.Descriptions {
			b.Descriptions[k] = model.FailedDescription
		}
		b.Warning = fmt.Sprintf("batch %d of %d failed: %v", i+1, len(job.Batches), derr)
		metrics.IncBatch("failed")
	}
	return job.SetPercent(job.ComputePercent())
}

func (c *GenerationController) finalize(ctx context.Context, log *zerolog.Logger, id string, warnings []string) error {
	snap, err := c.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("finalize %s: %w", id, err)
	}

	var path string
	var descs []model.Description
	if !snap.CancelRequested {
		descs, warnings = collect(snap, warnings)
		path, err = c.renderer.Render(ctx, id, descs, warnings)
		if err != nil {
			log.Error().Err(err).Msg("render failed")
			return c.fail(ctx, id, "render document: "+err.Error())
		}
	}

	snap, err = c.store.Update(ctx, id, func(job *model.GenerationJob) error {
		if job.CancelRequested {
			return job.Transition(model.JobStatusCancelled)
		}
		if err := job.SetPercent(100); err != nil {
			return err
		}
		if err := job.SetResult(model.Result{
			Descriptions: descs,
			Warnings:     warnings,
			DocumentPath: path,
			CompletedAt:  time.Now(),
		}); err != nil {
			return err
		}
		return job.Transition(model.JobStatusDone)
	})
	if err != nil {
		return c.fail(ctx, id, err.Error())
	}
	c.finished(log, snap)
	return nil
}

// collect concatenates per-batch outputs in batch order.
func collect(job *model.GenerationJob, warnings []string) ([]model.Description, []string) {
	var out []model.Description
	for _, b := range job.Batches {
		failed := b.State == model.BatchSkipped
		if failed && b.Warning != "" {
			warnings = append(warnings, b.Warning)
		}
		for k, s := range b.Snippets {
			text := model.FailedDescription
			if k < len(b.Descriptions) {
				text = b.Descriptions[k]
			}
			out = append(out, model.Description{
				File:   s.File,
				Kind:   s.Kind,
				Name:   s.Name,
				Line:   s.Line,
				Text:   text,
				Failed: failed,
			})
		}
	}
	return out, warnings
}

// fail moves the job to failed; a job that is already terminal keeps its state.
func (c *GenerationController) fail(ctx context.Context, id, reason string) error {
	log := logging.With(ctx, c.log)
	snap, err := c.store.Update(context.WithoutCancel(ctx), id, func(job *model.GenerationJob) error {
		if job.Status.IsTerminal() {
			return nil
		}
		if job.Status == model.JobStatusQueued {
			if err := job.Transition(model.JobStatusGenerating); err != nil {
				return err
			}
		}
		return job.Fail(reason)
	})
	if err != nil {
		log.Error().Err(err).Str("reason", reason).Msg("could not mark generation failed")
		return fmt.Errorf("fail generation %s: %w", id, err)
	}
	c.finished(log, snap)
	return nil
}

func (c *GenerationController) finished(log *zerolog.Logger, job *model.GenerationJob) {
	metrics.IncGenerationJob(string(job.Status))
	ev := log.Info()
	if job.Status == model.JobStatusFailed {
		ev = log.Warn().Str("reason", job.FailureReason)
	}
	ev.Str("status", string(job.Status)).Int("percent", job.Percent).Int("batches", len(job.Batches)).Msg("generation finished")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
