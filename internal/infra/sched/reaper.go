package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ai-doc-generator/internal/domain/ports/repository"
	"ai-doc-generator/internal/infra/metrics"
)

// DocumentRemover deletes the rendered artifact of a generation.
type DocumentRemover interface {
	Remove(jobID string) error
}

// Reaper evicts finished and abandoned jobs once they are older than the retention window.
type Reaper struct {
	schedule  cron.Schedule
	retention time.Duration
	store     repository.GenerationJobStore
	docs      DocumentRemover
	log       *zerolog.Logger
	now       func() time.Time
}

// NewReaper accepts standard cron expressions and descriptors such as "@every 1m".
// docs may be nil, in which case rendered documents are left on disk.
func NewReaper(expr string, retention time.Duration, store repository.GenerationJobStore, docs DocumentRemover, logger *zerolog.Logger) (*Reaper, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse reap schedule %q: %w", expr, err)
	}
	l := logger.With().Str("component", "Reaper").Logger()
	return &Reaper{
		schedule:  schedule,
		retention: retention,
		store:     store,
		docs:      docs,
		log:       &l,
		now:       time.Now,
	}, nil
}

func (r *Reaper) Run(ctx context.Context) error {
	r.log.Info().Dur("retention", r.retention).Msg("Starting reaper")
	for {
		now := r.now()
		timer := time.NewTimer(r.schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			r.log.Info().Msg("Stopping reaper")
			return ctx.Err()
		case <-timer.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.log.Error().Err(err).Msg("reap failed")
			}
		}
	}
}

// Sweep runs one eviction pass and returns the number of jobs removed.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	reaped, err := r.store.Reap(ctx, r.now().Add(-r.retention))
	metrics.AddReaped(len(reaped))
	metrics.SetStoredJobs(r.store.Len())
	if r.docs != nil {
		for _, id := range reaped {
			if rmErr := r.docs.Remove(id); rmErr != nil {
				r.log.Warn().Err(rmErr).Str("generation_id", id).Msg("remove document")
			}
		}
	}
	if len(reaped) > 0 {
		r.log.Info().Int("count", len(reaped)).Msg("reaped generation jobs")
	}
	return len(reaped), err
}
