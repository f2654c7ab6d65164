package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-doc-generator/internal/domain"
	"ai-doc-generator/internal/domain/model"
	"ai-doc-generator/internal/domain/ports/repository"
)

var _ repository.GenerationJobStore = (*JobStore)(nil)

const maxCreateAttempts = 8

// record pairs a job with the lock that serializes its mutations.
type record struct {
	mu  sync.Mutex
	job *model.GenerationJob
}

// JobStore keeps generation jobs in process memory.
// The table lock only guards membership; each record carries its own mutex.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*record
	newID func() string
}

func NewJobStore() *JobStore {
	return &JobStore{
		jobs:  make(map[string]*record),
		newID: uuid.NewString,
	}
}

func (s *JobStore) Create(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < maxCreateAttempts; i++ {
		id := s.newID()
		if _, exists := s.jobs[id]; exists || id == "" {
			continue
		}
		s.jobs[id] = &record{job: model.NewGenerationJob(id)}
		return id, nil
	}
	return "", fmt.Errorf("%w: could not allocate a unique generation id", domain.ErrFatal)
}

func (s *JobStore) Get(ctx context.Context, id string) (*model.GenerationJob, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.job.Clone(), nil
}

// Update runs mutate against a private copy and commits it only when mutate succeeds.
func (s *JobStore) Update(ctx context.Context, id string, mutate repository.Mutation) (*model.GenerationJob, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()

	work := rec.job.Clone()
	if err := mutate(work); err != nil {
		return nil, err
	}
	if work.ID != rec.job.ID {
		return nil, fmt.Errorf("%w: mutation changed job id", domain.ErrFatal)
	}
	rec.job = work
	return work.Clone(), nil
}

func (s *JobStore) RequestCancel(ctx context.Context, id string) (*model.GenerationJob, error) {
	return s.Update(ctx, id, func(job *model.GenerationJob) error {
		job.RequestCancel()
		return nil
	})
}

func (s *JobStore) Reap(ctx context.Context, olderThan time.Time) ([]string, error) {
	s.mu.RLock()
	candidates := make([]string, 0)
	for id, rec := range s.jobs {
		if reapable(rec, olderThan) {
			candidates = append(candidates, id)
		}
	}
	s.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		rec, ok := s.jobs[id]
		// re-check: the job may have been started since the scan
		if !ok || !reapable(rec, olderThan) {
			continue
		}
		delete(s.jobs, id)
		removed = append(removed, id)
	}
	return removed, nil
}

func (s *JobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *JobStore) lookup(id string) (*record, error) {
	s.mu.RLock()
	rec, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func reapable(rec *record, olderThan time.Time) bool {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	st := rec.job.Status
	switch {
	case st.IsTerminal():
	case st == model.JobStatusQueued && rec.job.StartedAt == nil:
	default:
		return false
	}
	return rec.job.UpdatedAt.Before(olderThan)
}
