//go:build !integration

package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/rs/zerolog"

	"ai-doc-generator/internal/domain"
	"ai-doc-generator/internal/domain/model"
	"ai-doc-generator/internal/domain/ports/repository"
	"ai-doc-generator/internal/infra/db/memory"
)

var nopLog = zerolog.Nop()

// fakeExtractor yields canned snippets per file name.
type fakeExtractor struct {
	byFile map[string][]model.Snippet
	errs   map[string]error
}

func (f *fakeExtractor) Snippets(file model.SourceFile) iter.Seq2[model.Snippet, error] {
	return func(yield func(model.Snippet, error) bool) {
		if err := f.errs[file.Name]; err != nil {
			yield(model.Snippet{}, err)
			return
		}
		for _, s := range f.byFile[file.Name] {
			if !yield(s, nil) {
				return
			}
		}
	}
}

func makeSnippets(file string, n int) []model.Snippet {
	out := make([]model.Snippet, n)
	for i := range out {
		out[i] = model.Snippet{File: file, Kind: model.SnippetFunction, Name: fmt.Sprintf("f%d", i), Line: i + 1, Code: "def f(): pass"}
	}
	return out
}

// fakeDescriber echoes snippet names unless fn overrides a call.
type fakeDescriber struct {
	mu    sync.Mutex
	sizes []int
	fn    func(call int, snippets []model.Snippet) ([]string, error)
}

func (d *fakeDescriber) DescribeBatch(ctx context.Context, snippets []model.Snippet) ([]string, error) {
	d.mu.Lock()
	call := len(d.sizes)
	d.sizes = append(d.sizes, len(snippets))
	d.mu.Unlock()
	if d.fn != nil {
		return d.fn(call, snippets)
	}
	out := make([]string, len(snippets))
	for i, s := range snippets {
		out[i] = "describes " + s.Name
	}
	return out, nil
}

func (d *fakeDescriber) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sizes)
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	descs []model.Description
	warns []string
	err   error
}

func (r *fakeRenderer) Render(ctx context.Context, jobID string, descriptions []model.Description, warnings []string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.descs = descriptions
	r.warns = warnings
	if r.err != nil {
		return "", r.err
	}
	return "/docs/documentation_" + jobID + ".html", nil
}

// hookStore records every committed percent and lets tests react to updates.
type hookStore struct {
	*memory.JobStore
	mu       sync.Mutex
	percents []int
	after    func(job *model.GenerationJob)
}

func newHookStore() *hookStore {
	return &hookStore{JobStore: memory.NewJobStore()}
}

func (h *hookStore) Update(ctx context.Context, id string, mutate repository.Mutation) (*model.GenerationJob, error) {
	job, err := h.JobStore.Update(ctx, id, mutate)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	if job.Status == model.JobStatusGenerating && (len(h.percents) == 0 || h.percents[len(h.percents)-1] != job.Percent) {
		h.percents = append(h.percents, job.Percent)
	}
	after := h.after
	h.mu.Unlock()
	if after != nil {
		after(job)
	}
	return job, nil
}

// syncRunner runs submitted tasks inline.
type syncRunner struct{}

func (syncRunner) Submit(task func(ctx context.Context) error) error {
	return task(context.Background())
}

// holdRunner keeps tasks without running them.
type holdRunner struct {
	tasks []func(ctx context.Context) error
}

func (h *holdRunner) Submit(task func(ctx context.Context) error) error {
	h.tasks = append(h.tasks, task)
	return nil
}

type busyRunner struct{}

func (busyRunner) Submit(task func(ctx context.Context) error) error {
	return fmt.Errorf("%w: queue full", domain.ErrBusy)
}

var errStopped = errors.New("pool stopped")

type stoppedRunner struct{}

func (stoppedRunner) Submit(task func(ctx context.Context) error) error { return errStopped }
