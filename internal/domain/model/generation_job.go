package model

import (
	"fmt"
	"time"

	"ai-doc-generator/internal/domain"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusGenerating JobStatus = "generating"
	JobStatusDone       JobStatus = "done"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusCancelled || s == JobStatusFailed
}

type BatchState string

const (
	BatchPending   BatchState = "pending"
	BatchInFlight  BatchState = "in_flight"
	BatchCompleted BatchState = "completed"
	BatchSkipped   BatchState = "skipped"
)

// FailedDescription is the placeholder text used for every snippet of a batch
// whose AI call exhausted its retries.
const FailedDescription = "Failed to generate description"

// Batch is one ordered group of snippets sent to the AI provider in a single call.
type Batch struct {
	ID           string
	Index        int
	Snippets     []Snippet
	State        BatchState
	Descriptions []string
	Warning      string
	StartedAt    *time.Time
	SettledAt    *time.Time
}

// Settled reports whether the batch reached completed or skipped.
func (b *Batch) Settled() bool {
	return b.State == BatchCompleted || b.State == BatchSkipped
}

// Description is one generated line attached to the snippet it documents.
type Description struct {
	File   string
	Kind   SnippetKind
	Name   string
	Line   int
	Text   string
	Failed bool
}

// Result is the immutable outcome of a finished generation.
type Result struct {
	Descriptions []Description
	Warnings     []string
	DocumentPath string
	CompletedAt  time.Time
}

// GenerationJob is the aggregate root for one end-to-end documentation request.
type GenerationJob struct {
	ID              string
	Status          JobStatus
	Percent         int
	FailureReason   string
	Batches         []Batch
	CancelRequested bool
	Result          *Result
	// StartedAt is set when a start request claims the queued job.
	StartedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewGenerationJob(id string) *GenerationJob {
	now := time.Now()
	return &GenerationJob{
		ID:        id,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Claim marks a queued job as handed to the controller. A job can be claimed once.
func (j *GenerationJob) Claim() error {
	if j.Status != JobStatusQueued || j.StartedAt != nil {
		return domain.ErrNotQueued
	}
	now := time.Now()
	j.StartedAt = &now
	j.touch()
	return nil
}

// Release undoes Claim for a job that never reached the controller.
func (j *GenerationJob) Release() {
	if j.Status == JobStatusQueued {
		j.StartedAt = nil
		j.touch()
	}
}

// Transition moves the job along queued -> generating -> {done|cancelled|failed}.
func (j *GenerationJob) Transition(to JobStatus) error {
	ok := false
	switch j.Status {
	case JobStatusQueued:
		ok = to == JobStatusGenerating
	case JobStatusGenerating:
		ok = to.IsTerminal()
	}
	if !ok {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	j.touch()
	return nil
}

// Fail moves a generating job to failed with the given reason.
func (j *GenerationJob) Fail(reason string) error {
	if err := j.Transition(JobStatusFailed); err != nil {
		return err
	}
	j.FailureReason = reason
	return nil
}

// SetPercent records progress; it never moves backwards.
func (j *GenerationJob) SetPercent(p int) error {
	if j.Status != JobStatusGenerating {
		return fmt.Errorf("%w: percent update while %s", domain.ErrInvalidTransition, j.Status)
	}
	if p < j.Percent || p > 100 {
		return fmt.Errorf("%w: percent %d -> %d", domain.ErrInvalidTransition, j.Percent, p)
	}
	j.Percent = p
	j.touch()
	return nil
}

// SetResult stores the final result. It can only happen once.
func (j *GenerationJob) SetResult(r Result) error {
	if j.Result != nil {
		return domain.ErrResultAlreadySet
	}
	j.Result = &r
	j.touch()
	return nil
}

// RequestCancel raises the cancellation flag. The flag is never reset.
func (j *GenerationJob) RequestCancel() {
	if j.CancelRequested || j.Status.IsTerminal() {
		return
	}
	j.CancelRequested = true
	j.touch()
}

// SettledBatches counts batches that are completed or skipped.
func (j *GenerationJob) SettledBatches() int {
	n := 0
	for i := range j.Batches {
		if j.Batches[i].Settled() {
			n++
		}
	}
	return n
}

// ComputePercent returns floor(settled/total*100); a job without batches is at 100.
func (j *GenerationJob) ComputePercent() int {
	total := len(j.Batches)
	if total == 0 {
		return 100
	}
	return j.SettledBatches() * 100 / total
}

// SkipRemaining marks every unsettled batch as skipped.
func (j *GenerationJob) SkipRemaining(warning string) {
	now := time.Now()
	for i := range j.Batches {
		b := &j.Batches[i]
		if b.Settled() {
			continue
		}
		b.State = BatchSkipped
		b.Warning = warning
		b.SettledAt = &now
	}
	j.touch()
}

// ProgressString renders the status the way polling clients expect it:
// "generating:<p>", "done", "cancelled" or "failed:<reason>".
// A queued job is reported as generating:0.
func (j *GenerationJob) ProgressString() string {
	switch j.Status {
	case JobStatusDone:
		return "done"
	case JobStatusCancelled:
		return "cancelled"
	case JobStatusFailed:
		return "failed:" + j.FailureReason
	default:
		return fmt.Sprintf("generating:%d", j.Percent)
	}
}

// Clone returns a deep copy safe to hand to readers outside the store lock.
func (j *GenerationJob) Clone() *GenerationJob {
	cp := *j
	if j.Batches != nil {
		cp.Batches = make([]Batch, len(j.Batches))
		for i, b := range j.Batches {
			nb := b
			nb.Snippets = append([]Snippet(nil), b.Snippets...)
			nb.Descriptions = append([]string(nil), b.Descriptions...)
			if b.StartedAt != nil {
				t := *b.StartedAt
				nb.StartedAt = &t
			}
			if b.SettledAt != nil {
				t := *b.SettledAt
				nb.SettledAt = &t
			}
			cp.Batches[i] = nb
		}
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.Result != nil {
		r := *j.Result
		r.Descriptions = append([]Description(nil), j.Result.Descriptions...)
		r.Warnings = append([]string(nil), j.Result.Warnings...)
		cp.Result = &r
	}
	return &cp
}

func (j *GenerationJob) touch() {
	j.UpdatedAt = time.Now()
}
