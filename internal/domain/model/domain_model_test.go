//go:build !integration

package model

import (
	"errors"
	"testing"

	"ai-doc-generator/internal/domain"
)

// --- GenerationJob Tests ---

func TestNewGenerationJob(t *testing.T) {
	job := NewGenerationJob("gen-1")
	if job.Status != JobStatusQueued {
		t.Fatalf("expected queued, got %s", job.Status)
	}
	if job.ProgressString() != "generating:0" {
		t.Errorf("queued job should poll as generating:0, got %q", job.ProgressString())
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestGenerationJob_Transition(t *testing.T) {
	t.Run("should follow queued -> generating -> done", func(t *testing.T) {
		job := NewGenerationJob("gen-1")
		if err := job.Transition(JobStatusGenerating); err != nil {
			t.Fatalf("queued -> generating: %v", err)
		}
		if err := job.Transition(JobStatusDone); err != nil {
			t.Fatalf("generating -> done: %v", err)
		}
	})

	t.Run("should reject queued -> terminal", func(t *testing.T) {
		for _, to := range []JobStatus{JobStatusDone, JobStatusCancelled, JobStatusFailed} {
			job := NewGenerationJob("gen-1")
			err := job.Transition(to)
			if !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("queued -> %s: expected ErrInvalidTransition, got %v", to, err)
			}
		}
	})

	t.Run("should reject leaving a terminal state", func(t *testing.T) {
		job := NewGenerationJob("gen-1")
		_ = job.Transition(JobStatusGenerating)
		_ = job.Transition(JobStatusCancelled)
		for _, to := range []JobStatus{JobStatusQueued, JobStatusGenerating, JobStatusDone, JobStatusFailed} {
			if err := job.Transition(to); !errors.Is(err, domain.ErrInvalidTransition) {
				t.Errorf("cancelled -> %s should be rejected, got %v", to, err)
			}
		}
		if job.Status != JobStatusCancelled {
			t.Errorf("status changed after rejected transitions: %s", job.Status)
		}
	})
}

func TestGenerationJob_SetPercent(t *testing.T) {
	job := NewGenerationJob("gen-1")
	if err := job.SetPercent(10); err == nil {
		t.Fatal("expected percent update on queued job to fail")
	}
	_ = job.Transition(JobStatusGenerating)
	if err := job.SetPercent(33); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := job.SetPercent(20); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected decreasing percent to be rejected, got %v", err)
	}
	if err := job.SetPercent(101); err == nil {
		t.Error("expected percent > 100 to be rejected")
	}
	if job.ProgressString() != "generating:33" {
		t.Errorf("unexpected progress string %q", job.ProgressString())
	}
}

func TestGenerationJob_SetResultOnce(t *testing.T) {
	job := NewGenerationJob("gen-1")
	if err := job.SetResult(Result{DocumentPath: "a.html"}); err != nil {
		t.Fatalf("first SetResult: %v", err)
	}
	if err := job.SetResult(Result{DocumentPath: "b.html"}); !errors.Is(err, domain.ErrResultAlreadySet) {
		t.Fatalf("expected ErrResultAlreadySet, got %v", err)
	}
	if job.Result.DocumentPath != "a.html" {
		t.Errorf("result was overwritten: %s", job.Result.DocumentPath)
	}
}

func TestGenerationJob_RequestCancel(t *testing.T) {
	job := NewGenerationJob("gen-1")
	job.RequestCancel()
	job.RequestCancel()
	if !job.CancelRequested {
		t.Fatal("expected cancel flag to be set")
	}

	done := NewGenerationJob("gen-2")
	_ = done.Transition(JobStatusGenerating)
	_ = done.Transition(JobStatusDone)
	done.RequestCancel()
	if done.CancelRequested {
		t.Error("cancel on a terminal job should be a no-op")
	}
}

func TestGenerationJob_ComputePercent(t *testing.T) {
	job := NewGenerationJob("gen-1")
	if job.ComputePercent() != 100 {
		t.Errorf("job without batches should compute 100, got %d", job.ComputePercent())
	}
	job.Batches = []Batch{{State: BatchCompleted}, {State: BatchSkipped}, {State: BatchPending}}
	if got := job.ComputePercent(); got != 66 {
		t.Errorf("expected floor(2/3*100)=66, got %d", got)
	}
	job.SkipRemaining("cancelled")
	if got := job.ComputePercent(); got != 100 {
		t.Errorf("expected 100 after skipping, got %d", got)
	}
	if job.Batches[2].Warning != "cancelled" {
		t.Errorf("expected warning on skipped batch, got %q", job.Batches[2].Warning)
	}
}

func TestGenerationJob_ProgressString(t *testing.T) {
	job := NewGenerationJob("gen-1")
	_ = job.Transition(JobStatusGenerating)
	_ = job.Fail("extractor exploded")
	if got := job.ProgressString(); got != "failed:extractor exploded" {
		t.Errorf("unexpected failed progress %q", got)
	}
}

func TestGenerationJob_CloneIsDeep(t *testing.T) {
	job := NewGenerationJob("gen-1")
	job.Batches = []Batch{{Snippets: []Snippet{{Name: "a"}}, Descriptions: []string{"x"}}}
	_ = job.SetResult(Result{Descriptions: []Description{{Text: "x"}}})

	cp := job.Clone()
	cp.Batches[0].Snippets[0].Name = "changed"
	cp.Batches[0].Descriptions[0] = "changed"
	cp.Result.Descriptions[0].Text = "changed"

	if job.Batches[0].Snippets[0].Name != "a" || job.Batches[0].Descriptions[0] != "x" {
		t.Error("clone shares batch slices with the original")
	}
	if job.Result.Descriptions[0].Text != "x" {
		t.Error("clone shares result with the original")
	}
}

func TestSourceFile_Ext(t *testing.T) {
	if got := (SourceFile{Name: "Main.JAVA"}).Ext(); got != ".java" {
		t.Errorf("expected .java, got %q", got)
	}
}

func TestGenerationJob_Claim(t *testing.T) {
	job := NewGenerationJob("gen-1")
	if err := job.Claim(); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := job.Claim(); !errors.Is(err, domain.ErrNotQueued) {
		t.Fatalf("second claim should fail with ErrNotQueued, got %v", err)
	}
	job.Release()
	if err := job.Claim(); err != nil {
		t.Fatalf("claim after release: %v", err)
	}
	_ = job.Transition(JobStatusGenerating)
	job.Release()
	if job.StartedAt == nil {
		t.Error("release must not touch a job that already started generating")
	}
}
