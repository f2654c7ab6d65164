//go:build !integration

package ai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryStrategy_CalculateDelay(t *testing.T) {
	rs := NewRetryStrategy(RetryConfig{MaxAttempts: 5, InitialDelay: 500 * time.Millisecond, MaxDelay: 3 * time.Second, Multiplier: 2})
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
		{4, 3 * time.Second},
		{9, 3 * time.Second},
	}
	for _, tt := range tests {
		if got := rs.CalculateDelay(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}

func TestRetryStrategy_ShouldRetry(t *testing.T) {
	rs := NewRetryStrategy(RetryConfig{MaxAttempts: 3})
	ctx := context.Background()
	transient := errors.New("timeout")

	if !rs.ShouldRetry(ctx, 1, transient) {
		t.Error("transient error on attempt 1 should retry")
	}
	if rs.ShouldRetry(ctx, 3, transient) {
		t.Error("no retry past max attempts")
	}
	if rs.ShouldRetry(ctx, 1, nil) {
		t.Error("no retry on success")
	}
	if rs.ShouldRetry(ctx, 1, Permanent(transient)) {
		t.Error("no retry on permanent errors")
	}
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if rs.ShouldRetry(cancelled, 1, transient) {
		t.Error("no retry once the caller is gone")
	}
}

func TestRetryConfig_Defaults(t *testing.T) {
	rs := NewRetryStrategy(RetryConfig{})
	if rs.config.MaxAttempts != 3 {
		t.Errorf("expected default 3 attempts, got %d", rs.config.MaxAttempts)
	}
	if rs.CalculateDelay(1) != 500*time.Millisecond {
		t.Errorf("unexpected default initial delay %v", rs.CalculateDelay(1))
	}
}

func TestSleepCtx_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
