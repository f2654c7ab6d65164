package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-doc-generator/internal/domain"
	"ai-doc-generator/internal/domain/model"
	"ai-doc-generator/internal/domain/ports/adapter"
	"ai-doc-generator/internal/infra/metrics"
)

var _ adapter.SnippetDescriber = (*BatchDescriber)(nil)

// BatchDescriber asks an AI provider for one description per snippet of a batch.
// It owns the per-call timeout and the retry policy; it never touches job state.
type BatchDescriber struct {
	ai          adapter.AIServiceAdapter
	model       string
	callTimeout time.Duration
	retry       *RetryStrategy
	tokens      TokenCounter
	sleep       func(ctx context.Context, d time.Duration) error
	usage       func(model string, u adapter.Usage, estimated bool)
	log         *zerolog.Logger
}

type DescriberOption func(*BatchDescriber)

// WithTokenCounter sets the prompt estimate recorded when a provider reports no usage.
func WithTokenCounter(tc TokenCounter) DescriberOption {
	return func(d *BatchDescriber) { d.tokens = tc }
}

func NewBatchDescriber(ai adapter.AIServiceAdapter, model string, callTimeout time.Duration, retry RetryConfig, logger *zerolog.Logger, opts ...DescriberOption) *BatchDescriber {
	l := logger.With().Str("component", "BatchDescriber").Logger()
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	d := &BatchDescriber{
		ai:          ai,
		model:       model,
		callTimeout: callTimeout,
		retry:       NewRetryStrategy(retry),
		sleep:       sleepCtx,
		usage:       observeUsage,
		log:         &l,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *BatchDescriber) DescribeBatch(ctx context.Context, snippets []model.Snippet) ([]string, error) {
	if len(snippets) == 0 {
		return nil, nil
	}
	messages := buildBatchMessages(snippets)
	estimate := 0
	if d.tokens != nil {
		estimate = d.tokens(d.model, messages[0].Content+messages[1].Content)
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		out, err := d.attempt(ctx, messages, len(snippets), estimate)
		if err == nil {
			metrics.IncAIAttempt(d.model, "ok")
			return out, nil
		}
		lastErr = err
		if !d.retry.ShouldRetry(ctx, attempt, err) {
			metrics.IncAIAttempt(d.model, "exhausted")
			break
		}
		metrics.IncAIAttempt(d.model, "retry")
		delay := d.retry.CalculateDelay(attempt)
		d.log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Int("snippets", len(snippets)).Msg("describe batch failed, retrying")
		if err := d.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrBatchFailed, lastErr)
}

func (d *BatchDescriber) attempt(ctx context.Context, messages []adapter.Message, n, estimate int) ([]string, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	start := time.Now()
	reply, usage, err := d.ai.ChatWithUsage(callCtx, d.model, messages)
	metrics.ObserveAICall(d.model, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("ai call timed out after %s: %w", d.callTimeout, err)
		}
		return nil, err
	}
	d.recordUsage(usage, estimate)
	if strings.TrimSpace(reply) == "" {
		return nil, errors.New("empty reply")
	}
	return parseReply(reply, n)
}

// recordUsage prefers provider-reported tokens and falls back to the local estimate.
func (d *BatchDescriber) recordUsage(u adapter.Usage, estimate int) {
	if u.PromptTokens > 0 || u.CompletionTokens > 0 {
		d.usage(d.model, u, false)
		return
	}
	if estimate > 0 {
		d.usage(d.model, adapter.Usage{PromptTokens: estimate, TotalTokens: estimate}, true)
	}
}

func observeUsage(model string, u adapter.Usage, estimated bool) {
	metrics.ObserveTokenUsage(model, u.PromptTokens, u.CompletionTokens, estimated)
}
