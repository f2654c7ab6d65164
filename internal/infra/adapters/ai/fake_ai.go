package ai

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"ai-doc-generator/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*FakeAIAdapter)(nil)

var numberedItem = regexp.MustCompile(`(?m)^(\d+)\. Type: (.+)$`)

// FakeAIAdapter answers describe prompts offline for local/dev runs.
// It returns one canned description per numbered snippet in the prompt.
type FakeAIAdapter struct {
	delay time.Duration
}

func NewFakeAIAdapter(delay time.Duration) *FakeAIAdapter {
	return &FakeAIAdapter{delay: delay}
}

func (a *FakeAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"fake-describer"}, nil
}

func (a *FakeAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	if a.delay > 0 {
		if err := sleepCtx(ctx, a.delay); err != nil {
			return "", adapter.Usage{}, err
		}
	}
	var descs []string
	for _, m := range messages {
		if m.Role != "user" {
			continue
		}
		for _, match := range numberedItem.FindAllStringSubmatch(m.Content, -1) {
			descs = append(descs, "Defines a "+match[2]+".")
		}
	}
	if descs == nil {
		descs = []string{}
	}
	b, err := json.Marshal(descs)
	if err != nil {
		return "", adapter.Usage{}, err
	}
	prompt := 0
	for _, m := range messages {
		prompt += (len(m.Content) + 3) / 4
	}
	completion := (len(b) + 3) / 4
	return string(b), adapter.Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}, nil
}
