package ai

import (
	"fmt"
	"strings"

	"ai-doc-generator/internal/domain/model"
	"ai-doc-generator/internal/domain/ports/adapter"
)

const describeInstructions = `You will be given a numbered list of code snippets with their type.
Return a JSON array of simple, one-line descriptions, one per snippet, in the same order.
Do NOT include extra explanation, markdown, or backticks.
ONLY return the raw array like: ["desc1", "desc2"]`

// buildBatchMessages renders one batch as a system instruction plus a numbered user prompt.
func buildBatchMessages(snippets []model.Snippet) []adapter.Message {
	var b strings.Builder
	b.WriteString("Here is the list of snippets:\n")
	for i, s := range snippets {
		fmt.Fprintf(&b, "\n%d. Type: %s\n%s\n", i+1, s.Kind, s.Code)
	}
	return []adapter.Message{
		{Role: "system", Content: describeInstructions},
		{Role: "user", Content: b.String()},
	}
}

// stripFences unwraps a reply the model wrapped in a markdown code block.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop a language tag such as ```json
		if tag := strings.TrimSpace(s[:nl]); !strings.HasPrefix(tag, "[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
