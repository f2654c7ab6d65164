package usecase

import "ai-doc-generator/internal/domain/model"

// BatchLimits bounds the client-supplied batch size.
type BatchLimits struct {
	Min     int
	Max     int
	Default int
}

// Clamp returns the batch size to use. Missing or out-of-range requests fall back
// to the default; they are never rejected.
func (l BatchLimits) Clamp(requested int) int {
	def := l.Default
	if def < l.Min || def > l.Max || def <= 0 {
		def = (l.Min + l.Max) / 2
	}
	if def <= 0 {
		def = 1
	}
	if requested <= 0 || requested < l.Min || requested > l.Max {
		return def
	}
	return requested
}

// Partition splits snippets into ceil(N/size) ordered groups. The last group may be short.
func Partition(snippets []model.Snippet, size int) [][]model.Snippet {
	if size <= 0 {
		size = 1
	}
	if len(snippets) == 0 {
		return nil
	}
	out := make([][]model.Snippet, 0, (len(snippets)+size-1)/size)
	for start := 0; start < len(snippets); start += size {
		end := min(start+size, len(snippets))
		out = append(out, snippets[start:end:end])
	}
	return out
}
