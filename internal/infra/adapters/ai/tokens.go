package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates the prompt size of a text for a model.
type TokenCounter func(model, text string) int

var (
	encOnce    sync.Once
	defaultEnc *tiktoken.Tiktoken
)

// TiktokenCounter counts with the model's BPE when tiktoken knows it, falling back
// to cl100k_base, and to a four-bytes-per-token estimate when no encoding loads.
func TiktokenCounter(model, text string) int {
	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return len(enc.Encode(text, nil, nil))
	}
	encOnce.Do(func() {
		defaultEnc, _ = tiktoken.GetEncoding("cl100k_base")
	})
	if defaultEnc != nil {
		return len(defaultEnc.Encode(text, nil, nil))
	}
	return (len(text) + 3) / 4
}
