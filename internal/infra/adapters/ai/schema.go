package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemas caches one compiled reply schema per batch length.
var schemas sync.Map // int -> *jsonschema.Schema

func replySchema(n int) (*jsonschema.Schema, error) {
	if s, ok := schemas.Load(n); ok {
		return s.(*jsonschema.Schema), nil
	}
	doc := map[string]any{
		"$schema":  "https://json-schema.org/draft/2020-12/schema",
		"type":     "array",
		"items":    map[string]any{"type": "string"},
		"minItems": n,
		"maxItems": n,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	name := fmt.Sprintf("reply-%d.json", n)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	actual, _ := schemas.LoadOrStore(n, schema)
	return actual.(*jsonschema.Schema), nil
}

// parseReply decodes a model reply into exactly n one-line descriptions.
func parseReply(raw string, n int) ([]string, error) {
	content := stripFences(raw)
	schema, err := replySchema(n)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("reply does not match schema: %w", err)
	}
	items := v.([]any)
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.Join(strings.Fields(it.(string)), " ")
	}
	return out, nil
}
