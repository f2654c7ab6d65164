package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"ai-doc-generator/internal/domain/ports/adapter"
)

var errNoProvider = Permanent(errors.New("ai: no provider configured"))

var _ adapter.AIServiceAdapter = (*ProviderRouter)(nil)

// modelFamilies maps a model-name prefix to the providers able to serve it,
// in order of preference.
var modelFamilies = []struct {
	prefix    string
	providers []string
}{
	{"gemini", []string{"gemini"}},
	{"gpt", []string{"openai", "metis"}},
	{"o1", []string{"openai", "metis"}},
	{"o3", []string{"openai", "metis"}},
	{"o4", []string{"openai", "metis"}},
}

// ProviderRouter sends each call to the provider serving the requested model.
// Unknown families go to the configured provider, then to any provider at all.
type ProviderRouter struct {
	preferred string
	providers map[string]adapter.AIServiceAdapter
	names     []string
}

func NewProviderRouter(preferred string, providers map[string]adapter.AIServiceAdapter) *ProviderRouter {
	r := &ProviderRouter{
		preferred: strings.ToLower(preferred),
		providers: make(map[string]adapter.AIServiceAdapter, len(providers)),
	}
	for name, p := range providers {
		if p == nil {
			continue
		}
		name = strings.ToLower(name)
		r.providers[name] = p
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// route returns the provider name for model, or "" when nothing is configured.
func (r *ProviderRouter) route(model string) string {
	l := strings.ToLower(strings.TrimPrefix(model, "models/"))
	for _, f := range modelFamilies {
		if !strings.HasPrefix(l, f.prefix) {
			continue
		}
		for _, name := range f.providers {
			if _, ok := r.providers[name]; ok {
				return name
			}
		}
		break
	}
	if _, ok := r.providers[r.preferred]; ok {
		return r.preferred
	}
	if len(r.names) > 0 {
		return r.names[0]
	}
	return ""
}

// ListModels merges every provider's list. A provider error is returned only
// when no provider produced a model.
func (r *ProviderRouter) ListModels(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	var errs []error
	for _, name := range r.names {
		models, err := r.providers[name].ListModels(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		for _, m := range models {
			if m != "" && !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	sort.Strings(out)
	return out, nil
}

func (r *ProviderRouter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	name := r.route(model)
	if name == "" {
		return "", adapter.Usage{}, errNoProvider
	}
	return r.providers[name].ChatWithUsage(ctx, model, messages)
}

// CheckModel reports an error unless a lists model. Gemini's "models/" name
// prefix is ignored.
func CheckModel(ctx context.Context, a adapter.AIServiceAdapter, model string) error {
	models, err := a.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	want := strings.TrimPrefix(model, "models/")
	for _, m := range models {
		if strings.TrimPrefix(m, "models/") == want {
			return nil
		}
	}
	return fmt.Errorf("model %q not served by any configured provider (%d listed)", model, len(models))
}
