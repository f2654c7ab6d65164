package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiCallsLatencyMs,
		aiCallAttempts,
		aiPromptTokens,
		aiTokens,
	)
}

var (
	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
		},
		[]string{"model", "success"},
	)

	aiCallAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_call_attempts_total",
			Help: "AI call attempts, labeled by outcome (ok, retry, exhausted).",
		},
		[]string{"model", "outcome"},
	)

	aiPromptTokens = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_batch_prompt_tokens",
			Help:    "Prompt tokens per batch request; source is provider or estimate.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10),
		},
		[]string{"model", "source"},
	)

	aiTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Tokens consumed by AI calls, by kind (prompt, completion).",
		},
		[]string{"model", "kind"},
	)
)

func ObserveAICall(model string, latencyMs int64, success bool) {
	aiCallsLatencyMs.WithLabelValues(norm(model), strconv.FormatBool(success)).Observe(float64(latencyMs))
}

func IncAIAttempt(model, outcome string) {
	aiCallAttempts.WithLabelValues(norm(model), norm(outcome)).Inc()
}

// ObserveTokenUsage records one successful call. estimated marks a local count
// used when the provider reported no usage.
func ObserveTokenUsage(model string, prompt, completion int, estimated bool) {
	source := "provider"
	if estimated {
		source = "estimate"
	}
	aiPromptTokens.WithLabelValues(norm(model), source).Observe(float64(prompt))
	aiTokens.WithLabelValues(norm(model), "prompt").Add(float64(prompt))
	if completion > 0 {
		aiTokens.WithLabelValues(norm(model), "completion").Add(float64(completion))
	}
}
