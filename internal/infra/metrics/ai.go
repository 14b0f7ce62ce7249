package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiTokensTotal,
		aiCallsLatencyMs,
		aiChatRetries,
		aiStreamFallbacks,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Sum of total tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 15000, 60000},
		},
		[]string{"provider", "model", "success"},
	)

	aiChatRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_chat_retries_total",
			Help: "Count of backoff retries after transient/rate-limited failures.",
		},
		[]string{"provider", "model"},
	)

	aiStreamFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_stream_fallback_total",
			Help: "Count of streaming calls degraded to one full non-streaming call.",
		},
		[]string{"provider", "model"},
	)
)

func IncChatRetry(provider, model string) {
	aiChatRetries.WithLabelValues(norm(provider), norm(model)).Inc()
}

func IncStreamFallback(provider, model string) {
	aiStreamFallbacks.WithLabelValues(norm(provider), norm(model)).Inc()
}

func ObserveChatUsage(provider, model string, tokensIn, tokensOut, tokensTotal int, latencyMs int, success bool) {
	lbl := []string{norm(provider), norm(model)}
	aiTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	aiTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	aiTokensTotal.WithLabelValues(lbl...).Add(float64(tokensTotal))
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
