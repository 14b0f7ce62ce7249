// Package llm provides the provider adapters behind the adapter.LLMAdapter
// port, plus the capability table, retry loop and client factory/cache.
package llm

import "strings"

// Capability describes which optional request features a provider accepts.
type Capability struct {
	// SupportsTemperature reports whether the given model accepts a
	// sampling temperature parameter.
	SupportsTemperature func(model string) bool
}

// capabilities is consulted before the first outgoing request so known
// rejections never cost a failed attempt. Providers absent from the table
// default to "supported"; a wrong optimistic answer is corrected by the
// single uncounted retry in chatWithRetry.
var capabilities = map[string]Capability{
	ProviderOpenAI: {
		SupportsTemperature: func(model string) bool {
			m := strings.ToLower(model)
			return !strings.HasPrefix(m, "gpt-5") && !strings.HasPrefix(m, "o1")
		},
	},
}

// SupportsTemperature looks up the capability table with an optimistic
// default for unknown provider/model combinations.
func SupportsTemperature(provider, model string) bool {
	cap, ok := capabilities[strings.ToLower(provider)]
	if !ok || cap.SupportsTemperature == nil {
		return true
	}
	return cap.SupportsTemperature(model)
}
