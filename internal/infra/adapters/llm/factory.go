package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"yoyaktube/internal/domain"
	"yoyaktube/internal/domain/ports/adapter"
)

// Provider identifiers accepted by Build.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// ProviderConfig selects and credentials one adapter. It is the cache
// key: adapters are reused only while every field stays equal, never by
// instance identity.
type ProviderConfig struct {
	Provider   string
	Model      string
	OpenAIKey  string
	GeminiKey  string
	OllamaHost string
}

// Build constructs the adapter for cfg. Missing credentials surface as a
// wrapped domain.ErrMissingCredentials, unknown providers as
// domain.ErrUnsupportedProvider.
func Build(ctx context.Context, cfg ProviderConfig) (adapter.LLMAdapter, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIAdapter(cfg.OpenAIKey, cfg.Model)
	case ProviderGemini:
		return NewGeminiAdapter(ctx, cfg.GeminiKey, "", cfg.Model)
	case ProviderOllama:
		return NewOllamaAdapter(cfg.OllamaHost, cfg.Model)
	case ProviderMock:
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Provider, domain.ErrUnsupportedProvider)
	}
}

// Cache holds the single most recent (config, adapter) pair. The mutex
// matters for concurrent hosts: two racing config changes must not leave
// a caller holding an adapter built for the other configuration.
type Cache struct {
	mu      sync.Mutex
	last    ProviderConfig
	adapter adapter.LLMAdapter
	log     *zerolog.Logger
}

func NewCache(log *zerolog.Logger) *Cache {
	return &Cache{log: log}
}

// GetOrCreate returns the cached adapter when cfg equals the previous
// call's config, otherwise builds a replacement and drops the old one
// (adapters hold nothing beyond an HTTP client, so no teardown).
func (c *Cache) GetOrCreate(ctx context.Context, cfg ProviderConfig) (adapter.LLMAdapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.adapter != nil && c.last == cfg {
		return c.adapter, nil
	}
	a, err := Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.last = cfg
	c.adapter = a
	if c.log != nil {
		c.log.Info().
			Str("provider", cfg.Provider).
			Str("model", cfg.Model).
			Msg("llm adapter (re)created")
	}
	return a, nil
}
