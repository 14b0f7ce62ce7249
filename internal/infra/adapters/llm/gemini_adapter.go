package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"yoyaktube/internal/domain"
	"yoyaktube/internal/domain/ports/adapter"
	"yoyaktube/internal/infra/metrics"
)

var _ adapter.LLMAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter implements adapter.LLMAdapter using the official SDK.
// Gemini has no per-message role concept the way chat completions do, so
// the message sequence is flattened: system content first, then the
// remaining turns in order, each prefixed with an upper-cased role label.
type GeminiAdapter struct {
	client *genai.Client
	model  string
	sleep  func(context.Context, time.Duration) error
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, model string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", domain.ErrMissingCredentials)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, model: model}, nil
}

func (g *GeminiAdapter) Name() string  { return ProviderGemini }
func (g *GeminiAdapter) Model() string { return g.model }

func (g *GeminiAdapter) Chat(ctx context.Context, messages []adapter.Message, temperature float64) (adapter.ChatResponse, error) {
	include := SupportsTemperature(ProviderGemini, g.model)
	return chatWithRetry(ctx, ProviderGemini, g.model, include,
		func(ctx context.Context, includeTemp bool) (adapter.ChatResponse, error) {
			return g.chatOnce(ctx, messages, temperature, includeTemp)
		}, g.sleep)
}

func (g *GeminiAdapter) chatOnce(ctx context.Context, messages []adapter.Message, temperature float64, includeTemp bool) (adapter.ChatResponse, error) {
	contents := flattenToContents(messages)
	cfg := &genai.GenerateContentConfig{}
	if includeTemp {
		cfg.Temperature = genai.Ptr(float32(temperature))
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return adapter.ChatResponse{}, g.wrapError(err)
	}

	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
	}
	if strings.TrimSpace(text) == "" {
		return adapter.ChatResponse{}, &domain.ProviderError{
			Kind: domain.FailureTransient, Provider: ProviderGemini, Model: g.model,
			Err: errors.New("no candidate content"),
		}
	}
	u := adapter.Usage{}
	if resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return adapter.ChatResponse{Content: strings.TrimSpace(text), Usage: u, Model: g.model}, nil
}

func (g *GeminiAdapter) StreamChat(ctx context.Context, messages []adapter.Message, temperature float64) (<-chan adapter.StreamEvent, error) {
	out := make(chan adapter.StreamEvent)
	go func() {
		defer close(out)

		contents := flattenToContents(messages)
		cfg := &genai.GenerateContentConfig{}
		if SupportsTemperature(ProviderGemini, g.model) {
			cfg.Temperature = genai.Ptr(float32(temperature))
		}

		yielded := false
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
			if err != nil {
				if yielded {
					// Partial content already delivered; a second full
					// call would duplicate it, so surface the failure.
					select {
					case out <- adapter.StreamEvent{Err: g.wrapError(err)}:
					case <-ctx.Done():
					}
					return
				}
				g.fallback(ctx, out, messages, temperature)
				return
			}
			delta := ""
			if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
				delta = resp.Candidates[0].Content.Parts[0].Text
			}
			if delta == "" {
				continue
			}
			select {
			case out <- adapter.StreamEvent{Delta: delta}:
				yielded = true
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (g *GeminiAdapter) fallback(ctx context.Context, out chan<- adapter.StreamEvent, messages []adapter.Message, temperature float64) {
	metrics.IncStreamFallback(ProviderGemini, g.model)
	resp, err := g.Chat(ctx, messages, temperature)
	if err != nil {
		select {
		case out <- adapter.StreamEvent{Err: err}:
		case <-ctx.Done():
		}
		return
	}
	select {
	case out <- adapter.StreamEvent{Delta: resp.Content, Fallback: true}:
	case <-ctx.Done():
	}
}

func (g *GeminiAdapter) wrapError(err error) error {
	kind := domain.FailureTransient
	status := 0
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.Code
		kind = domain.ClassifyStatus(apiErr.Code)
	}
	return &domain.ProviderError{
		Kind:       kind,
		Provider:   ProviderGemini,
		Model:      g.model,
		StatusCode: status,
		Err:        err,
	}
}

// flattenToContents builds the single concatenated prompt: system turns
// first, then the remaining turns in original order labeled "USER:" /
// "ASSISTANT:".
func flattenToContents(messages []adapter.Message) []*genai.Content {
	var sys, convo []string
	for _, m := range messages {
		if strings.ToLower(m.Role) == "system" {
			sys = append(sys, m.Content)
			continue
		}
		convo = append(convo, strings.ToUpper(m.Role)+": "+m.Content)
	}
	prompt := strings.TrimSpace(strings.Join(sys, "\n") + "\n\n" + strings.Join(convo, "\n"))
	return []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	}}
}
