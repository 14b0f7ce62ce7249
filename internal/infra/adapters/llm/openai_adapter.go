package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"yoyaktube/internal/domain"
	"yoyaktube/internal/domain/ports/adapter"
	"yoyaktube/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.LLMAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.LLMAdapter against the Chat
// Completions API.
type OpenAIAdapter struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
	sleep  func(context.Context, time.Duration) error // nil = real backoff waits
}

func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", domain.ErrMissingCredentials)
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		base:   "https://api.openai.com/v1",
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (o *OpenAIAdapter) Name() string  { return ProviderOpenAI }
func (o *OpenAIAdapter) Model() string { return o.model }

type openAIRequest struct {
	Model       string            `json:"model"`
	Messages    []adapter.Message `json:"messages"`
	Temperature *float64          `json:"temperature,omitempty"`
	Stream      bool              `json:"stream,omitempty"`
}

func (o *OpenAIAdapter) Chat(ctx context.Context, messages []adapter.Message, temperature float64) (adapter.ChatResponse, error) {
	include := SupportsTemperature(ProviderOpenAI, o.model)
	return chatWithRetry(ctx, ProviderOpenAI, o.model, include,
		func(ctx context.Context, includeTemp bool) (adapter.ChatResponse, error) {
			return o.chatOnce(ctx, messages, temperature, includeTemp)
		}, o.sleep)
}

func (o *OpenAIAdapter) chatOnce(ctx context.Context, messages []adapter.Message, temperature float64, includeTemp bool) (adapter.ChatResponse, error) {
	reqBody := openAIRequest{Model: o.model, Messages: messages}
	if includeTemp {
		reqBody.Temperature = &temperature
	}

	resp, err := o.post(ctx, reqBody)
	if err != nil {
		return adapter.ChatResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return adapter.ChatResponse{}, o.wrapHTTPError(resp)
	}

	var payload struct {
		Model   string `json:"model"`
		Choices []struct {
			Message adapter.Message `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return adapter.ChatResponse{}, &domain.ProviderError{
			Kind: domain.FailureTransient, Provider: ProviderOpenAI, Model: o.model,
			Err: fmt.Errorf("decode response: %w", err),
		}
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			modelUsed := payload.Model
			if modelUsed == "" {
				modelUsed = o.model
			}
			return adapter.ChatResponse{
				Content: strings.TrimSpace(c.Message.Content),
				Model:   modelUsed,
				Usage: adapter.Usage{
					PromptTokens:     payload.Usage.PromptTokens,
					CompletionTokens: payload.Usage.CompletionTokens,
					TotalTokens:      payload.Usage.TotalTokens,
				},
			}, nil
		}
	}
	return adapter.ChatResponse{}, &domain.ProviderError{
		Kind: domain.FailureTransient, Provider: ProviderOpenAI, Model: o.model,
		Err: errors.New("no choice content"),
	}
}

// StreamChat consumes the SSE stream of the Chat Completions API. Any
// failure to open or read the stream degrades to one Chat call whose
// content arrives as a single fallback fragment.
func (o *OpenAIAdapter) StreamChat(ctx context.Context, messages []adapter.Message, temperature float64) (<-chan adapter.StreamEvent, error) {
	out := make(chan adapter.StreamEvent)
	go func() {
		defer close(out)

		reqBody := openAIRequest{Model: o.model, Messages: messages, Stream: true}
		if SupportsTemperature(ProviderOpenAI, o.model) {
			reqBody.Temperature = &temperature
		}

		resp, err := o.post(ctx, reqBody)
		if err != nil {
			o.fallback(ctx, out, messages, temperature)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			o.fallback(ctx, out, messages, temperature)
			return
		}

		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		yielded := false
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}
			var chunk struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			for _, c := range chunk.Choices {
				if c.Delta.Content == "" {
					continue
				}
				select {
				case out <- adapter.StreamEvent{Delta: c.Delta.Content}:
					yielded = true
				case <-ctx.Done():
					return
				}
			}
		}
		// Reaching here means the stream ended without [DONE]: either the
		// scanner hit a transport error or the server closed early.
		streamErr := sc.Err()
		if streamErr == nil {
			streamErr = errors.New("stream closed before completion")
		}
		if !yielded {
			// No content arrived yet; recover with a full call so the
			// caller still gets a complete response.
			o.fallback(ctx, out, messages, temperature)
			return
		}
		// Fragments already reached the caller; a fallback would repeat
		// them, so surface the truncation instead.
		select {
		case out <- adapter.StreamEvent{Err: &domain.ProviderError{
			Kind:     domain.FailureTransient,
			Provider: ProviderOpenAI,
			Model:    o.model,
			Err:      streamErr,
		}}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func (o *OpenAIAdapter) fallback(ctx context.Context, out chan<- adapter.StreamEvent, messages []adapter.Message, temperature float64) {
	metrics.IncStreamFallback(ProviderOpenAI, o.model)
	resp, err := o.Chat(ctx, messages, temperature)
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

func (o *OpenAIAdapter) post(ctx context.Context, body openAIRequest) (*http.Response, error) {
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, &domain.ProviderError{Kind: domain.FailureMalformed, Provider: ProviderOpenAI, Model: o.model, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Kind: domain.FailureTransient, Provider: ProviderOpenAI, Model: o.model, Err: err}
	}
	return resp, nil
}

// wrapHTTPError classifies a non-2xx response. The error body is decoded
// for its structured fields (message/param) so that the temperature
// degradation check does not have to rely on matching free text alone.
func (o *OpenAIAdapter) wrapHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	msg := strings.TrimSpace(string(body))
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Param   string `json:"param"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
		if apiErr.Error.Param != "" {
			msg += " (param: " + apiErr.Error.Param + ")"
		}
	}
	return &domain.ProviderError{
		Kind:       domain.ClassifyStatus(resp.StatusCode),
		Provider:   ProviderOpenAI,
		Model:      o.model,
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("openai http %d: %s", resp.StatusCode, msg),
	}
}
