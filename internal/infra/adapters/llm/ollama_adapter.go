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
var _ adapter.LLMAdapter = (*OllamaAdapter)(nil)

// OllamaAdapter implements adapter.LLMAdapter against a local Ollama
// server's /api/chat endpoint. No authentication; the host URL is the
// credential.
type OllamaAdapter struct {
	host   string // e.g., http://localhost:11434
	model  string
	client *http.Client
	sleep  func(context.Context, time.Duration) error
}

func NewOllamaAdapter(host, model string) (*OllamaAdapter, error) {
	if host == "" {
		return nil, fmt.Errorf("ollama: %w", domain.ErrMissingCredentials)
	}
	if model == "" {
		return nil, fmt.Errorf("ollama: model name required: %w", domain.ErrInvalidArgument)
	}
	return &OllamaAdapter{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (a *OllamaAdapter) Name() string  { return ProviderOllama }
func (a *OllamaAdapter) Model() string { return a.model }

type ollamaRequest struct {
	Model    string            `json:"model"`
	Messages []adapter.Message `json:"messages"`
	Stream   bool              `json:"stream"`
	Options  map[string]any    `json:"options,omitempty"`
}

func (a *OllamaAdapter) Chat(ctx context.Context, messages []adapter.Message, temperature float64) (adapter.ChatResponse, error) {
	include := SupportsTemperature(ProviderOllama, a.model)
	return chatWithRetry(ctx, ProviderOllama, a.model, include,
		func(ctx context.Context, includeTemp bool) (adapter.ChatResponse, error) {
			return a.chatOnce(ctx, messages, temperature, includeTemp)
		}, a.sleep)
}

func (a *OllamaAdapter) chatOnce(ctx context.Context, messages []adapter.Message, temperature float64, includeTemp bool) (adapter.ChatResponse, error) {
	reqBody := ollamaRequest{Model: a.model, Messages: messages, Stream: false}
	if includeTemp {
		reqBody.Options = map[string]any{"temperature": temperature}
	}

	resp, err := a.post(ctx, reqBody)
	if err != nil {
		return adapter.ChatResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return adapter.ChatResponse{}, a.wrapHTTPError(resp)
	}

	var payload struct {
		Message         adapter.Message `json:"message"`
		PromptEvalCount int             `json:"prompt_eval_count"`
		EvalCount       int             `json:"eval_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return adapter.ChatResponse{}, &domain.ProviderError{
			Kind: domain.FailureTransient, Provider: ProviderOllama, Model: a.model,
			Err: fmt.Errorf("decode response: %w", err),
		}
	}
	content := strings.TrimSpace(payload.Message.Content)
	if content == "" {
		return adapter.ChatResponse{}, &domain.ProviderError{
			Kind: domain.FailureTransient, Provider: ProviderOllama, Model: a.model,
			Err: errors.New("empty message content"),
		}
	}
	return adapter.ChatResponse{
		Content: content,
		Model:   a.model,
		Usage: adapter.Usage{
			PromptTokens:     payload.PromptEvalCount,
			CompletionTokens: payload.EvalCount,
			TotalTokens:      payload.PromptEvalCount + payload.EvalCount,
		},
	}, nil
}

// StreamChat reads Ollama's NDJSON stream: one JSON object per line with
// message.content deltas until "done". Mid-stream failures degrade to a
// single full call.
func (a *OllamaAdapter) StreamChat(ctx context.Context, messages []adapter.Message, temperature float64) (<-chan adapter.StreamEvent, error) {
	out := make(chan adapter.StreamEvent)
	go func() {
		defer close(out)

		reqBody := ollamaRequest{Model: a.model, Messages: messages, Stream: true}
		if SupportsTemperature(ProviderOllama, a.model) {
			reqBody.Options = map[string]any{"temperature": temperature}
		}

		resp, err := a.post(ctx, reqBody)
		if err != nil {
			a.fallback(ctx, out, messages, temperature)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			a.fallback(ctx, out, messages, temperature)
			return
		}

		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		yielded := false
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			var chunk struct {
				Message adapter.Message `json:"message"`
				Done    bool            `json:"done"`
			}
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue
			}
			if chunk.Message.Content != "" {
				select {
				case out <- adapter.StreamEvent{Delta: chunk.Message.Content}:
					yielded = true
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		// The stream ended without a done marker: transport error or an
		// early close on the server side.
		streamErr := sc.Err()
		if streamErr == nil {
			streamErr = errors.New("stream closed before completion")
		}
		if !yielded {
			a.fallback(ctx, out, messages, temperature)
			return
		}
		// Fragments already reached the caller; surface the truncation
		// rather than repeating them through a fallback call.
		select {
		case out <- adapter.StreamEvent{Err: &domain.ProviderError{
			Kind:     domain.FailureTransient,
			Provider: ProviderOllama,
			Model:    a.model,
			Err:      streamErr,
		}}:
		case <-ctx.Done():
		}
	}()
	return out, nil
}

func (a *OllamaAdapter) fallback(ctx context.Context, out chan<- adapter.StreamEvent, messages []adapter.Message, temperature float64) {
	metrics.IncStreamFallback(ProviderOllama, a.model)
	resp, err := a.Chat(ctx, messages, temperature)
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

func (a *OllamaAdapter) post(ctx context.Context, body ollamaRequest) (*http.Response, error) {
	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return nil, &domain.ProviderError{Kind: domain.FailureMalformed, Provider: ProviderOllama, Model: a.model, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Kind: domain.FailureTransient, Provider: ProviderOllama, Model: a.model, Err: err}
	}
	return resp, nil
}

func (a *OllamaAdapter) wrapHTTPError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	msg := strings.TrimSpace(string(body))
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		msg = apiErr.Error
	}
	return &domain.ProviderError{
		Kind:       domain.ClassifyStatus(resp.StatusCode),
		Provider:   ProviderOllama,
		Model:      a.model,
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("ollama http %d: %s", resp.StatusCode, msg),
	}
}
