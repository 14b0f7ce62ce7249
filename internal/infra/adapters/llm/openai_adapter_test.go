package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"yoyaktube/internal/domain"
	"yoyaktube/internal/domain/ports/adapter"
)

func noSleep(context.Context, time.Duration) error { return nil }

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) (*OpenAIAdapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a, err := NewOpenAIAdapter("test-key", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewOpenAIAdapter: %v", err)
	}
	a.base = srv.URL
	a.sleep = noSleep
	return a, srv
}

func writeCompletion(w http.ResponseWriter, content string) {
	json.NewEncoder(w).Encode(map[string]any{
		"model": "gpt-4o-mini",
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 11, "completion_tokens": 7, "total_tokens": 18},
	})
}

func TestOpenAIChat_NormalizesResponse(t *testing.T) {
	var gotReq openAIRequest
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		writeCompletion(w, "  안녕하세요  ")
	})

	resp, err := a.Chat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "안녕하세요" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage != (adapter.Usage{PromptTokens: 11, CompletionTokens: 7, TotalTokens: 18}) {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", resp.Model)
	}
	if gotReq.Temperature == nil || *gotReq.Temperature != 0.2 {
		t.Errorf("temperature should be on the wire for gpt-4o-mini: %+v", gotReq.Temperature)
	}
}

func TestOpenAIChat_MissingUsageDefaultsToZero(t *testing.T) {
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ok"}},
			},
		})
	})
	resp, err := a.Chat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Usage != (adapter.Usage{}) {
		t.Errorf("missing usage must default to zeros, got %+v", resp.Usage)
	}
}

func TestOpenAIChat_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "upstream exploded", http.StatusBadGateway)
			return
		}
		writeCompletion(w, "third time lucky")
	})

	resp, err := a.Chat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatalf("Chat after retries: %v", err)
	}
	if resp.Content != "third time lucky" {
		t.Errorf("content = %q", resp.Content)
	}
	if calls.Load() != 3 {
		t.Errorf("want 3 attempts, got %d", calls.Load())
	}
}

func TestOpenAIChat_TransientExhaustsBudget(t *testing.T) {
	var calls atomic.Int32
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "still broken", http.StatusInternalServerError)
	})

	_, err := a.Chat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("want ProviderError, got %v", err)
	}
	if perr.Kind != domain.FailureTransient || perr.StatusCode != 500 {
		t.Errorf("kind=%v status=%d", perr.Kind, perr.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("retry budget is 3 attempts total, got %d", calls.Load())
	}
}

func TestOpenAIChat_AuthFailureNeverRetries(t *testing.T) {
	var calls atomic.Int32
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	})

	_, err := a.Chat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	var perr *domain.ProviderError
	if !errors.As(err, &perr) || perr.Kind != domain.FailureAuth {
		t.Fatalf("want auth ProviderError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("auth failure must not retry, got %d calls", calls.Load())
	}
}

func TestOpenAIChat_RateLimitRetries(t *testing.T) {
	var calls atomic.Int32
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error":{"message":"rate limit exceeded"}}`, http.StatusTooManyRequests)
			return
		}
		writeCompletion(w, "after 429")
	})
	resp, err := a.Chat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil || resp.Content != "after 429" {
		t.Fatalf("resp=%+v err=%v", resp, err)
	}
}

func TestOpenAIChat_TemperatureRejectedRetriedOnceWithoutIt(t *testing.T) {
	var calls atomic.Int32
	var sawTemp []bool
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req openAIRequest
		json.NewDecoder(r.Body).Decode(&req)
		sawTemp = append(sawTemp, req.Temperature != nil)
		if req.Temperature != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"Unsupported value: 'temperature' is not supported with this model.","param":"temperature"}}`)
			return
		}
		writeCompletion(w, "degraded ok")
	})

	resp, err := a.Chat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "degraded ok" {
		t.Errorf("content = %q", resp.Content)
	}
	if calls.Load() != 2 {
		t.Fatalf("want exactly one immediate degradation retry, got %d calls", calls.Load())
	}
	if !sawTemp[0] || sawTemp[1] {
		t.Errorf("first attempt with temperature, second without: %v", sawTemp)
	}
}

func TestOpenAIChat_CapabilityTableOmitsTemperatureUpfront(t *testing.T) {
	var calls atomic.Int32
	var hadTemp bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req openAIRequest
		json.NewDecoder(r.Body).Decode(&req)
		hadTemp = req.Temperature != nil
		writeCompletion(w, "ok")
	}))
	defer srv.Close()

	a, err := NewOpenAIAdapter("test-key", "gpt-5-mini")
	if err != nil {
		t.Fatal(err)
	}
	a.base = srv.URL
	a.sleep = noSleep

	if _, err := a.Chat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("no failed attempt needed, got %d calls", calls.Load())
	}
	if hadTemp {
		t.Error("gpt-5* must omit temperature on the very first request")
	}
}

func TestOpenAIChat_MalformedRequestNoRetry(t *testing.T) {
	var calls atomic.Int32
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":{"message":"model not found"}}`, http.StatusNotFound)
	})
	_, err := a.Chat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	var perr *domain.ProviderError
	if !errors.As(err, &perr) || perr.Kind != domain.FailureMalformed {
		t.Fatalf("want malformed ProviderError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("malformed request must not retry, got %d", calls.Load())
	}
}

func TestOpenAIStream_DeliversDeltas(t *testing.T) {
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		var req openAIRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.Stream {
			t.Error("expected streaming request")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	ch, err := a.StreamChat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	var got string
	for ev := range ch {
		if ev.Err != nil {
			t.Fatalf("stream error: %v", ev.Err)
		}
		if ev.Fallback {
			t.Error("clean stream must not be marked as fallback")
		}
		got += ev.Delta
	}
	if got != "hello" {
		t.Errorf("assembled = %q", got)
	}
}

func TestOpenAIStream_FailureFallsBackToFullResponse(t *testing.T) {
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		var req openAIRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			// Streaming endpoint is down; the fallback full call works.
			http.Error(w, "no streaming today", http.StatusServiceUnavailable)
			return
		}
		writeCompletion(w, "complete fallback content")
	})

	ch, err := a.StreamChat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	var events []adapter.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	if len(events) != 1 {
		t.Fatalf("want exactly one fallback fragment, got %d", len(events))
	}
	if events[0].Err != nil {
		t.Fatalf("fallback is not an error: %v", events[0].Err)
	}
	if !events[0].Fallback || events[0].Delta != "complete fallback content" {
		t.Errorf("event = %+v", events[0])
	}
}

func TestOpenAIStream_PrefixConsumptionAllowed(t *testing.T) {
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 50; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := a.StreamChat(ctx, []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	<-ch // take one fragment, then walk away
	cancel()
	// producer must terminate and close the channel
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream goroutine did not exit after cancellation")
		}
	}
}

func TestOpenAIStream_TruncationAfterDeltaSurfacesError(t *testing.T) {
	var calls atomic.Int32
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"부분 응답\"}}]}\n\n")
		// connection closes without [DONE]
	})

	ch, err := a.StreamChat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	var events []adapter.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("want delta then terminal error, got %+v", events)
	}
	if events[0].Delta != "부분 응답" {
		t.Errorf("delta = %q", events[0].Delta)
	}
	var perr *domain.ProviderError
	if !errors.As(events[1].Err, &perr) || perr.Kind != domain.FailureTransient {
		t.Errorf("terminal event = %+v", events[1])
	}
	if calls.Load() != 1 {
		t.Errorf("truncated stream must not fall back, got %d calls", calls.Load())
	}
}

func TestOpenAIStream_EmptyBodyFallsBack(t *testing.T) {
	a, _ := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		var req openAIRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			w.Header().Set("Content-Type", "text/event-stream")
			return
		}
		writeCompletion(w, "전체 응답")
	})

	ch, err := a.StreamChat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	var events []adapter.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	if len(events) != 1 || !events[0].Fallback || events[0].Delta != "전체 응답" {
		t.Errorf("want one fallback fragment, got %+v", events)
	}
}
