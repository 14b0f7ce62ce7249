package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"yoyaktube/internal/domain"
	"yoyaktube/internal/domain/ports/adapter"
)

func newTestOllama(t *testing.T, handler http.HandlerFunc) *OllamaAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a, err := NewOllamaAdapter(srv.URL, "llama3")
	if err != nil {
		t.Fatal(err)
	}
	a.sleep = noSleep
	return a
}

func TestOllamaChat_NormalizesResponse(t *testing.T) {
	a := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("Chat must request stream=false")
		}
		if req.Options["temperature"] == nil {
			t.Error("temperature expected in options")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"role": "assistant", "content": "로컬 응답"},
			"prompt_eval_count": 5,
			"eval_count":        3,
			"done":              true,
		})
	})

	resp, err := a.Chat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "로컬 응답" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage != (adapter.Usage{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 8}) {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestOllamaStream_NDJSONDeltas(t *testing.T) {
	a := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"하나"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":" 둘"},"done":false}`)
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	})

	ch, err := a.StreamChat(context.Background(), []adapter.Message{{Role: "user", Content: "count"}}, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	var got string
	for ev := range ch {
		if ev.Err != nil {
			t.Fatalf("stream error: %v", ev.Err)
		}
		got += ev.Delta
	}
	if got != "하나 둘" {
		t.Errorf("assembled = %q", got)
	}
}

func TestOllamaStream_ErrorFallsBack(t *testing.T) {
	var streamCalls int
	a := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			streamCalls++
			http.Error(w, `{"error":"stream broke"}`, http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "전체 응답"},
			"done":    true,
		})
	})

	ch, err := a.StreamChat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	var events []adapter.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	if len(events) != 1 || !events[0].Fallback || events[0].Delta != "전체 응답" {
		t.Errorf("want one fallback fragment with full content, got %+v", events)
	}
	if streamCalls != 1 {
		t.Errorf("stream endpoint hit %d times", streamCalls)
	}
}

func TestOllamaStream_TruncationAfterDeltaSurfacesError(t *testing.T) {
	var calls int
	a := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"부분"},"done":false}`)
		// connection closes without a done marker
	})

	ch, err := a.StreamChat(context.Background(), []adapter.Message{{Role: "user", Content: "hi"}}, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	var events []adapter.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("want delta then terminal error, got %+v", events)
	}
	if events[0].Delta != "부분" {
		t.Errorf("delta = %q", events[0].Delta)
	}
	var perr *domain.ProviderError
	if !errors.As(events[1].Err, &perr) || perr.Kind != domain.FailureTransient {
		t.Errorf("terminal event = %+v", events[1])
	}
	if calls != 1 {
		t.Errorf("truncated stream must not fall back, got %d calls", calls)
	}
}
