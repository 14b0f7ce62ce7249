package llm

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"yoyaktube/internal/domain/ports/adapter"
)

func TestMockChat_EchoesLastUserTurn(t *testing.T) {
	m := NewMockAdapter()
	resp, err := m.Chat(context.Background(), []adapter.Message{
		{Role: "system", Content: "시스템"},
		{Role: "user", Content: "첫 질문"},
		{Role: "assistant", Content: "첫 답변"},
		{Role: "user", Content: "두번째 질문"},
	}, 0.2)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "[MOCK]\n두번째 질문" {
		t.Errorf("content = %q", resp.Content)
	}
}

func TestMockChat_TruncatesOnRuneBoundary(t *testing.T) {
	m := NewMockAdapter()
	// 3-byte runes, so the 800-byte cap lands inside a rune.
	long := strings.Repeat("가", 300)
	resp, err := m.Chat(context.Background(), []adapter.Message{{Role: "user", Content: long}}, 0.2)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	echoed := strings.TrimPrefix(resp.Content, "[MOCK]\n")
	if !utf8.ValidString(echoed) {
		t.Errorf("echo is not valid UTF-8: %q", echoed)
	}
	if len(echoed) != 266*3 {
		t.Errorf("echo = %d bytes, want 798 (last whole rune under the cap)", len(echoed))
	}
	if !strings.HasPrefix(long, echoed) {
		t.Errorf("echo is not a prefix of the question")
	}
}
