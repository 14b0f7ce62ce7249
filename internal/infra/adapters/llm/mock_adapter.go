package llm

import (
	"context"
	"unicode/utf8"

	"yoyaktube/internal/domain/ports/adapter"
)

var _ adapter.LLMAdapter = (*MockAdapter)(nil)

// MockAdapter echoes the last user turn. It lets the CLIs and tests run
// without credentials or network.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (m *MockAdapter) Name() string  { return ProviderMock }
func (m *MockAdapter) Model() string { return "mock" }

func (m *MockAdapter) Chat(ctx context.Context, messages []adapter.Message, temperature float64) (adapter.ChatResponse, error) {
	lastUser := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			lastUser = messages[i].Content
			break
		}
	}
	if len(lastUser) > 800 {
		// Back up to a rune boundary so the echo stays valid UTF-8.
		cut := 800
		for cut > 0 && !utf8.RuneStart(lastUser[cut]) {
			cut--
		}
		lastUser = lastUser[:cut]
	}
	return adapter.ChatResponse{
		Content: "[MOCK]\n" + lastUser,
		Model:   "mock",
	}, nil
}

func (m *MockAdapter) StreamChat(ctx context.Context, messages []adapter.Message, temperature float64) (<-chan adapter.StreamEvent, error) {
	out := make(chan adapter.StreamEvent, 1)
	resp, _ := m.Chat(ctx, messages, temperature)
	out <- adapter.StreamEvent{Delta: resp.Content}
	close(out)
	return out, nil
}
