package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage for a single chat call. Counters default to zero when the
// provider does not report them, so callers never see missing fields.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResponse is the normalized result of one completed chat call.
type ChatResponse struct {
	Content string
	Usage   Usage
	Model   string // model identifier actually used
}

// StreamEvent is one fragment of an incremental chat response.
// Fallback marks the degraded path: a mid-stream failure was converted
// into one full non-streaming call whose content arrives as this single
// fragment. A non-nil Err is terminal; the channel closes after it.
type StreamEvent struct {
	Delta    string
	Err      error
	Fallback bool
}

// LLMAdapter is the port for LLM chat. Implementations translate the
// uniform contract into one provider's wire protocol and normalize the
// response shape.
type LLMAdapter interface {
	// Name returns the provider identifier ("openai", "gemini", ...).
	Name() string
	// Model returns the configured model identifier.
	Model() string

	// Chat sends the ordered messages and blocks until a response or
	// final failure. Failures surface as *domain.ProviderError.
	Chat(ctx context.Context, messages []Message, temperature float64) (ChatResponse, error)

	// StreamChat delivers the response as text fragments on the returned
	// channel. The channel is closed when the stream ends. Consuming only
	// a prefix is allowed; cancel ctx to release the producer.
	StreamChat(ctx context.Context, messages []Message, temperature float64) (<-chan StreamEvent, error)
}
