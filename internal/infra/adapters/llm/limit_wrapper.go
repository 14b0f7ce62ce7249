package llm

import (
	"context"

	"yoyaktube/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.LLMAdapter = (*limitedLLM)(nil)

// limitedLLM caps concurrent provider calls with a semaphore channel.
// Useful when the channel scanner fans out many summaries at once.
type limitedLLM struct {
	inner adapter.LLMAdapter
	sem   chan struct{}
}

func NewLimitedLLM(inner adapter.LLMAdapter, maxConcurrent int) adapter.LLMAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedLLM{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedLLM) Name() string  { return l.inner.Name() }
func (l *limitedLLM) Model() string { return l.inner.Model() }

func (l *limitedLLM) Chat(ctx context.Context, messages []adapter.Message, temperature float64) (adapter.ChatResponse, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return adapter.ChatResponse{}, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Chat(ctx, messages, temperature)
}

func (l *limitedLLM) StreamChat(ctx context.Context, messages []adapter.Message, temperature float64) (<-chan adapter.StreamEvent, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	inner, err := l.inner.StreamChat(ctx, messages, temperature)
	if err != nil {
		<-l.sem
		return nil, err
	}
	out := make(chan adapter.StreamEvent)
	go func() {
		defer func() { <-l.sem }()
		defer close(out)
		for ev := range inner {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
