// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"yoyaktube/internal/domain"
	"yoyaktube/internal/domain/model"
	"yoyaktube/internal/domain/ports/adapter"
	"yoyaktube/internal/domain/prompt"
	"yoyaktube/internal/infra/adapters/youtube"
	"yoyaktube/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

// recentTurnLimit bounds how much conversation history goes to the model
// on each question. The transcript-bearing system turn is always kept.
const recentTurnLimit = 15

type ChatUseCase interface {
	// StartConversation fetches the video's transcript and opens a
	// conversation grounded in it. The conversation lives in memory only.
	StartConversation(ctx context.Context, videoURL string) (*model.Conversation, error)

	// Ask appends the question, calls the model with recent history, and
	// records plus returns the answer.
	Ask(ctx context.Context, conversationID, question string) (string, error)

	// AskStream is Ask with incremental delivery. The answer is recorded
	// into the conversation once the stream has been fully drained.
	AskStream(ctx context.Context, conversationID, question string) (<-chan adapter.StreamEvent, error)

	// Conversation returns a previously started conversation, or nil.
	Conversation(id string) *model.Conversation
}

type chatUC struct {
	llm         adapter.LLMAdapter
	transcripts adapter.TranscriptProvider
	languages   []string
	temperature float64
	budget      prompt.Budget
	log         *zerolog.Logger

	mu    sync.Mutex
	convs map[string]*model.Conversation
}

func NewChatUseCase(
	llm adapter.LLMAdapter,
	transcripts adapter.TranscriptProvider,
	languages []string,
	temperature float64,
	budget prompt.Budget,
	log *zerolog.Logger,
) *chatUC {
	return &chatUC{
		llm:         llm,
		transcripts: transcripts,
		languages:   languages,
		temperature: temperature,
		budget:      budget,
		log:         log,
		convs:       make(map[string]*model.Conversation),
	}
}

func (c *chatUC) StartConversation(ctx context.Context, videoURL string) (*model.Conversation, error) {
	videoID := youtube.ExtractVideoID(videoURL)
	if videoID == "" {
		return nil, domain.ErrInvalidVideoURL
	}

	transcript, err := c.transcripts.TimedTranscript(ctx, videoID, c.languages)
	if err != nil {
		return nil, err
	}
	if transcript == nil || len(transcript.Entries) == 0 {
		return nil, domain.ErrNoTranscript
	}

	ctxBlock := prompt.BuildSummaryContext(prompt.ContextParams{
		SourceURL: youtube.WatchURL(videoID),
		Entries:   c.budget.FitEntries(transcript.Entries),
	})

	conv := model.NewConversation(uuid.NewString(), c.llm.Model())
	conv.AddTurn("system", prompt.ChatSystemPrompt(ctxBlock))

	c.mu.Lock()
	c.convs[conv.ID] = conv
	c.mu.Unlock()

	if c.log != nil {
		c.log.Debug().Str("session_id", conv.ID).Str("video_id", videoID).Msg("conversation started")
	}
	return conv, nil
}

func (c *chatUC) Ask(ctx context.Context, conversationID, question string) (string, error) {
	conv, messages, err := c.stageQuestion(conversationID, question)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := c.llm.Chat(ctx, messages, c.temperature)
	latency := int(time.Since(start) / time.Millisecond)
	metrics.ObserveChatUsage(c.llm.Name(), c.llm.Model(),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens,
		latency, err == nil)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	conv.AddTurn("assistant", resp.Content)
	c.mu.Unlock()
	return resp.Content, nil
}

func (c *chatUC) AskStream(ctx context.Context, conversationID, question string) (<-chan adapter.StreamEvent, error) {
	conv, messages, err := c.stageQuestion(conversationID, question)
	if err != nil {
		return nil, err
	}

	events, err := c.llm.StreamChat(ctx, messages, c.temperature)
	if err != nil {
		return nil, err
	}

	// Tee the stream so the assembled answer lands in the history once
	// the producer finishes.
	out := make(chan adapter.StreamEvent)
	go func() {
		defer close(out)
		var sb strings.Builder
		truncated := false
		for ev := range events {
			if ev.Err != nil {
				truncated = true
			} else {
				sb.WriteString(ev.Delta)
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
		if truncated {
			// A terminal error means the accumulated deltas are only a
			// prefix of the answer; keep it out of the history.
			return
		}
		if answer := sb.String(); answer != "" {
			c.mu.Lock()
			conv.AddTurn("assistant", answer)
			c.mu.Unlock()
		}
	}()
	return out, nil
}

func (c *chatUC) Conversation(id string) *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.convs[id]
}

// stageQuestion validates the question, records it, and renders the
// message window to send.
func (c *chatUC) stageQuestion(conversationID, question string) (*model.Conversation, []adapter.Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil, domain.ErrInvalidArgument
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.convs[conversationID]
	if !ok {
		return nil, nil, domain.ErrInvalidArgument
	}
	conv.AddTurn("user", question)

	turns := conv.RecentTurns(recentTurnLimit)
	messages := make([]adapter.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, adapter.Message{Role: t.Role, Content: t.Content})
	}
	return conv, messages, nil
}
