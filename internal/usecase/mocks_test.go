// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"strings"

	"yoyaktube/internal/domain/model"
	"yoyaktube/internal/domain/ports/adapter"
)

type stubLLM struct {
	reply     string
	err       error
	gotMsgs   [][]adapter.Message
	gotTemps  []float64
	stream    []string
	streamErr error
}

func (s *stubLLM) Name() string  { return "mock" }
func (s *stubLLM) Model() string { return "stub-model" }

func (s *stubLLM) Chat(_ context.Context, messages []adapter.Message, temperature float64) (adapter.ChatResponse, error) {
	s.gotMsgs = append(s.gotMsgs, messages)
	s.gotTemps = append(s.gotTemps, temperature)
	if s.err != nil {
		return adapter.ChatResponse{}, s.err
	}
	return adapter.ChatResponse{
		Content: s.reply,
		Usage:   adapter.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		Model:   "stub-model",
	}, nil
}

func (s *stubLLM) StreamChat(_ context.Context, messages []adapter.Message, temperature float64) (<-chan adapter.StreamEvent, error) {
	s.gotMsgs = append(s.gotMsgs, messages)
	s.gotTemps = append(s.gotTemps, temperature)
	if s.err != nil {
		return nil, s.err
	}
	ch := make(chan adapter.StreamEvent, len(s.stream)+1)
	for _, d := range s.stream {
		ch <- adapter.StreamEvent{Delta: d}
	}
	if s.streamErr != nil {
		ch <- adapter.StreamEvent{Err: s.streamErr}
	}
	close(ch)
	return ch, nil
}

type stubTranscripts struct {
	transcript *model.Transcript
	plainText  string
	plainLang  string
	err        error
}

func (s *stubTranscripts) TimedTranscript(_ context.Context, _ string, _ []string) (*model.Transcript, error) {
	return s.transcript, s.err
}

func (s *stubTranscripts) PlainTranscript(ctx context.Context, videoID string, languages []string) (string, string, error) {
	if s.plainText != "" {
		return s.plainText, s.plainLang, nil
	}
	t, err := s.TimedTranscript(ctx, videoID, languages)
	if err != nil || t == nil {
		return "", "", err
	}
	return t.PlainText(), t.Language, nil
}

type stubMetadata struct {
	meta *model.VideoMetadata
}

func (s *stubMetadata) VideoMetadata(_ context.Context, _ string) (*model.VideoMetadata, error) {
	return s.meta, nil
}

type stubLister struct {
	videos []adapter.ChannelVideo
	err    error
}

func (s *stubLister) ListChannelVideos(_ context.Context, _ string, _ int) ([]adapter.ChannelVideo, error) {
	return s.videos, s.err
}

func koreanTranscript() *model.Transcript {
	return &model.Transcript{
		Language: "ko",
		Entries: []model.TranscriptEntry{
			{Start: 0, Text: "안녕하세요"},
			{Start: 65, Text: "오늘의 주제입니다"},
		},
	}
}

func lastUserMessage(msgs []adapter.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
