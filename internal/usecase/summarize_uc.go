// File: internal/usecase/summarize_uc.go
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"yoyaktube/internal/domain"
	"yoyaktube/internal/domain/model"
	"yoyaktube/internal/domain/ports/adapter"
	"yoyaktube/internal/domain/prompt"
	"yoyaktube/internal/infra/adapters/youtube"
	"yoyaktube/internal/infra/logging"
	"yoyaktube/internal/infra/metrics"
)

// Compile-time check
var _ SummarizeUseCase = (*summarizeUC)(nil)

// Summary is the result of summarizing one video.
type Summary struct {
	VideoID  string
	Content  string
	Model    string
	Usage    adapter.Usage
	Metadata *model.VideoMetadata // nil when extraction failed
	Language string               // transcript language actually used
}

type SummarizeUseCase interface {
	// Summarize fetches the transcript for a video URL (or bare ID) and
	// produces a summary in one blocking call.
	Summarize(ctx context.Context, videoURL string) (*Summary, error)

	// SummarizeStream is Summarize with incremental delivery. The summary
	// text arrives as fragments on the channel; metadata resolution and
	// prompt assembly happen before the channel is returned.
	SummarizeStream(ctx context.Context, videoURL string) (<-chan adapter.StreamEvent, error)

	// SummarizeText summarizes caller-provided transcript text directly,
	// bypassing transcript fetch. Used when the captions came from a file.
	SummarizeText(ctx context.Context, text string) (*Summary, error)
}

type summarizeUC struct {
	llm         adapter.LLMAdapter
	transcripts adapter.TranscriptProvider
	meta        adapter.MetadataProvider
	languages   []string
	temperature float64
	budget      prompt.Budget
	log         *zerolog.Logger
}

func NewSummarizeUseCase(
	llm adapter.LLMAdapter,
	transcripts adapter.TranscriptProvider,
	meta adapter.MetadataProvider,
	languages []string,
	temperature float64,
	budget prompt.Budget,
	log *zerolog.Logger,
) *summarizeUC {
	return &summarizeUC{
		llm:         llm,
		transcripts: transcripts,
		meta:        meta,
		languages:   languages,
		temperature: temperature,
		budget:      budget,
		log:         log,
	}
}

func (s *summarizeUC) Summarize(ctx context.Context, videoURL string) (*Summary, error) {
	if s.log != nil {
		defer logging.TraceDuration(s.log, "summarize")()
	}
	videoID, messages, meta, lang, err := s.prepare(ctx, videoURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.llm.Chat(ctx, messages, s.temperature)
	latency := int(time.Since(start) / time.Millisecond)
	metrics.ObserveChatUsage(s.llm.Name(), s.llm.Model(),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens,
		latency, err == nil)
	if err != nil {
		return nil, err
	}

	return &Summary{
		VideoID:  videoID,
		Content:  resp.Content,
		Model:    resp.Model,
		Usage:    resp.Usage,
		Metadata: meta,
		Language: lang,
	}, nil
}

func (s *summarizeUC) SummarizeStream(ctx context.Context, videoURL string) (<-chan adapter.StreamEvent, error) {
	_, messages, _, _, err := s.prepare(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	return s.llm.StreamChat(ctx, messages, s.temperature)
}

func (s *summarizeUC) SummarizeText(ctx context.Context, text string) (*Summary, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrNoTranscript
	}
	ctxBlock := prompt.BuildSummaryContext(prompt.ContextParams{
		PlainTranscript: s.budget.FitText(text),
	})
	messages := []adapter.Message{{Role: "user", Content: prompt.SummaryPrompt(ctxBlock)}}

	start := time.Now()
	resp, err := s.llm.Chat(ctx, messages, s.temperature)
	latency := int(time.Since(start) / time.Millisecond)
	metrics.ObserveChatUsage(s.llm.Name(), s.llm.Model(),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens,
		latency, err == nil)
	if err != nil {
		return nil, err
	}
	return &Summary{Content: resp.Content, Model: resp.Model, Usage: resp.Usage}, nil
}

// prepare resolves the video, fetches transcript and metadata, and
// assembles the summary prompt messages.
func (s *summarizeUC) prepare(ctx context.Context, videoURL string) (videoID string, messages []adapter.Message, meta *model.VideoMetadata, lang string, err error) {
	videoID = youtube.ExtractVideoID(videoURL)
	if videoID == "" {
		return "", nil, nil, "", domain.ErrInvalidVideoURL
	}

	transcript, err := s.transcripts.TimedTranscript(ctx, videoID, s.languages)
	if err != nil {
		return "", nil, nil, "", err
	}

	params := prompt.ContextParams{SourceURL: youtube.WatchURL(videoID)}
	if transcript != nil && len(transcript.Entries) > 0 {
		lang = transcript.Language
		params.Entries = s.budget.FitEntries(transcript.Entries)
	} else {
		// Some tracks come back without cue timing; fall back to the
		// plain text variant before giving up.
		text, plainLang, perr := s.transcripts.PlainTranscript(ctx, videoID, s.languages)
		if perr != nil {
			return "", nil, nil, "", perr
		}
		if strings.TrimSpace(text) == "" {
			return "", nil, nil, "", domain.ErrNoTranscript
		}
		lang = plainLang
		params.PlainTranscript = s.budget.FitText(text)
	}

	if s.meta != nil {
		// Metadata is optional; a failed extraction degrades to a context
		// block without the video info section.
		meta, _ = s.meta.VideoMetadata(ctx, videoID)
	}
	if meta != nil {
		params.DurationSec = meta.Duration
		params.UploadDate = meta.UploadDate
	}
	ctxBlock := prompt.BuildSummaryContext(params)

	if s.log != nil {
		s.log.Debug().Str("video_id", videoID).Str("lang", lang).
			Int("entries", len(params.Entries)).Msg("summary context built")
	}

	messages = []adapter.Message{{Role: "user", Content: prompt.SummaryPrompt(ctxBlock)}}
	return videoID, messages, meta, lang, nil
}
