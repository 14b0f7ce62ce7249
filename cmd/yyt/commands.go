// File: cmd/yyt/commands.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"yoyaktube/internal/config"
	"yoyaktube/internal/domain"
	"yoyaktube/internal/domain/ports/adapter"
	"yoyaktube/internal/domain/prompt"
	"yoyaktube/internal/infra/i18n"
	"yoyaktube/internal/infra/adapters/youtube"
	"yoyaktube/internal/infra/logging"
	"yoyaktube/internal/usecase"
)

func newBudget(cfg *config.Config) prompt.Budget {
	return prompt.NewBudget(cfg.AI.MaxContextTokens, cfg.AI.Model)
}

func runSummarize(
	ctx context.Context,
	cfg *config.Config,
	tr *i18n.Translator,
	log *zerolog.Logger,
	sums usecase.SummarizeUseCase,
	target string,
	stream bool,
	outPath string,
) int {
	if id := youtube.ExtractVideoID(target); id != "" {
		ctx = logging.WithVideoID(ctx, id)
		log = logging.With(ctx, log)
	}

	if stream {
		events, err := sums.SummarizeStream(ctx, target)
		if err != nil {
			log.Error().Err(err).Msg("summarize failed")
			fmt.Fprintln(os.Stderr, usecase.ExplainError(err, cfg.AI.Provider, tr))
			return 1
		}
		content, degraded, serr := collectStream(events, os.Stdout)
		fmt.Println()
		if serr != nil {
			log.Error().Err(serr).Msg("stream failed")
			fmt.Fprintln(os.Stderr, usecase.ExplainError(serr, cfg.AI.Provider, tr))
			return 1
		}
		if degraded {
			fmt.Fprintln(os.Stderr, tr.T("stream_degraded"))
		}
		// With -o the deltas still stream to stdout and the assembled
		// summary lands in the file afterwards.
		if outPath != "" {
			if err := os.WriteFile(outPath, []byte(content+"\n"), 0o644); err != nil {
				log.Error().Err(err).Str("path", outPath).Msg("write failed")
				return 1
			}
			fmt.Println(tr.T("summary_saved", outPath))
		}
		return 0
	}

	sum, err := sums.Summarize(ctx, target)
	if err != nil {
		log.Error().Err(err).Msg("summarize failed")
		fmt.Fprintln(os.Stderr, usecase.ExplainError(err, cfg.AI.Provider, tr))
		return 1
	}

	log.Info().Str("video_id", sum.VideoID).Str("model", sum.Model).
		Int("tokens_total", sum.Usage.TotalTokens).Msg("summary complete")

	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(sum.Content+"\n"), 0o644); err != nil {
			log.Error().Err(err).Str("path", outPath).Msg("write failed")
			return 1
		}
		fmt.Println(tr.T("summary_saved", outPath))
		return 0
	}
	fmt.Println(sum.Content)
	return 0
}

// runSummarizeFile summarizes transcript text read from a file or stdin
// ("-"), bypassing transcript fetch entirely.
func runSummarizeFile(
	ctx context.Context,
	cfg *config.Config,
	tr *i18n.Translator,
	log *zerolog.Logger,
	sums usecase.SummarizeUseCase,
	path string,
	outPath string,
) int {
	var (
		text []byte
		err  error
	)
	if path == "-" {
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(path)
	}
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("read transcript failed")
		return 1
	}

	sum, err := sums.SummarizeText(ctx, string(text))
	if err != nil {
		log.Error().Err(err).Msg("summarize failed")
		fmt.Fprintln(os.Stderr, usecase.ExplainError(err, cfg.AI.Provider, tr))
		return 1
	}
	if outPath != "" {
		if err := os.WriteFile(outPath, []byte(sum.Content+"\n"), 0o644); err != nil {
			log.Error().Err(err).Str("path", outPath).Msg("write failed")
			return 1
		}
		fmt.Println(tr.T("summary_saved", outPath))
		return 0
	}
	fmt.Println(sum.Content)
	return 0
}

func runChat(
	ctx context.Context,
	cfg *config.Config,
	tr *i18n.Translator,
	log *zerolog.Logger,
	chat usecase.ChatUseCase,
	target string,
) int {
	if id := youtube.ExtractVideoID(target); id != "" {
		ctx = logging.WithVideoID(ctx, id)
	}
	conv, err := chat.StartConversation(ctx, target)
	if err != nil {
		log.Error().Err(err).Msg("conversation start failed")
		fmt.Fprintln(os.Stderr, usecase.ExplainError(err, cfg.AI.Provider, tr))
		return 1
	}
	ctx = logging.WithSessID(ctx, conv.ID)
	log = logging.With(ctx, log)

	fmt.Println(tr.T("chat_welcome"))
	fmt.Println(tr.T("chat_instructions"))

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			fmt.Println()
			return 0
		}
		question := strings.TrimSpace(in.Text())
		switch question {
		case "":
			continue
		case "quit", "exit":
			return 0
		}

		events, err := chat.AskStream(ctx, conv.ID, question)
		if err != nil {
			log.Error().Err(err).Msg("ask failed")
			fmt.Fprintln(os.Stderr, usecase.ExplainError(err, cfg.AI.Provider, tr))
			continue
		}
		if !drainStream(events, cfg, tr, log) {
			continue
		}
		fmt.Println()
	}
}

// drainStream prints fragments as they arrive and reports whether the
// stream completed without a terminal error.
// collectStream prints deltas to w as they arrive and returns the
// assembled content. A non-nil error means the stream ended truncated
// and content holds only the prefix that was printed.
func collectStream(events <-chan adapter.StreamEvent, w io.Writer) (content string, degraded bool, err error) {
	var sb strings.Builder
	for ev := range events {
		if ev.Err != nil {
			return sb.String(), degraded, ev.Err
		}
		if ev.Fallback {
			degraded = true
		}
		sb.WriteString(ev.Delta)
		fmt.Fprint(w, ev.Delta)
	}
	return sb.String(), degraded, nil
}

func drainStream(events <-chan adapter.StreamEvent, cfg *config.Config, tr *i18n.Translator, log *zerolog.Logger) bool {
	degraded := false
	for ev := range events {
		if ev.Err != nil {
			fmt.Fprintln(os.Stderr)
			log.Error().Err(ev.Err).Msg("stream failed")
			fmt.Fprintln(os.Stderr, usecase.ExplainError(ev.Err, cfg.AI.Provider, tr))
			return false
		}
		if ev.Fallback {
			degraded = true
		}
		fmt.Print(ev.Delta)
	}
	if degraded {
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, tr.T("stream_degraded"))
	}
	return true
}

func runTranscript(
	ctx context.Context,
	cfg *config.Config,
	tr *i18n.Translator,
	transcripts adapter.TranscriptProvider,
	target string,
	timestamps bool,
) int {
	videoID := youtube.ExtractVideoID(target)
	if videoID == "" {
		fmt.Fprintln(os.Stderr, usecase.ExplainError(domain.ErrInvalidVideoURL, cfg.AI.Provider, tr))
		return 1
	}

	transcript, err := transcripts.TimedTranscript(ctx, videoID, cfg.Transcript.Languages)
	if err != nil {
		fmt.Fprintln(os.Stderr, usecase.ExplainError(err, cfg.AI.Provider, tr))
		return 1
	}
	if transcript == nil || len(transcript.Entries) == 0 {
		fmt.Fprintln(os.Stderr, tr.T("no_transcript"))
		return 1
	}

	if timestamps {
		for _, e := range transcript.Entries {
			fmt.Printf("%s %s\n", prompt.TimestampLabel(e.Start), e.Text)
		}
		return 0
	}
	fmt.Println(transcript.PlainText())
	return 0
}
