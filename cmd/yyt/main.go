// File: cmd/yyt/main.go
//
// yyt is the YoYakTube CLI: summarize a video, chat about its content,
// or dump its transcript.
//
//	yyt summarize <url-or-id> [-stream] [-o file]
//	yyt chat <url-or-id>
//	yyt transcript <url-or-id> [-timestamps]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"yoyaktube/internal/config"
	"yoyaktube/internal/infra/adapters/llm"
	"yoyaktube/internal/infra/adapters/youtube"
	"yoyaktube/internal/infra/i18n"
	"yoyaktube/internal/infra/logging"
	"yoyaktube/internal/infra/web"
	"yoyaktube/internal/usecase"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "summarize", "chat", "transcript":
		os.Exit(run(cmd, args))
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `yyt - YouTube video summarizer

commands:
  summarize <url-or-id>   summarize the video's transcript (-f file|- for raw text)
  chat <url-or-id>        interactive Q&A about the video
  transcript <url-or-id>  print the transcript

common flags:
  -config path   YAML config file (default config.yaml)
  -dev           developer mode (verbose logging, no redaction)
`)
}

func run(cmd string, args []string) int {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to YAML config file")
	devMode := fs.Bool("dev", false, "developer mode")
	stream := fs.Bool("stream", false, "stream the answer incrementally")
	outPath := fs.String("o", "", "write the summary to this file")
	fromFile := fs.String("f", "", "summarize transcript text from this file ('-' for stdin)")
	timestamps := fs.Bool("timestamps", false, "include [MM:SS] labels in transcript output")
	_ = fs.Parse(args)

	target := fs.Arg(0)
	if target == "" && (cmd != "summarize" || *fromFile == "") {
		fmt.Fprintf(os.Stderr, "%s: missing video URL or ID\n", cmd)
		return 2
	}

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	log := logging.New(cfg.Log, cfg.Runtime.Dev)

	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Language)
	if err != nil {
		log.Fatal().Err(err).Msg("translator init failed")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logging.WithTraceID(ctx, uuid.NewString())

	if cfg.Admin.Port > 0 {
		admin := web.NewAdminServer(cfg.Admin.Port, log)
		go func() {
			if err := admin.Start(); err != nil {
				log.Error().Err(err).Msg("admin listener failed")
			}
		}()
		defer func() { _ = admin.Shutdown(context.Background()) }()
	}

	transcripts := youtube.NewTranscriptClient()
	if cmd == "transcript" {
		return runTranscript(ctx, cfg, tr, transcripts, target, *timestamps)
	}
	meta := youtube.NewMetadataClient(log)

	cache := llm.NewCache(log)
	model, err := cache.GetOrCreate(ctx, llm.ProviderConfig{
		Provider:   cfg.AI.Provider,
		Model:      cfg.AI.Model,
		OpenAIKey:  cfg.AI.OpenAIKey,
		GeminiKey:  cfg.AI.GeminiKey,
		OllamaHost: cfg.AI.OllamaHost,
	})
	if err != nil {
		log.Error().Err(err).Msg("adapter build failed")
		fmt.Fprintln(os.Stderr, usecase.ExplainError(err, cfg.AI.Provider, tr))
		return 1
	}
	model = llm.NewLimitedLLM(model, cfg.AI.ConcurrentLimit)
	log.Debug().
		Str("provider", cfg.AI.Provider).
		Str("model", cfg.AI.Model).
		Str("openai_key", logging.Redact(cfg.AI.OpenAIKey, cfg.Runtime.Dev)).
		Msg("llm ready")

	budget := newBudget(cfg)
	sums := usecase.NewSummarizeUseCase(model, transcripts, meta,
		cfg.Transcript.Languages, cfg.AI.Temperature, budget, log)

	switch cmd {
	case "summarize":
		if *fromFile != "" {
			return runSummarizeFile(ctx, cfg, tr, log, sums, *fromFile, *outPath)
		}
		return runSummarize(ctx, cfg, tr, log, sums, target, *stream, *outPath)
	case "chat":
		chatUC := usecase.NewChatUseCase(model, transcripts,
			cfg.Transcript.Languages, cfg.AI.Temperature, budget, log)
		return runChat(ctx, cfg, tr, log, chatUC, target)
	}
	return 2
}
