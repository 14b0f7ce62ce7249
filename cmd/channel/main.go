// File: cmd/channel/main.go
//
// channel scans a YouTube channel's recent uploads and summarizes every
// video inside a date range:
//
//	channel -period 7 -limit 30 https://www.youtube.com/@somechannel
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"yoyaktube/internal/config"
	"yoyaktube/internal/domain/prompt"
	"yoyaktube/internal/infra/adapters/llm"
	"yoyaktube/internal/infra/adapters/youtube"
	"yoyaktube/internal/infra/i18n"
	"yoyaktube/internal/infra/logging"
	"yoyaktube/internal/infra/web"
	"yoyaktube/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode")
	period := flag.String("period", "today", "today|yesterday|<days>|YYYYMMDD|YYYYMMDD-YYYYMMDD")
	limit := flag.Int("limit", 30, "max uploads to inspect")
	infoOnly := flag.Bool("info-only", false, "list matching videos without summarizing")
	outDir := flag.String("out", "", "write one summary file per video into this directory")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: channel [flags] <channel-url>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	channelURL := flag.Arg(0)

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log, cfg.Runtime.Dev)

	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Language)
	if err != nil {
		log.Fatal().Err(err).Msg("translator init failed")
	}

	r, err := usecase.ParseDateRange(*period, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "period: %v\n", err)
		os.Exit(2)
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

	meta := youtube.NewMetadataClient(log)

	if *infoOnly {
		videos, err := meta.ListChannelVideos(ctx, channelURL, *limit)
		if err != nil {
			log.Error().Err(err).Msg("channel listing failed")
			os.Exit(1)
		}
		found := 0
		for _, v := range videos {
			if !r.Contains(v.UploadDate) {
				continue
			}
			found++
			fmt.Printf("%s\t%s\t%s\n", v.ID, v.UploadDate, v.Title)
		}
		if found == 0 {
			fmt.Println(tr.T("no_videos_in_range"))
		}
		return
	}

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
		os.Exit(1)
	}
	model = llm.NewLimitedLLM(model, cfg.AI.ConcurrentLimit)

	sums := usecase.NewSummarizeUseCase(model, youtube.NewTranscriptClient(), meta,
		cfg.Transcript.Languages, cfg.AI.Temperature, prompt.NewBudget(cfg.AI.MaxContextTokens, cfg.AI.Model), log)
	scanner := usecase.NewChannelScanUseCase(meta, sums, cfg.AI.ConcurrentLimit, log)

	results, err := scanner.Scan(ctx, channelURL, r, *limit)
	if err != nil {
		log.Error().Err(err).Msg("channel scan failed")
		fmt.Fprintln(os.Stderr, usecase.ExplainError(err, cfg.AI.Provider, tr))
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println(tr.T("no_videos_in_range"))
		return
	}

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			log.Error().Err(err).Str("dir", *outDir).Msg("create output dir failed")
			os.Exit(1)
		}
	}

	failures := 0
	for _, res := range results {
		fmt.Printf("## %s (%s)\n", res.Video.Title, res.Video.URL)
		if res.Err != nil {
			failures++
			fmt.Println(usecase.ExplainError(res.Err, cfg.AI.Provider, tr))
		} else if *outDir != "" {
			path := filepath.Join(*outDir, res.Video.ID+".txt")
			if err := os.WriteFile(path, []byte(res.Summary.Content+"\n"), 0o644); err != nil {
				failures++
				log.Error().Err(err).Str("path", path).Msg("write failed")
			} else {
				fmt.Println(tr.T("summary_saved", path))
			}
		} else {
			fmt.Println(res.Summary.Content)
		}
		fmt.Println()
	}
	log.Info().Int("videos", len(results)).Int("failures", failures).Msg("channel scan complete")
	if failures == len(results) {
		os.Exit(1)
	}
}
