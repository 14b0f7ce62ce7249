// File: internal/usecase/channel_uc.go
package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"yoyaktube/internal/domain"
	"yoyaktube/internal/domain/ports/adapter"
	"yoyaktube/internal/infra/worker"
)

// Compile-time check
var _ ChannelScanUseCase = (*channelUC)(nil)

// DateRange is an inclusive [From, To] day window in local time.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether a yt-dlp upload date (YYYYMMDD) falls inside
// the range. Entries without an upload date are kept: flat playlist
// dumps often omit it, and dropping them silently would hide videos.
func (r DateRange) Contains(uploadDate string) bool {
	if uploadDate == "" {
		return true
	}
	d, err := time.ParseInLocation("20060102", uploadDate, time.Local)
	if err != nil {
		return true
	}
	return !d.Before(r.From) && !d.After(r.To)
}

var dayPattern = regexp.MustCompile(`^\d{8}$`)

// ParseDateRange interprets the scanner's period argument:
//
//	"today", "yesterday", a day count ("7"), a single day ("20240115"),
//	or an explicit span ("20240101-20240131").
func ParseDateRange(spec string, now time.Time) (DateRange, error) {
	spec = strings.TrimSpace(strings.ToLower(spec))
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := func(d time.Time) time.Time { return d.Add(24*time.Hour - time.Nanosecond) }

	switch {
	case spec == "" || spec == "today":
		return DateRange{From: today, To: endOfDay(today)}, nil
	case spec == "yesterday":
		y := today.AddDate(0, 0, -1)
		return DateRange{From: y, To: endOfDay(y)}, nil
	}

	if n, err := strconv.Atoi(spec); err == nil && !dayPattern.MatchString(spec) {
		if n <= 0 || n > 365 {
			return DateRange{}, fmt.Errorf("day count must be 1..365: %w", domain.ErrInvalidArgument)
		}
		return DateRange{From: today.AddDate(0, 0, -(n - 1)), To: endOfDay(today)}, nil
	}

	if from, to, ok := strings.Cut(spec, "-"); ok {
		if !dayPattern.MatchString(from) || !dayPattern.MatchString(to) {
			return DateRange{}, fmt.Errorf("date span must be YYYYMMDD-YYYYMMDD: %w", domain.ErrInvalidArgument)
		}
		f, err := time.ParseInLocation("20060102", from, now.Location())
		if err != nil {
			return DateRange{}, fmt.Errorf("parse span start: %w", domain.ErrInvalidArgument)
		}
		t, err := time.ParseInLocation("20060102", to, now.Location())
		if err != nil {
			return DateRange{}, fmt.Errorf("parse span end: %w", domain.ErrInvalidArgument)
		}
		if t.Before(f) {
			f, t = t, f
		}
		return DateRange{From: f, To: endOfDay(t)}, nil
	}

	if dayPattern.MatchString(spec) {
		d, err := time.ParseInLocation("20060102", spec, now.Location())
		if err != nil {
			return DateRange{}, fmt.Errorf("parse day: %w", domain.ErrInvalidArgument)
		}
		return DateRange{From: d, To: endOfDay(d)}, nil
	}

	return DateRange{}, fmt.Errorf("unrecognized period %q: %w", spec, domain.ErrInvalidArgument)
}

// ScanResult pairs one channel video with its summary or failure.
type ScanResult struct {
	Video   adapter.ChannelVideo
	Summary *Summary
	Err     error
}

type ChannelScanUseCase interface {
	// Scan lists the channel's recent uploads, keeps those inside the
	// range, and summarizes them concurrently. Results come back in the
	// listing's order; per-video failures are recorded, not fatal.
	Scan(ctx context.Context, channelURL string, r DateRange, limit int) ([]ScanResult, error)
}

type channelUC struct {
	lister     adapter.ChannelLister
	summarizer SummarizeUseCase
	workers    int
	log        *zerolog.Logger
}

func NewChannelScanUseCase(lister adapter.ChannelLister, summarizer SummarizeUseCase, workers int, log *zerolog.Logger) *channelUC {
	if workers <= 0 {
		workers = 4
	}
	return &channelUC{lister: lister, summarizer: summarizer, workers: workers, log: log}
}

func (c *channelUC) Scan(ctx context.Context, channelURL string, r DateRange, limit int) ([]ScanResult, error) {
	videos, err := c.lister.ListChannelVideos(ctx, channelURL, limit)
	if err != nil {
		return nil, err
	}

	selected := make([]adapter.ChannelVideo, 0, len(videos))
	for _, v := range videos {
		if r.Contains(v.UploadDate) {
			selected = append(selected, v)
		}
	}
	if c.log != nil {
		c.log.Info().Int("listed", len(videos)).Int("selected", len(selected)).
			Str("channel", channelURL).Msg("channel scan")
	}
	if len(selected) == 0 {
		return nil, nil
	}

	pool := worker.NewPool(c.workers, c.log)
	pool.Start(ctx)
	defer pool.Stop()

	// Each worker writes its own slot, so results keep the listing's
	// newest-first order without any post-sorting.
	results := make([]ScanResult, len(selected))
	var wg sync.WaitGroup
	for i, v := range selected {
		i, v := i, v
		wg.Add(1)
		task := func(ctx context.Context) error {
			defer wg.Done()
			sum, err := c.summarizer.Summarize(ctx, v.URL)
			results[i] = ScanResult{Video: v, Summary: sum, Err: err}
			return err
		}
		// Submit never blocks; retry until the queue drains or the scan
		// is cancelled.
		if err := c.submit(ctx, pool, task); err != nil {
			wg.Done()
			results[i] = ScanResult{Video: v, Err: err}
		}
	}
	wg.Wait()
	return results, nil
}

func (c *channelUC) submit(ctx context.Context, pool *worker.Pool, task worker.Task) error {
	for pool.Submit(task) != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil
}
