package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"

	"yoyaktube/internal/domain/model"
	"yoyaktube/internal/domain/ports/adapter"
)

// Compile-time assurance this client satisfies both ports
var (
	_ adapter.MetadataProvider = (*MetadataClient)(nil)
	_ adapter.ChannelLister    = (*MetadataClient)(nil)
)

// CommandRunner executes an external command and returns its stdout.
// Indirection exists so tests can fake the yt-dlp binary.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// MetadataClient extracts video metadata and channel listings by
// shelling out to yt-dlp in JSON mode. Extraction failures are logged
// and reported as absence, not as errors: summarization works without
// metadata.
type MetadataClient struct {
	runner CommandRunner
	binary string
	log    *zerolog.Logger
}

func NewMetadataClient(log *zerolog.Logger) *MetadataClient {
	return &MetadataClient{runner: execRunner{}, binary: "yt-dlp", log: log}
}

func (m *MetadataClient) VideoMetadata(ctx context.Context, videoID string) (*model.VideoMetadata, error) {
	if videoID == "" {
		return nil, nil
	}
	out, err := m.runner.Run(ctx, m.binary, "-J", "--no-warnings", "--skip-download", WatchURL(videoID))
	if err != nil {
		if m.log != nil {
			m.log.Debug().Str("video_id", videoID).Err(err).Msg("metadata extraction failed")
		}
		return nil, nil
	}
	var meta model.VideoMetadata
	if err := json.Unmarshal(out, &meta); err != nil {
		if m.log != nil {
			m.log.Debug().Str("video_id", videoID).Err(err).Msg("metadata decode failed")
		}
		return nil, nil
	}
	if meta.ID == "" {
		meta.ID = videoID
	}
	if meta.WebpageURL == "" {
		meta.WebpageURL = WatchURL(videoID)
	}
	return &meta, nil
}

// ListChannelVideos enumerates a channel's uploads via a flat playlist
// dump, newest first. Unlike metadata extraction, a failure here is an
// error: the channel scanner cannot proceed without the listing.
func (m *MetadataClient) ListChannelVideos(ctx context.Context, channelURL string, limit int) ([]adapter.ChannelVideo, error) {
	args := []string{"-J", "--flat-playlist", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-end", fmt.Sprint(limit))
	}
	args = append(args, channelURL)

	out, err := m.runner.Run(ctx, m.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("channel listing: %w", err)
	}

	var listing struct {
		Entries []struct {
			ID         string  `json:"id"`
			Title      string  `json:"title"`
			URL        string  `json:"url"`
			UploadDate string  `json:"upload_date"`
			Duration   float64 `json:"duration"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(out, &listing); err != nil {
		return nil, fmt.Errorf("channel listing decode: %w", err)
	}

	videos := make([]adapter.ChannelVideo, 0, len(listing.Entries))
	for _, e := range listing.Entries {
		if e.ID == "" {
			continue
		}
		url := e.URL
		if url == "" {
			url = WatchURL(e.ID)
		}
		videos = append(videos, adapter.ChannelVideo{
			ID:         e.ID,
			Title:      e.Title,
			URL:        url,
			UploadDate: e.UploadDate,
			Duration:   e.Duration,
		})
	}
	return videos, nil
}
