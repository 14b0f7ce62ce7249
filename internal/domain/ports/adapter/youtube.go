package adapter

import (
	"context"

	"yoyaktube/internal/domain/model"
)

// TranscriptProvider fetches caption tracks for a video. Both methods
// return a nil result (no error) when no transcript exists in any of the
// preferred languages; errors are reserved for transport failures.
type TranscriptProvider interface {
	// TimedTranscript returns timestamped entries in the first available
	// preferred language.
	TimedTranscript(ctx context.Context, videoID string, languages []string) (*model.Transcript, error)

	// PlainTranscript returns the joined caption text and its language
	// code, or ("", "", nil) when unavailable.
	PlainTranscript(ctx context.Context, videoID string, languages []string) (text, language string, err error)
}

// MetadataProvider fetches video metadata. A nil result without error
// means extraction failed softly; summarization proceeds without it.
type MetadataProvider interface {
	VideoMetadata(ctx context.Context, videoID string) (*model.VideoMetadata, error)
}

// ChannelVideo is one entry of a channel's upload list.
type ChannelVideo struct {
	ID         string
	Title      string
	URL        string
	UploadDate string // YYYYMMDD, empty when the flat listing omits it
	Duration   float64
}

// ChannelLister enumerates a channel's recent uploads, newest first.
type ChannelLister interface {
	ListChannelVideos(ctx context.Context, channelURL string, limit int) ([]ChannelVideo, error)
}
