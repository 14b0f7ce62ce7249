package model

import "strings"

// TranscriptEntry is one caption line with its position in the video.
// Duration may be zero when the source does not report it.
type TranscriptEntry struct {
	Start    float64 `json:"start"`    // seconds from video start
	Duration float64 `json:"duration"` // seconds, optional
	Text     string  `json:"text"`
}

// Empty reports whether the entry carries no usable text.
func (e TranscriptEntry) Empty() bool {
	return strings.TrimSpace(e.Text) == ""
}

// Transcript is an ordered caption track (ascending Start) in one language.
type Transcript struct {
	Entries  []TranscriptEntry
	Language string
}

// PlainText joins all entry texts with single spaces, the same shape a
// caption track has when timestamps are unavailable.
func (t *Transcript) PlainText() string {
	parts := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		if txt := strings.TrimSpace(e.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

// VideoMetadata holds the subset of yt-dlp video info the summarizer uses.
// Fields the extractor did not report stay at their zero value.
type VideoMetadata struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Uploader    string  `json:"uploader"`
	Duration    float64 `json:"duration"`    // seconds
	UploadDate  string  `json:"upload_date"` // passed through as-is (YYYYMMDD from yt-dlp)
	ViewCount   int64   `json:"view_count"`
	Description string  `json:"description"`
	WebpageURL  string  `json:"webpage_url"`
}
