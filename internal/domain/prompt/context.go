// Package prompt assembles the text handed to a model: the serialized
// transcript+metadata context block and the Korean prompt templates.
package prompt

import (
	"fmt"
	"strings"

	"yoyaktube/internal/domain/model"
)

const (
	metaHeader       = "=== 영상 정보 ==="
	transcriptHeader = "=== 자막 내용 ==="
	noTranscript     = "(자막 없음)"
)

// ContextParams are the inputs to BuildSummaryContext. Zero values mean
// "absent": an empty SourceURL/UploadDate is skipped and a zero duration
// emits no duration line.
type ContextParams struct {
	SourceURL       string
	DurationSec     float64
	UploadDate      string
	Entries         []model.TranscriptEntry
	PlainTranscript string
}

// BuildSummaryContext serializes transcript and metadata into one bounded
// text block. It performs no I/O and is fully deterministic; this is the
// only place prompt content is controlled.
func BuildSummaryContext(p ContextParams) string {
	var parts []string

	if p.SourceURL != "" || p.DurationSec != 0 || p.UploadDate != "" {
		parts = append(parts, metaHeader)
		if p.SourceURL != "" {
			parts = append(parts, "소스: "+p.SourceURL)
		}
		if p.DurationSec != 0 {
			parts = append(parts, "재생시간: "+FormatHMS(p.DurationSec))
		}
		if p.UploadDate != "" {
			parts = append(parts, "업로드: "+p.UploadDate)
		}
		parts = append(parts, "")
	}

	parts = append(parts, transcriptHeader)

	switch {
	case len(p.Entries) > 0:
		wrote := false
		for _, e := range p.Entries {
			text := strings.TrimSpace(e.Text)
			if text == "" {
				continue // malformed entries are dropped, never an error
			}
			parts = append(parts, TimestampLabel(e.Start)+" "+text)
			wrote = true
		}
		if !wrote {
			parts = append(parts, noTranscript)
		}
	case strings.TrimSpace(p.PlainTranscript) != "":
		parts = append(parts, strings.TrimSpace(p.PlainTranscript))
	default:
		parts = append(parts, noTranscript)
	}

	return strings.Join(parts, "\n")
}

// FormatHMS renders seconds as H:MM:SS with unpadded hours.
// Negative input clamps to "0:00:00".
func FormatHMS(seconds float64) string {
	total := int(seconds)
	if total < 0 {
		return "0:00:00"
	}
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// TimestampLabel renders an entry start as "[MM:SS]". Minutes keep
// growing past 59; there is no hour component in transcript lines.
func TimestampLabel(start float64) string {
	if start < 0 {
		start = 0
	}
	total := int(start)
	return fmt.Sprintf("[%02d:%02d]", total/60, total%60)
}
