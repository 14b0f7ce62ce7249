package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"yoyaktube/internal/domain/model"
	"yoyaktube/internal/domain/ports/adapter"
)

// Compile-time assurance this client satisfies the port
var _ adapter.TranscriptProvider = (*TranscriptClient)(nil)

const defaultTimedTextBase = "https://video.google.com/timedtext"

// TranscriptClient fetches caption tracks from the timedtext endpoint.
// Videos without captions simply return nothing; only transport-level
// problems surface as errors to the caller.
type TranscriptClient struct {
	base   string
	client *http.Client
}

func NewTranscriptClient() *TranscriptClient {
	return &TranscriptClient{
		base:   defaultTimedTextBase,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type timedText struct {
	XMLName xml.Name       `xml:"transcript"`
	Texts   []timedTextCue `xml:"text"`
}

type timedTextCue struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Body  string  `xml:",chardata"`
}

// TimedTranscript tries each preferred language in order and returns the
// first non-empty caption track with timestamps, or nil when none exist.
func (c *TranscriptClient) TimedTranscript(ctx context.Context, videoID string, languages []string) (*model.Transcript, error) {
	if videoID == "" {
		return nil, nil
	}
	for _, lang := range languages {
		entries, err := c.fetchTrack(ctx, videoID, lang)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			continue
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Start < entries[j].Start })
		return &model.Transcript{Entries: entries, Language: lang}, nil
	}
	return nil, nil
}

// PlainTranscript joins the timed track into one text blob, for callers
// that only need the words.
func (c *TranscriptClient) PlainTranscript(ctx context.Context, videoID string, languages []string) (string, string, error) {
	t, err := c.TimedTranscript(ctx, videoID, languages)
	if err != nil || t == nil {
		return "", "", err
	}
	text := t.PlainText()
	if text == "" {
		return "", "", nil
	}
	return text, t.Language, nil
}

func (c *TranscriptClient) fetchTrack(ctx context.Context, videoID, lang string) ([]model.TranscriptEntry, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("timedtext fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		// Missing track shows up as 404 (and sometimes an empty 200):
		// neither is an error worth propagating.
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}

	var doc timedText
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, nil // empty or non-XML body means "no track"
	}

	entries := make([]model.TranscriptEntry, 0, len(doc.Texts))
	for _, cue := range doc.Texts {
		text := strings.TrimSpace(html.UnescapeString(cue.Body))
		if text == "" {
			continue
		}
		entries = append(entries, model.TranscriptEntry{
			Start:    cue.Start,
			Duration: cue.Dur,
			Text:     text,
		})
	}
	return entries, nil
}
