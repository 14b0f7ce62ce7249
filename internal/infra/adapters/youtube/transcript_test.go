package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestTranscriptClient(base string) *TranscriptClient {
	return &TranscriptClient{
		base:   base,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

const koTrack = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.0" dur="2.5">&amp;quot;안녕하세요&amp;quot;</text>
  <text start="5.1" dur="1.0">  </text>
  <text start="2.5" dur="2.0">오늘의 영상입니다</text>
</transcript>`

func TestTimedTranscriptLanguagePriority(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("lang") {
		case "ko":
			w.WriteHeader(http.StatusNotFound)
		case "en":
			w.Write([]byte(koTrack))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestTranscriptClient(srv.URL)
	tr, err := c.TimedTranscript(context.Background(), "dQw4w9WgXcQ", []string{"ko", "en", "ja"})
	if err != nil {
		t.Fatalf("TimedTranscript: %v", err)
	}
	if tr == nil {
		t.Fatal("expected a transcript, got nil")
	}
	if tr.Language != "en" {
		t.Errorf("language = %q, want en", tr.Language)
	}
	// the blank cue is dropped and entries come back sorted by start
	if len(tr.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(tr.Entries))
	}
	if tr.Entries[0].Text != `"안녕하세요"` {
		t.Errorf("first entry = %q, want unescaped quoted text", tr.Entries[0].Text)
	}
	if tr.Entries[0].Start != 0.0 || tr.Entries[1].Start != 2.5 {
		t.Errorf("entries not sorted by start: %+v", tr.Entries)
	}
}

func TestTimedTranscriptAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestTranscriptClient(srv.URL)
	tr, err := c.TimedTranscript(context.Background(), "dQw4w9WgXcQ", []string{"ko", "en"})
	if err != nil {
		t.Fatalf("TimedTranscript: %v", err)
	}
	if tr != nil {
		t.Errorf("expected nil transcript for captionless video, got %+v", tr)
	}
}

func TestTimedTranscriptEmptyBody(t *testing.T) {
	// YouTube sometimes answers 200 with an empty body for missing tracks.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := newTestTranscriptClient(srv.URL)
	tr, err := c.TimedTranscript(context.Background(), "dQw4w9WgXcQ", []string{"ko"})
	if err != nil {
		t.Fatalf("TimedTranscript: %v", err)
	}
	if tr != nil {
		t.Errorf("expected nil transcript for empty body, got %+v", tr)
	}
}

func TestPlainTranscript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(koTrack))
	}))
	defer srv.Close()

	c := newTestTranscriptClient(srv.URL)
	text, lang, err := c.PlainTranscript(context.Background(), "dQw4w9WgXcQ", []string{"ko"})
	if err != nil {
		t.Fatalf("PlainTranscript: %v", err)
	}
	if lang != "ko" {
		t.Errorf("language = %q, want ko", lang)
	}
	want := `"안녕하세요" 오늘의 영상입니다`
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}
