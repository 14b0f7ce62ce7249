// Package youtube implements the transcript/metadata collaborator ports
// against YouTube's timedtext endpoint and the yt-dlp extractor binary.
package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	idPattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	pathPattern = regexp.MustCompile(`(?:watch\?v=|youtu\.be/|/shorts/|/embed/|/v/)([a-zA-Z0-9_-]{11})`)
)

var validHosts = map[string]bool{
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
	"youtu.be":        true,
}

// ExtractVideoID pulls the 11-character video ID out of the supported
// URL shapes (watch, youtu.be, shorts, embed, /v/) or accepts a bare ID.
// Returns "" when nothing valid is found.
func ExtractVideoID(raw string) string {
	if raw == "" {
		return ""
	}
	if idPattern.MatchString(raw) {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil || !validHosts[strings.ToLower(u.Host)] {
		return ""
	}
	if m := pathPattern.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if v := u.Query().Get("v"); idPattern.MatchString(v) {
		return v
	}
	return ""
}

// WatchURL renders the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
