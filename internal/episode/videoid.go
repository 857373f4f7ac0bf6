package episode

import (
	"regexp"
	"strings"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`v=([\w-]{11})`),
	regexp.MustCompile(`be/([\w-]{11})`),
	regexp.MustCompile(`embed/([\w-]{11})`),
	regexp.MustCompile(`/([\w-]{11})$`),
}

// VideoID extracts the 11-character video identifier from a YouTube URL in
// any of its common shapes (watch?v=, youtu.be/, embed/). Falls back to the
// last path segment for anything unrecognized.
func VideoID(url string) string {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(id string) string {
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + id
}
