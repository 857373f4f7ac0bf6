package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"sync"

	"github.com/kkdai/youtube/v2"

	"dramasync/internal/episode"
)

// Enumerator expands a drama's source URL into individual video URLs, in
// playlist order.
type Enumerator interface {
	Enumerate(ctx context.Context, sourceURL string) ([]string, error)
}

// isPlaylistURL reports whether the URL names a playlist rather than a
// single video.
func isPlaylistURL(sourceURL string) bool {
	parsed, err := url.Parse(sourceURL)
	if err != nil {
		return false
	}
	return parsed.Query().Get("list") != "" || strings.Contains(parsed.Path, "/playlist")
}

// ytdlpEnumerator lists playlist entries with yt-dlp's flat-playlist mode,
// which avoids fetching per-video metadata.
type ytdlpEnumerator struct {
	path string

	once      sync.Once
	available bool
}

func (e *ytdlpEnumerator) binary() string {
	if e.path != "" {
		return e.path
	}
	return "yt-dlp"
}

func (e *ytdlpEnumerator) Available() bool {
	e.once.Do(func() {
		_, err := exec.LookPath(e.binary())
		e.available = err == nil
	})
	return e.available
}

func (e *ytdlpEnumerator) Enumerate(ctx context.Context, sourceURL string) ([]string, error) {
	if !e.Available() {
		return nil, fmt.Errorf("yt-dlp binary not found")
	}
	cmd := exec.CommandContext(ctx, e.binary(), "--flat-playlist", "--get-id", sourceURL)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("yt-dlp enumerate: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("yt-dlp enumerate: %w", err)
	}

	var urls []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		id := strings.TrimSpace(line)
		if id == "" {
			continue
		}
		urls = append(urls, episode.WatchURL(id))
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("yt-dlp enumerate: playlist is empty")
	}
	return urls, nil
}

// clientEnumerator lists playlist entries through the client library.
type clientEnumerator struct {
	yt *youtube.Client
}

func (e *clientEnumerator) Enumerate(ctx context.Context, sourceURL string) ([]string, error) {
	playlist, err := e.yt.GetPlaylistContext(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist: %w", err)
	}
	urls := make([]string, 0, len(playlist.Videos))
	for _, entry := range playlist.Videos {
		urls = append(urls, episode.WatchURL(entry.ID))
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("playlist is empty")
	}
	return urls, nil
}

// chainEnumerator tries yt-dlp first and falls back to the client library.
// Non-playlist URLs enumerate as themselves.
type chainEnumerator struct {
	tiers []Enumerator
}

// NewEnumerator builds the standard enumeration chain.
func NewEnumerator(ytdlpPath string, yt *youtube.Client) Enumerator {
	return &chainEnumerator{tiers: []Enumerator{
		&ytdlpEnumerator{path: ytdlpPath},
		&clientEnumerator{yt: yt},
	}}
}

func (e *chainEnumerator) Enumerate(ctx context.Context, sourceURL string) ([]string, error) {
	if !isPlaylistURL(sourceURL) {
		return []string{sourceURL}, nil
	}
	var lastErr error
	for _, tier := range e.tiers {
		urls, err := tier.Enumerate(ctx, sourceURL)
		if err == nil {
			return urls, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("enumerating %s: %w", sourceURL, lastErr)
}
