// Package resolver obtains a video's display title and duration, trying
// independent sources in a fixed priority order. Resolution never fails
// outright: when every source comes back empty the title is derived from
// the URL path so downstream filters still have something to chew on.
package resolver

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
)

// Meta is what a source knows about a video. A zero Duration means the
// source could not determine it.
type Meta struct {
	Title    string
	Duration time.Duration
}

// Source is one way of finding out a video's title and duration.
type Source interface {
	Name() string
	Resolve(ctx context.Context, videoURL string) (Meta, error)
}

// Resolver runs sources in priority order until one yields a non-empty
// title.
type Resolver struct {
	sources []Source
	log     *slog.Logger
}

// New builds the standard three-source chain: oEmbed endpoint, raw watch
// page, then the YouTube client library. httpClient should already carry
// retry behavior.
func New(httpClient *http.Client, yt *youtube.Client, log *slog.Logger) *Resolver {
	return &Resolver{
		sources: []Source{
			&oembedSource{client: httpClient},
			&watchPageSource{client: httpClient},
			&clientSource{yt: yt},
		},
		log: log,
	}
}

// NewWithSources builds a resolver over an explicit chain. Used by tests
// and by callers that want to reorder or drop tiers.
func NewWithSources(log *slog.Logger, sources ...Source) *Resolver {
	return &Resolver{sources: sources, log: log}
}

// Resolve returns the first source's answer that carries a non-empty
// title. It never returns an error: total failure yields a title derived
// from the URL and a zero duration.
func (r *Resolver) Resolve(ctx context.Context, videoURL string) Meta {
	for _, src := range r.sources {
		meta, err := src.Resolve(ctx, videoURL)
		if err != nil {
			r.log.Debug("metadata source failed", "source", src.Name(), "url", videoURL, "error", err)
			continue
		}
		if meta.Title == "" {
			continue
		}
		r.log.Debug("metadata resolved", "source", src.Name(), "title", meta.Title, "duration", meta.Duration)
		return meta
	}
	fallback := titleFromURL(videoURL)
	r.log.Warn("all metadata sources failed", "url", videoURL, "fallback", fallback)
	return Meta{Title: fallback}
}

// titleFromURL derives a last-resort title from the URL path, or the host
// when the path is empty.
func titleFromURL(videoURL string) string {
	parsed, err := url.Parse(videoURL)
	if err != nil {
		return videoURL
	}
	if id := parsed.Query().Get("v"); id != "" {
		return id
	}
	base := strings.TrimSpace(path.Base(parsed.Path))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "/" || base == "." {
		// The host keeps its dots; only path bases shed an extension.
		base = parsed.Host
	}
	if base == "" {
		return "video"
	}
	return base
}
