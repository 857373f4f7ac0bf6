package resolver

import (
	"context"

	"github.com/kkdai/youtube/v2"
)

// clientSource is the last-resort tier: a full player-payload fetch through
// the YouTube client library. Heavier than the scrapers but it reads the
// title and duration from the player response directly.
type clientSource struct {
	yt *youtube.Client
}

func (s *clientSource) Name() string { return "client" }

func (s *clientSource) Resolve(ctx context.Context, videoURL string) (Meta, error) {
	video, err := s.yt.GetVideoContext(ctx, videoURL)
	if err != nil {
		return Meta{}, err
	}
	return Meta{Title: video.Title, Duration: video.Duration}, nil
}
