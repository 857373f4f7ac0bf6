package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kkdai/youtube/v2"

	"dramasync/internal/errcat"
)

const (
	minChunkSize     = 1 << 20
	maxChunkSize     = 10 << 20
	targetChunkCount = 8
)

// ClientStrategy streams a progressive (pre-muxed audio+video) format
// through the client library. Prefers the best format at or under
// MaxHeight, falling back to the highest resolution available.
type ClientStrategy struct {
	Client    *youtube.Client
	MaxHeight int
}

func (s *ClientStrategy) Name() string { return "client" }

func (s *ClientStrategy) maxHeight() int {
	if s.MaxHeight > 0 {
		return s.MaxHeight
	}
	return 720
}

func (s *ClientStrategy) Fetch(ctx context.Context, videoURL, dest string) error {
	video, err := s.Client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return errcat.Wrap(errcat.CategoryNetwork, fmt.Errorf("fetching video info: %w", err))
	}

	format := pickProgressive(video.Formats, s.maxHeight())
	if format == nil {
		return errcat.Wrap(errcat.CategoryUnsupported, errors.New("no progressive (audio+video) formats available"))
	}

	adjustChunkSize(s.Client, format.ContentLength)
	stream, _, err := s.Client.GetStreamContext(ctx, video, format)
	if err != nil {
		return errcat.Wrap(errcat.CategoryNetwork, fmt.Errorf("starting stream: %w", err))
	}
	defer stream.Close()

	file, err := os.Create(dest)
	if err != nil {
		return errcat.Wrap(errcat.CategoryFilesystem, fmt.Errorf("opening output file: %w", err))
	}
	defer file.Close()

	if _, err := copyWithContext(ctx, file, stream); err != nil {
		return errcat.Wrap(errcat.CategoryNetwork, fmt.Errorf("streaming video: %w", err))
	}
	return nil
}

// pickProgressive selects the best progressive format: highest height at or
// under the cap, bitrate breaking ties; when nothing fits under the cap,
// the highest resolution available.
func pickProgressive(formats youtube.FormatList, maxHeight int) *youtube.Format {
	var capped, best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || f.Width == 0 || f.Height == 0 {
			continue
		}
		if f.Height <= maxHeight {
			if capped == nil || f.Height > capped.Height ||
				(f.Height == capped.Height && f.Bitrate > capped.Bitrate) {
				capped = f
			}
		}
		if best == nil || f.Height > best.Height ||
			(f.Height == best.Height && f.Bitrate > best.Bitrate) {
			best = f
		}
	}
	if capped != nil {
		return capped
	}
	return best
}

func adjustChunkSize(client *youtube.Client, contentLength int64) {
	if client == nil || contentLength <= 0 {
		return
	}
	chunk := contentLength / targetChunkCount
	if chunk < minChunkSize {
		chunk = minChunkSize
	} else if chunk > maxChunkSize {
		chunk = maxChunkSize
	}
	client.ChunkSize = chunk
}
