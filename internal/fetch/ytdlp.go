package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"dramasync/internal/errcat"
)

// YtdlpStrategy shells out to the yt-dlp binary, the most reliable tier.
// The first attempt asks for a resolution-capped single-file format so no
// merge step is needed; a failed attempt is retried once with a relaxed
// sort expression and a size cap.
type YtdlpStrategy struct {
	// Path to the binary; "yt-dlp" from PATH when empty.
	Path string
	// MaxHeight caps the requested resolution. Zero means 720.
	MaxHeight int
	// SizeCap bounds the relaxed second attempt, e.g. "2000M".
	SizeCap string

	once      sync.Once
	available bool
	version   string
}

func (s *YtdlpStrategy) Name() string { return "yt-dlp" }

func (s *YtdlpStrategy) binary() string {
	if s.Path != "" {
		return s.Path
	}
	return "yt-dlp"
}

// Available reports whether the binary answers --version. Checked once per
// process.
func (s *YtdlpStrategy) Available() bool {
	s.once.Do(func() {
		out, err := exec.Command(s.binary(), "--version").Output()
		if err != nil {
			return
		}
		s.available = true
		s.version = strings.TrimSpace(string(out))
	})
	return s.available
}

func (s *YtdlpStrategy) Version() string {
	s.Available()
	return s.version
}

func (s *YtdlpStrategy) maxHeight() int {
	if s.MaxHeight > 0 {
		return s.MaxHeight
	}
	return 720
}

// primaryArgs requests a pre-muxed format at or under the height cap.
func (s *YtdlpStrategy) primaryArgs(videoURL, dest string) []string {
	h := s.maxHeight()
	return []string{
		"-f", fmt.Sprintf("best[height<=%d][ext=mp4]/best[height<=%d]", h, h),
		"-o", dest,
		"--no-playlist",
		"--no-progress",
		"--quiet",
		videoURL,
	}
}

// relaxedArgs drops the strict format filter and sorts instead, with a size
// cap so a surprise 4K pick cannot fill the disk.
func (s *YtdlpStrategy) relaxedArgs(videoURL, dest string) []string {
	args := []string{
		"-f", "best",
		"-S", fmt.Sprintf("res:%d,+codec:avc", s.maxHeight()),
	}
	if s.SizeCap != "" {
		args = append(args, "--max-filesize", s.SizeCap)
	}
	return append(args,
		"-o", dest,
		"--no-playlist",
		"--no-progress",
		"--quiet",
		videoURL,
	)
}

func (s *YtdlpStrategy) Fetch(ctx context.Context, videoURL, dest string) error {
	if !s.Available() {
		return errcat.Wrap(errcat.CategoryUnsupported, errors.New("yt-dlp binary not found"))
	}
	if err := s.run(ctx, s.primaryArgs(videoURL, dest), dest); err == nil {
		return nil
	}
	os.Remove(dest)
	return s.run(ctx, s.relaxedArgs(videoURL, dest), dest)
}

func (s *YtdlpStrategy) run(ctx context.Context, args []string, dest string) error {
	cmd := exec.CommandContext(ctx, s.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return errcat.Wrap(errcat.CategoryNetwork, fmt.Errorf("yt-dlp: %w: %s", err, msg))
		}
		return errcat.Wrap(errcat.CategoryNetwork, fmt.Errorf("yt-dlp: %w", err))
	}
	if _, err := os.Stat(dest); err != nil {
		return errcat.Wrap(errcat.CategoryNetwork, fmt.Errorf("yt-dlp reported success but %s is missing", dest))
	}
	return nil
}
