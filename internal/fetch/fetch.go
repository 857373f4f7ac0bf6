// Package fetch downloads a video through a chain of degrading strategies:
// the yt-dlp binary, a direct client-library stream, then a raw HTTP GET.
// Every tier's output is validated before it counts as a success; undersized
// files are placeholder pages or truncated streams, not videos.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"dramasync/internal/errcat"
)

// DefaultMinSize is the smallest output accepted as a real video.
const DefaultMinSize = 1 << 20

// Strategy is one way of getting a video onto disk.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, videoURL, dest string) error
}

// Pacer spaces out download attempts. It blocks until the next attempt may
// start or the context ends.
type Pacer interface {
	Pause(ctx context.Context) error
}

// NopPacer never waits. Used in tests and dry runs.
type NopPacer struct{}

func (NopPacer) Pause(ctx context.Context) error { return ctx.Err() }

// JitterPacer sleeps Base plus a random fraction of Jitter before each
// attempt, so requests do not land on a fixed cadence.
type JitterPacer struct {
	Base   time.Duration
	Jitter time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func NewJitterPacer(base, jitter time.Duration) *JitterPacer {
	return &JitterPacer{
		Base:   base,
		Jitter: jitter,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *JitterPacer) Pause(ctx context.Context) error {
	d := p.Base
	if p.Jitter > 0 {
		p.mu.Lock()
		d += time.Duration(p.rng.Int63n(int64(p.Jitter)))
		p.mu.Unlock()
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Chain tries strategies in order until one produces a valid file.
type Chain struct {
	strategies []Strategy
	pacer      Pacer
	minSize    int64
	probe      bool
	log        *slog.Logger
}

// NewChain builds a chain over the given strategies. minSize <= 0 selects
// DefaultMinSize; probe enables an ffprobe container check when the binary
// is installed.
func NewChain(log *slog.Logger, pacer Pacer, minSize int64, probe bool, strategies ...Strategy) *Chain {
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	if pacer == nil {
		pacer = NopPacer{}
	}
	return &Chain{strategies: strategies, pacer: pacer, minSize: minSize, probe: probe, log: log}
}

// Download fetches videoURL into dest. On total failure dest is removed and
// the last tier's error is returned, categorized.
func (c *Chain) Download(ctx context.Context, videoURL, dest string) error {
	var lastErr error
	for _, strategy := range c.strategies {
		if err := c.pacer.Pause(ctx); err != nil {
			return errcat.Wrap(errcat.CategoryNetwork, err)
		}

		c.log.Debug("download attempt", "strategy", strategy.Name(), "url", videoURL)
		if err := strategy.Fetch(ctx, videoURL, dest); err != nil {
			c.log.Warn("download strategy failed", "strategy", strategy.Name(), "error", err)
			lastErr = err
			os.Remove(dest)
			continue
		}
		if err := c.validate(dest); err != nil {
			c.log.Warn("download output rejected", "strategy", strategy.Name(), "error", err)
			lastErr = err
			os.Remove(dest)
			continue
		}
		c.log.Info("download complete", "strategy", strategy.Name(), "path", dest)
		return nil
	}
	os.Remove(dest)
	if lastErr == nil {
		lastErr = fmt.Errorf("no download strategies configured")
	}
	if errcat.Of(lastErr) != "" {
		return fmt.Errorf("all download strategies failed: %w", lastErr)
	}
	return errcat.Wrap(errcat.CategoryNetwork, fmt.Errorf("all download strategies failed: %w", lastErr))
}

func (c *Chain) validate(dest string) error {
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("output missing: %w", err)
	}
	if info.Size() < c.minSize {
		return fmt.Errorf("output too small: %d bytes (min %d)", info.Size(), c.minSize)
	}
	if c.probe && ffprobeAvailable() {
		if _, err := ffmpeg.Probe(dest); err != nil {
			return fmt.Errorf("container probe failed: %w", err)
		}
	}
	return nil
}

var ffprobeOnce struct {
	sync.Once
	found bool
}

func ffprobeAvailable() bool {
	ffprobeOnce.Do(func() {
		_, err := exec.LookPath("ffprobe")
		ffprobeOnce.found = err == nil
	})
	return ffprobeOnce.found
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
		return r.r.Read(p)
	}
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, &contextReader{ctx: ctx, r: src})
}
