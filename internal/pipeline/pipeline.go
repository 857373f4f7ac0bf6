// Package pipeline drives each drama through enumeration, metadata
// resolution, episode extraction, filtering, download, and archiving. One
// video failing never aborts the drama; the pipeline logs and moves on.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"dramasync/internal/archive"
	"dramasync/internal/captions"
	"dramasync/internal/catalog"
	"dramasync/internal/episode"
	"dramasync/internal/httpx"
	"dramasync/internal/resolver"
	"dramasync/internal/state"
)

// Run modes.
const (
	ModeVideos      = "videos"
	ModeTranscripts = "transcripts"
	ModeAll         = "all"
)

// DefaultMinDuration filters out trailers and promo clips.
const DefaultMinDuration = 10 * time.Minute

type metaResolver interface {
	Resolve(ctx context.Context, videoURL string) resolver.Meta
}

type captionResolver interface {
	Resolve(ctx context.Context, videoID string) (english, local *captions.Track)
}

type downloader interface {
	Download(ctx context.Context, videoURL, dest string) error
}

// Config tunes one pipeline run.
type Config struct {
	TranscriptDir string
	WorkDir       string
	MinDuration   time.Duration
	Delay         time.Duration
	// TargetLang is the local-language code, e.g. "ur".
	TargetLang string
	// RequireCaptions skips a video's download when it has no captions.
	RequireCaptions bool
	// Reprocess ignores the processed set and re-archives episodes.
	Reprocess bool
	DryRun    bool
}

func (c Config) minDuration() time.Duration {
	if c.MinDuration > 0 {
		return c.MinDuration
	}
	return DefaultMinDuration
}

// Summary is one drama's outcome. Total counts every enumerated video;
// Attempted those that survived the filters; Processed those archived.
// Transcripts counts episodes whose caption files were saved, and is only
// set by the transcript pass.
type Summary struct {
	Drama       string
	Total       int
	Attempted   int
	Processed   int
	Transcripts int
}

// Pipeline wires the collaborators together. All of them are injected so
// tests can run the full flow without the network.
type Pipeline struct {
	cfg       Config
	enum      Enumerator
	resolver  metaResolver
	captions  captionResolver
	fetcher   downloader
	sink      archive.Sink
	processed state.ProcessedSet
	log       *slog.Logger
}

func New(cfg Config, enum Enumerator, res metaResolver, caps captionResolver, fetcher downloader, sink archive.Sink, processed state.ProcessedSet, log *slog.Logger) *Pipeline {
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Pipeline{
		cfg:       cfg,
		enum:      enum,
		resolver:  res,
		captions:  caps,
		fetcher:   fetcher,
		sink:      sink,
		processed: processed,
		log:       log,
	}
}

// Run processes every catalog entry in the given mode and returns one
// summary per drama.
func (p *Pipeline) Run(ctx context.Context, cat *catalog.Catalog, mode string) ([]Summary, error) {
	summaries := make([]Summary, 0, cat.Len())
	completed := 0
	for _, entry := range cat.Entries {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		log := p.log.With("drama", entry.Name)
		log.Info("processing drama", "mode", mode, "episodes", len(entry.Episodes()))

		var summary Summary
		var err error
		switch mode {
		case ModeTranscripts:
			summary, err = p.RunTranscripts(ctx, entry)
		case ModeVideos:
			summary, err = p.RunVideos(ctx, entry)
		case ModeAll:
			var tsum Summary
			if tsum, err = p.RunTranscripts(ctx, entry); err == nil {
				summary, err = p.RunVideos(ctx, entry)
				summary.Transcripts = tsum.Transcripts
			} else {
				summary = tsum
			}
		default:
			return summaries, fmt.Errorf("unknown mode %q", mode)
		}
		if err != nil {
			log.Error("drama failed", "error", err)
			summaries = append(summaries, summary)
			continue
		}
		log.Info("drama done", "attempted", summary.Attempted, "processed", summary.Processed, "transcripts", summary.Transcripts)
		summaries = append(summaries, summary)
		completed++
	}
	p.log.Info("run complete", "dramas", cat.Len(), "completed", completed)
	return summaries, nil
}

// RunVideos downloads and archives the drama's wanted episodes.
func (p *Pipeline) RunVideos(ctx context.Context, entry catalog.Entry) (Summary, error) {
	summary := Summary{Drama: entry.Name}
	urls, err := p.enum.Enumerate(ctx, entry.URL)
	if err != nil {
		return summary, err
	}
	summary.Total = len(urls)
	log := p.log.With("drama", entry.Name)
	log.Info("enumerated videos", "count", len(urls))

	for i, videoURL := range urls {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && p.cfg.Delay > 0 {
			if err := httpx.SleepContext(ctx, p.cfg.Delay); err != nil {
				return summary, err
			}
		}

		ep, ok := p.selectEpisode(ctx, entry, videoURL)
		if !ok {
			continue
		}
		if !p.cfg.Reprocess {
			seen, err := p.processed.Seen(entry.Name, ep)
			if err != nil {
				return summary, fmt.Errorf("checking processed set: %w", err)
			}
			if seen {
				log.Info("episode already archived", "episode", ep)
				continue
			}
		}

		summary.Attempted++
		if err := p.processVideo(ctx, entry, ep, videoURL); err != nil {
			log.Error("episode failed", "episode", ep, "url", videoURL, "error", err)
			continue
		}
		summary.Processed++
	}
	return summary, nil
}

// selectEpisode resolves metadata and applies the episode and duration
// filters. A false return means "skip this URL", never an error.
func (p *Pipeline) selectEpisode(ctx context.Context, entry catalog.Entry, videoURL string) (int, bool) {
	log := p.log.With("drama", entry.Name, "url", videoURL)

	meta := p.resolver.Resolve(ctx, videoURL)
	ep, ok := episode.Extract(meta.Title, entry.MaxEpisode)
	if !ok {
		log.Debug("no episode number in title", "title", meta.Title)
		return 0, false
	}
	if !entry.Wants(ep) {
		log.Debug("episode not wanted", "episode", ep)
		return 0, false
	}
	if meta.Duration < p.cfg.minDuration() {
		log.Info("skipping short video", "episode", ep, "duration", meta.Duration)
		return 0, false
	}
	return ep, true
}

func (p *Pipeline) processVideo(ctx context.Context, entry catalog.Entry, ep int, videoURL string) error {
	log := p.log.With("drama", entry.Name, "episode", ep)
	videoID := episode.VideoID(videoURL)

	if p.cfg.RequireCaptions {
		english, local := p.captions.Resolve(ctx, videoID)
		if english == nil && local == nil {
			return fmt.Errorf("no captions available and captions are required")
		}
	}

	if p.cfg.DryRun {
		log.Info("dry run: would download and archive", "url", videoURL)
		return nil
	}

	workDir := filepath.Join(p.cfg.WorkDir, "drama_"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("creating work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	dest := filepath.Join(workDir, fmt.Sprintf("%s_Ep%d_%s.mp4", entry.Name, ep, videoID))
	if err := p.fetcher.Download(ctx, videoURL, dest); err != nil {
		return err
	}

	videoURL2, err := p.sink.Store(ctx, dest, archive.VideoKey(entry.Name, ep, videoID, ".mp4"))
	if err != nil {
		return err
	}
	log.Info("video archived", "url", videoURL2)

	// Temp video goes away before the transcript uploads; it is the big one.
	os.Remove(dest)

	localLabel := captions.LabelFor(p.cfg.TargetLang)
	for _, file := range captions.LocateFiles(p.cfg.TranscriptDir, entry.Name, ep, localLabel) {
		transcriptURL, err := p.sink.Store(ctx, file, archive.TranscriptKey(entry.Name, file))
		if err != nil {
			log.Warn("transcript upload failed", "file", file, "error", err)
			continue
		}
		log.Info("transcript archived", "url", transcriptURL)
	}

	return p.processed.Mark(ctx, state.Record{
		Drama:      entry.Name,
		Episode:    ep,
		VideoID:    videoID,
		ArchiveURL: videoURL2,
	})
}

// RunTranscripts fetches caption tracks for the drama's wanted episodes and
// writes them under the transcript directory.
func (p *Pipeline) RunTranscripts(ctx context.Context, entry catalog.Entry) (Summary, error) {
	summary := Summary{Drama: entry.Name}
	urls, err := p.enum.Enumerate(ctx, entry.URL)
	if err != nil {
		return summary, err
	}
	summary.Total = len(urls)
	log := p.log.With("drama", entry.Name)

	for i, videoURL := range urls {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if i > 0 && p.cfg.Delay > 0 {
			if err := httpx.SleepContext(ctx, p.cfg.Delay); err != nil {
				return summary, err
			}
		}

		ep, ok := p.selectEpisode(ctx, entry, videoURL)
		if !ok {
			continue
		}
		summary.Attempted++

		videoID := episode.VideoID(videoURL)
		english, local := p.captions.Resolve(ctx, videoID)
		if english == nil && local == nil {
			log.Info("no transcripts", "episode", ep)
			continue
		}
		if p.cfg.DryRun {
			log.Info("dry run: would write transcripts", "episode", ep)
			summary.Processed++
			summary.Transcripts++
			continue
		}

		wrote := 0
		for _, track := range []*captions.Track{english, local} {
			if track == nil {
				continue
			}
			paths, err := captions.WriteTrackFiles(p.cfg.TranscriptDir, entry.Name, ep, track)
			if err != nil {
				log.Error("writing transcript failed", "episode", ep, "language", track.Language, "error", err)
				continue
			}
			wrote += len(paths)
			log.Info("transcript saved", "episode", ep, "language", track.Language, "translated", track.Translated)
		}
		if wrote > 0 {
			summary.Processed++
			summary.Transcripts++
		}
	}
	return summary, nil
}
