package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kkdai/youtube/v2"

	"dramasync/internal/archive"
	"dramasync/internal/captions"
	"dramasync/internal/catalog"
	"dramasync/internal/errcat"
	"dramasync/internal/fetch"
	"dramasync/internal/httpx"
	"dramasync/internal/pipeline"
	"dramasync/internal/resolver"
	"dramasync/internal/state"
)

func main() {
	var (
		catalogPath     = flag.String("catalog", "dramas.toml", "path to the drama catalog")
		mode            = flag.String("mode", pipeline.ModeAll, "what to archive: videos, transcripts, or all")
		transcriptDir   = flag.String("transcript-dir", "transcripts", "directory for local transcript files")
		statePath       = flag.String("state", "", "path to the processed-episode database (empty = in-memory)")
		minDuration     = flag.Duration("min-duration", pipeline.DefaultMinDuration, "skip videos shorter than this")
		delay           = flag.Duration("delay", 2*time.Second, "pause between videos")
		lang            = flag.String("lang", "ur", "target local language code for transcripts")
		requireCaptions = flag.Bool("require-captions", false, "skip downloads for videos without captions")
		reprocess       = flag.Bool("reprocess", false, "re-archive episodes already in the processed set")
		maxHeight       = flag.Int("max-height", 720, "resolution cap for downloads")
		proxyURL        = flag.String("proxy", "", "route HTTP requests through this proxy")
		userAgents      = flag.String("user-agents", "", "comma-separated User-Agent list to rotate per request")
		timeout         = flag.Duration("timeout", 3*time.Minute, "per-request timeout")
		logLevel        = flag.String("log-level", "info", "log level: debug, info, warn, error")
		dryRun          = flag.Bool("dry-run", false, "resolve and filter only; no downloads or uploads")
	)
	flag.Parse()

	log := newLogger(*logLevel)

	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		fatal(log, errcat.Wrap(errcat.CategoryConfig, err))
	}

	identity, err := identityPolicy(*userAgents, *proxyURL)
	if err != nil {
		fatal(log, errcat.Wrap(errcat.CategoryConfig, err))
	}
	httpClient := httpx.New(httpx.Config{
		Timeout:  *timeout,
		Retry:    httpx.DefaultRetryConfig,
		Identity: identity,
	})
	ytClient := &youtube.Client{HTTPClient: httpClient}

	var processed state.ProcessedSet
	if *statePath != "" {
		store, err := state.Open(*statePath)
		if err != nil {
			fatal(log, errcat.Wrap(errcat.CategoryConfig, err))
		}
		defer store.Close()
		processed = store
	} else {
		processed = state.NewMemorySet()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink archive.Sink = nopSink{}
	if !*dryRun {
		s3cfg := archive.S3Config{
			Region:    envOr("AWS_REGION", "us-east-1"),
			Bucket:    os.Getenv("S3_BUCKET"),
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		}
		sink, err = archive.NewS3Sink(ctx, s3cfg, log)
		if err != nil {
			fatal(log, err)
		}
	}

	ytdlp := &fetch.YtdlpStrategy{MaxHeight: *maxHeight, SizeCap: "2000M"}
	if ytdlp.Available() {
		log.Info("found yt-dlp", "version", ytdlp.Version())
	} else {
		log.Warn("yt-dlp not found, relying on fallback strategies")
	}
	chain := fetch.NewChain(log, fetch.NewJitterPacer(500*time.Millisecond, time.Second), fetch.DefaultMinSize, true,
		ytdlp,
		&fetch.ClientStrategy{Client: ytClient, MaxHeight: *maxHeight},
		&fetch.DirectStrategy{Client: httpClient},
	)

	cfg := pipeline.Config{
		TranscriptDir:   *transcriptDir,
		MinDuration:     *minDuration,
		Delay:           *delay,
		TargetLang:      *lang,
		RequireCaptions: *requireCaptions,
		Reprocess:       *reprocess,
		DryRun:          *dryRun,
	}
	p := pipeline.New(cfg,
		pipeline.NewEnumerator("", ytClient),
		resolver.New(httpClient, ytClient, log),
		captions.New(ytClient, httpClient, *lang, log),
		chain,
		sink,
		processed,
		log,
	)

	summaries, err := p.Run(ctx, cat, *mode)
	for _, s := range summaries {
		switch *mode {
		case pipeline.ModeTranscripts:
			fmt.Printf("%s: %d/%d transcripts saved\n", s.Drama, s.Transcripts, s.Total)
		case pipeline.ModeAll:
			fmt.Printf("%s: %d/%d videos archived, %d transcripts saved\n", s.Drama, s.Processed, s.Total, s.Transcripts)
		default:
			fmt.Printf("%s: %d/%d videos archived\n", s.Drama, s.Processed, s.Total)
		}
	}
	if err != nil {
		fatal(log, err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func fatal(log *slog.Logger, err error) {
	log.Error("fatal", "error", err)
	os.Exit(errcat.ExitCode(err))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// identityPolicy picks static or rotating identities from the flags.
func identityPolicy(userAgents, proxy string) (httpx.IdentityPolicy, error) {
	var proxyParsed *url.URL
	if proxy != "" {
		parsed, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy url: %w", err)
		}
		proxyParsed = parsed
	}

	if userAgents == "" {
		return httpx.StaticIdentity{Identity: httpx.Identity{Proxy: proxyParsed}}, nil
	}

	var agents []string
	for _, ua := range strings.Split(userAgents, ",") {
		if ua = strings.TrimSpace(ua); ua != "" {
			agents = append(agents, ua)
		}
	}
	rotating := &httpx.RotatingIdentity{UserAgents: agents}
	if proxyParsed != nil {
		rotating.Proxies = []*url.URL{proxyParsed}
	}
	return rotating, nil
}

// nopSink backs -dry-run: nothing should ever reach it.
type nopSink struct{}

func (nopSink) Store(ctx context.Context, localPath, key string) (string, error) {
	return "", fmt.Errorf("dry run: refusing to upload %s", key)
}
