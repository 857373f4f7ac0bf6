package captions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"

	"dramasync/internal/episode"
)

// languageLabels maps codes to the names used in transcript filenames.
// Unlisted codes fall back to the code itself.
var languageLabels = map[string]string{
	"en": "English",
	"ur": "Urdu",
	"hi": "Hindi",
	"ar": "Arabic",
}

func LabelFor(code string) string {
	base := strings.ToLower(strings.SplitN(code, "-", 2)[0])
	if label, ok := languageLabels[base]; ok {
		return label
	}
	return code
}

// trackLister abstracts the caption-track lookup so tests can feed tracks
// without a live player payload.
type trackLister interface {
	listTracks(ctx context.Context, videoID string) ([]youtube.CaptionTrack, error)
}

type clientLister struct {
	yt *youtube.Client
}

func (l *clientLister) listTracks(ctx context.Context, videoID string) ([]youtube.CaptionTrack, error) {
	video, err := l.yt.GetVideoContext(ctx, episode.WatchURL(videoID))
	if err != nil {
		return nil, err
	}
	return video.CaptionTracks, nil
}

// Resolver finds an English track and a target-language track for a video.
// When the target language has no native track it substitutes a machine
// translation of the English one.
type Resolver struct {
	lister     trackLister
	client     *http.Client
	targetLang string
	log        *slog.Logger
}

func New(yt *youtube.Client, httpClient *http.Client, targetLang string, log *slog.Logger) *Resolver {
	return &Resolver{
		lister:     &clientLister{yt: yt},
		client:     httpClient,
		targetLang: targetLang,
		log:        log,
	}
}

// Resolve returns the English and target-language tracks, either of which
// may be nil. A failed track listing (captions disabled, video gone) yields
// (nil, nil): that outcome is terminal for the video, not retryable.
func (r *Resolver) Resolve(ctx context.Context, videoID string) (english, local *Track) {
	tracks, err := r.lister.listTracks(ctx, videoID)
	if err != nil || len(tracks) == 0 {
		r.log.Debug("no caption tracks", "video", videoID, "error", err)
		return nil, nil
	}

	enTrack := findTrack(tracks, "en")
	localTrack := findTrack(tracks, r.targetLang)

	if enTrack != nil {
		english, err = r.fetchTrack(ctx, enTrack, "")
		if err != nil {
			r.log.Debug("english track fetch failed", "video", videoID, "error", err)
			english = nil
		}
	}

	switch {
	case localTrack != nil:
		local, err = r.fetchTrack(ctx, localTrack, "")
		if err != nil {
			r.log.Debug("local track fetch failed", "video", videoID, "error", err)
			local = nil
		}
	case enTrack != nil && enTrack.IsTranslatable:
		// Translation failures are swallowed: a partial result with only the
		// English track is still worth keeping.
		local, err = r.fetchTrack(ctx, enTrack, r.targetLang)
		if err != nil {
			r.log.Debug("translation fetch failed", "video", videoID, "lang", r.targetLang, "error", err)
			local = nil
		}
	}
	return english, local
}

// findTrack prefers a manually-authored track over an ASR one for the same
// language.
func findTrack(tracks []youtube.CaptionTrack, lang string) *youtube.CaptionTrack {
	var asr *youtube.CaptionTrack
	for i := range tracks {
		t := &tracks[i]
		if !strings.EqualFold(strings.SplitN(t.LanguageCode, "-", 2)[0], lang) {
			continue
		}
		if t.Kind == "asr" {
			if asr == nil {
				asr = t
			}
			continue
		}
		return t
	}
	return asr
}

// fetchTrack downloads and parses one timedtext track. A non-empty tlang
// asks the endpoint to translate the track into that language.
func (r *Resolver) fetchTrack(ctx context.Context, ct *youtube.CaptionTrack, tlang string) (*Track, error) {
	u, err := url.Parse(ct.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("caption base url: %w", err)
	}
	q := u.Query()
	q.Set("fmt", "json3")
	if tlang != "" {
		q.Set("tlang", tlang)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timedtext status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	entries, err := parseTimedtext(body)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("timedtext track is empty")
	}

	track := &Track{Code: ct.LanguageCode, Language: LabelFor(ct.LanguageCode), Entries: entries}
	if tlang != "" {
		track.Code = tlang
		track.Language = LabelFor(tlang)
		track.Translated = true
	}
	return track, nil
}

type timedtextResponse struct {
	Events []timedtextEvent `json:"events"`
}

type timedtextEvent struct {
	TStartMs    int64          `json:"tStartMs"`
	DDurationMs int64          `json:"dDurationMs"`
	Segs        []timedtextSeg `json:"segs"`
}

type timedtextSeg struct {
	UTF8 string `json:"utf8"`
}

func parseTimedtext(data []byte) ([]Entry, error) {
	var resp timedtextResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse timedtext: %w", err)
	}
	var entries []Entry
	for _, ev := range resp.Events {
		if len(ev.Segs) == 0 {
			continue
		}
		var text strings.Builder
		for _, seg := range ev.Segs {
			text.WriteString(seg.UTF8)
		}
		line := strings.TrimSpace(strings.ReplaceAll(text.String(), "\n", " "))
		if line == "" {
			continue
		}
		entries = append(entries, Entry{
			Start:    float64(ev.TStartMs) / 1000.0,
			Duration: float64(ev.DDurationMs) / 1000.0,
			Text:     line,
		})
	}
	return entries, nil
}
