package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const oembedEndpoint = "https://www.youtube.com/oembed"

// maxPageBody caps how much of a watch page we read when scanning for the
// duration fields.
const maxPageBody = 2 * 1024 * 1024

var (
	// Player-response fields embedded in the watch page. The millisecond
	// field is preferred when both match: it is the more precise of the two.
	approxMsPattern = regexp.MustCompile(`"approxDurationMs":"(\d+)"`)
	isoDurPattern   = regexp.MustCompile(`"duration":"PT(\d+H)?(\d+M)?(\d+S)?`)

	siteSuffixPattern = regexp.MustCompile(`(?i)\s*[-|\x{2013}]\s*YouTube\s*$`)
	trailingBrackets  = regexp.MustCompile(`\s*[\[(][^\])]*[\])]\s*$`)
)

type oEmbedResponse struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// oembedSource asks the oEmbed endpoint for the title (cheap, no player
// payload) and scans the watch page separately for the duration.
type oembedSource struct {
	client   *http.Client
	endpoint string
}

func (s *oembedSource) Name() string { return "oembed" }

func (s *oembedSource) Resolve(ctx context.Context, videoURL string) (Meta, error) {
	base := s.endpoint
	if base == "" {
		base = oembedEndpoint
	}
	endpoint := base + "?" + url.Values{
		"url":    {videoURL},
		"format": {"json"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Meta{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Meta{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Meta{}, fmt.Errorf("oembed status %d", resp.StatusCode)
	}
	var payload oEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Meta{}, err
	}
	title := cleanDisplayTitle(payload.Title)
	if title == "" {
		return Meta{}, fmt.Errorf("oembed returned empty title")
	}

	meta := Meta{Title: title}
	// Duration lives in the watch page, not the oEmbed payload. A failure
	// here is not fatal: a titled video with unknown duration still resolves.
	if d, err := fetchPageDuration(ctx, s.client, videoURL); err == nil {
		meta.Duration = d
	}
	return meta, nil
}

// cleanDisplayTitle strips the site-name suffix and any trailing bracketed
// annotation a channel tacked on.
func cleanDisplayTitle(title string) string {
	title = siteSuffixPattern.ReplaceAllString(title, "")
	title = trailingBrackets.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}

func fetchPageDuration(ctx context.Context, client *http.Client, pageURL string) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("watch page status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return 0, err
	}
	d, ok := durationFromPage(string(body))
	if !ok {
		return 0, fmt.Errorf("no duration field in page")
	}
	return d, nil
}

func durationFromPage(body string) (time.Duration, bool) {
	if m := approxMsPattern.FindStringSubmatch(body); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			return time.Duration(ms) * time.Millisecond, true
		}
	}
	if m := isoDurPattern.FindStringSubmatch(body); m != nil {
		var total time.Duration
		for i, unit := range []time.Duration{time.Hour, time.Minute, time.Second} {
			g := m[i+1]
			if g == "" {
				continue
			}
			n, err := strconv.Atoi(g[:len(g)-1])
			if err != nil {
				return 0, false
			}
			total += time.Duration(n) * unit
		}
		return total, true
	}
	return 0, false
}
