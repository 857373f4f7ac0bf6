package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
)

var (
	ogTitlePattern   = regexp.MustCompile(`(?is)<meta[^>]+(?:property|name)=["']og:title["'][^>]+content=["'](.*?)["'][^>]*>`)
	jsonTitlePattern = regexp.MustCompile(`"title":"((?:[^"\\]|\\.)*)"`)
	titleTagPattern  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

// watchPageSource scrapes the watch page itself. Three title-bearing spots
// are tried in priority order: the og:title meta tag, the player JSON's
// title field, then the document title element.
type watchPageSource struct {
	client *http.Client
}

func (s *watchPageSource) Name() string { return "watchpage" }

func (s *watchPageSource) Resolve(ctx context.Context, videoURL string) (Meta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return Meta{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Meta{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Meta{}, fmt.Errorf("watch page status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return Meta{}, err
	}
	body := string(raw)

	title := titleFromPage(body)
	if title == "" {
		return Meta{}, fmt.Errorf("no title found in page")
	}
	meta := Meta{Title: title}
	if d, ok := durationFromPage(body); ok {
		meta.Duration = d
	}
	return meta, nil
}

func titleFromPage(body string) string {
	if m := ogTitlePattern.FindStringSubmatch(body); m != nil {
		if t := strings.TrimSpace(html.UnescapeString(m[1])); t != "" {
			return t
		}
	}
	if m := jsonTitlePattern.FindStringSubmatch(body); m != nil {
		// The match is the body of a JSON string; decode it as one so
		// \uXXXX escapes come out as the characters they encode.
		var raw string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &raw); err != nil {
			raw = m[1]
		}
		if t := strings.TrimSpace(html.UnescapeString(raw)); t != "" {
			return t
		}
	}
	if m := titleTagPattern.FindStringSubmatch(body); m != nil {
		t := strings.TrimSpace(html.UnescapeString(m[1]))
		t = cleanDisplayTitle(t)
		if t != "" {
			return t
		}
	}
	return ""
}
