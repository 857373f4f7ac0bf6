// Package captions resolves a video's caption tracks, with automatic
// translation as a stand-in when the target language has no native track,
// and renders them in the two on-disk forms the archive keeps.
package captions

import (
	"fmt"
	"strings"
)

// Entry is one caption cue. Start is in seconds.
type Entry struct {
	Start    float64
	Duration float64
	Text     string
}

// Track is a fetched caption track. Translated marks a machine translation
// substituted for a missing native track.
type Track struct {
	Language   string
	Code       string
	Translated bool
	Entries    []Entry
}

// Timestamped renders the track one cue per line, each prefixed with its
// start time: "[123.45] text".
func (t *Track) Timestamped() string {
	var b strings.Builder
	for _, e := range t.Entries {
		fmt.Fprintf(&b, "[%.2f] %s\n", e.Start, e.Text)
	}
	return b.String()
}

// Flattened renders the track as a single space-joined line of text.
func (t *Track) Flattened() string {
	parts := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		if e.Text != "" {
			parts = append(parts, e.Text)
		}
	}
	return strings.Join(parts, " ")
}
