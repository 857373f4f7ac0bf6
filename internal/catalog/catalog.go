// Package catalog holds the drama → source mapping the pipeline runs from.
// The catalog is loaded once at startup and never mutated afterwards.
package catalog

import (
	"fmt"
	"sort"
)

// Entry describes one drama: where its videos live and which episode numbers
// we want archived.
type Entry struct {
	Name       string
	URL        string
	MaxEpisode int

	episodes map[int]struct{}
}

// NewEntry builds an immutable entry from an explicit episode set. A zero
// maxEpisode means the drama's total length is unknown.
func NewEntry(name, url string, episodes []int, maxEpisode int) (Entry, error) {
	e := Entry{
		Name:       name,
		URL:        url,
		MaxEpisode: maxEpisode,
		episodes:   make(map[int]struct{}, len(episodes)),
	}
	for _, n := range episodes {
		if n < 1 {
			return Entry{}, fmt.Errorf("drama %q: episode number %d is not positive", name, n)
		}
		if maxEpisode > 0 && n > maxEpisode {
			return Entry{}, fmt.Errorf("drama %q: episode %d exceeds max_episode %d", name, n, maxEpisode)
		}
		e.episodes[n] = struct{}{}
	}
	if len(e.episodes) == 0 {
		return Entry{}, fmt.Errorf("drama %q: no desired episodes", name)
	}
	return e, nil
}

// RangeEntry builds an entry wanting every episode 1..total, with
// MaxEpisode = total. Mirrors the catalog's implicit-range form.
func RangeEntry(name, url string, total int) (Entry, error) {
	if total < 1 {
		return Entry{}, fmt.Errorf("drama %q: total %d is not positive", name, total)
	}
	episodes := make([]int, total)
	for i := range episodes {
		episodes[i] = i + 1
	}
	return NewEntry(name, url, episodes, total)
}

// Wants reports whether the episode number is on the drama's whitelist.
func (e Entry) Wants(n int) bool {
	_, ok := e.episodes[n]
	return ok
}

// Episodes returns the whitelist in ascending order.
func (e Entry) Episodes() []int {
	out := make([]int, 0, len(e.episodes))
	for n := range e.episodes {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// Catalog is an ordered list of entries; order determines processing order.
type Catalog struct {
	Entries []Entry
}

// Len returns the number of dramas.
func (c *Catalog) Len() int { return len(c.Entries) }
