package catalog

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// fileFormat is the on-disk TOML shape:
//
//	[[drama]]
//	name = "Parizaad"
//	url = "https://www.youtube.com/playlist?list=..."
//	total = 29
//
//	[[drama]]
//	name = "Qabeel"
//	url = "https://www.youtube.com/watch?v=...&list=..."
//	episodes = [1]
//	max_episode = 34
type fileFormat struct {
	Dramas []dramaEntry `toml:"drama"`
}

type dramaEntry struct {
	Name       string `toml:"name"`
	URL        string `toml:"url"`
	Episodes   []int  `toml:"episodes"`
	Total      int    `toml:"total"`
	MaxEpisode int    `toml:"max_episode"`
}

// Load reads and validates a TOML catalog file. Both episode-list and
// 1..total forms normalize to the same internal representation; a violated
// bound is a configuration error, never a runtime fault.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes catalog TOML.
func Parse(data []byte) (*Catalog, error) {
	var file fileFormat
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Dramas) == 0 {
		return nil, fmt.Errorf("catalog has no dramas")
	}

	cat := &Catalog{Entries: make([]Entry, 0, len(file.Dramas))}
	seen := make(map[string]struct{}, len(file.Dramas))
	for _, d := range file.Dramas {
		if d.Name == "" {
			return nil, fmt.Errorf("catalog entry missing name")
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("duplicate drama %q", d.Name)
		}
		seen[d.Name] = struct{}{}
		if d.URL == "" {
			return nil, fmt.Errorf("drama %q: missing url", d.Name)
		}

		var entry Entry
		var err error
		switch {
		case len(d.Episodes) > 0 && d.Total > 0:
			return nil, fmt.Errorf("drama %q: episodes and total are mutually exclusive", d.Name)
		case len(d.Episodes) > 0:
			entry, err = NewEntry(d.Name, d.URL, d.Episodes, d.MaxEpisode)
		case d.Total > 0:
			if d.MaxEpisode > 0 && d.MaxEpisode != d.Total {
				return nil, fmt.Errorf("drama %q: max_episode conflicts with total", d.Name)
			}
			entry, err = RangeEntry(d.Name, d.URL, d.Total)
		default:
			return nil, fmt.Errorf("drama %q: need episodes or total", d.Name)
		}
		if err != nil {
			return nil, err
		}
		cat.Entries = append(cat.Entries, entry)
	}
	return cat, nil
}
