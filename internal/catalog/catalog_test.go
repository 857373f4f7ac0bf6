package catalog

import (
	"sort"
	"testing"
)

const sampleTOML = `
[[drama]]
name = "Parizaad"
url = "https://www.youtube.com/playlist?list=PLxxx"
total = 29

[[drama]]
name = "Qabeel"
url = "https://www.youtube.com/watch?v=abc&list=PLyyy"
episodes = [1, 5, 34]
max_episode = 34
`

func TestParse(t *testing.T) {
	cat, err := Parse([]byte(sampleTOML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cat.Len() != 2 {
		t.Fatalf("Len = %d, want 2", cat.Len())
	}

	p := cat.Entries[0]
	if p.Name != "Parizaad" || p.MaxEpisode != 29 {
		t.Errorf("entry 0 = %q max %d, want Parizaad max 29", p.Name, p.MaxEpisode)
	}
	if got := len(p.Episodes()); got != 29 {
		t.Errorf("Parizaad episode count = %d, want 29", got)
	}
	if !p.Wants(1) || !p.Wants(29) || p.Wants(30) {
		t.Errorf("Parizaad Wants wrong at bounds")
	}

	q := cat.Entries[1]
	if q.MaxEpisode != 34 {
		t.Errorf("Qabeel max = %d, want 34", q.MaxEpisode)
	}
	eps := q.Episodes()
	sort.Ints(eps)
	want := []int{1, 5, 34}
	if len(eps) != len(want) {
		t.Fatalf("Qabeel episodes = %v, want %v", eps, want)
	}
	for i := range want {
		if eps[i] != want[i] {
			t.Fatalf("Qabeel episodes = %v, want %v", eps, want)
		}
	}
	if q.Wants(2) {
		t.Errorf("Wants(2) = true for explicit list missing 2")
	}
}

func TestEpisodesSorted(t *testing.T) {
	e, err := NewEntry("D", "https://example.com", []int{9, 1, 4}, 10)
	if err != nil {
		t.Fatalf("NewEntry: %v", err)
	}
	eps := e.Episodes()
	if !sort.IntsAreSorted(eps) {
		t.Errorf("Episodes() = %v, want sorted", eps)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		toml string
	}{
		{"empty", ``},
		{"missing name", "[[drama]]\nurl = \"https://x\"\ntotal = 3\n"},
		{"missing url", "[[drama]]\nname = \"D\"\ntotal = 3\n"},
		{"no episodes or total", "[[drama]]\nname = \"D\"\nurl = \"https://x\"\n"},
		{"both forms", "[[drama]]\nname = \"D\"\nurl = \"https://x\"\ntotal = 3\nepisodes = [1]\n"},
		{"conflicting max", "[[drama]]\nname = \"D\"\nurl = \"https://x\"\ntotal = 3\nmax_episode = 4\n"},
		{"episode above max", "[[drama]]\nname = \"D\"\nurl = \"https://x\"\nepisodes = [5]\nmax_episode = 4\n"},
		{"zero episode", "[[drama]]\nname = \"D\"\nurl = \"https://x\"\nepisodes = [0]\nmax_episode = 4\n"},
		{"duplicate drama", "[[drama]]\nname = \"D\"\nurl = \"https://x\"\ntotal = 1\n\n[[drama]]\nname = \"D\"\nurl = \"https://y\"\ntotal = 2\n"},
	}
	for _, tc := range cases {
		if _, err := Parse([]byte(tc.toml)); err == nil {
			t.Errorf("%s: Parse accepted invalid catalog", tc.name)
		}
	}
}
