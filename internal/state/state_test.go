package state

import (
	"context"
	"path/filepath"
	"testing"
)

func TestMemorySet(t *testing.T) {
	set := NewMemorySet()

	seen, err := set.Seen("Parizaad", 3)
	if err != nil || seen {
		t.Fatalf("Seen before Mark = (%v, %v), want (false, nil)", seen, err)
	}

	if err := set.Mark(context.Background(), Record{Drama: "Parizaad", Episode: 3}); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	seen, err = set.Seen("Parizaad", 3)
	if err != nil || !seen {
		t.Fatalf("Seen after Mark = (%v, %v), want (true, nil)", seen, err)
	}

	if seen, _ := set.Seen("Parizaad", 4); seen {
		t.Error("different episode reported seen")
	}
	if seen, _ := set.Seen("Qabeel", 3); seen {
		t.Error("different drama reported seen")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	rec := Record{
		Drama:      "Parizaad",
		Episode:    7,
		VideoID:    "dQw4w9WgXcQ",
		ArchiveURL: "https://bucket.s3.us-east-1.amazonaws.com/videos/Parizaad/Parizaad_Ep7_dQw4w9WgXcQ.mp4",
	}
	if err := store.Mark(context.Background(), rec); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	seen, err := store.Seen("Parizaad", 7)
	if err != nil || !seen {
		t.Fatalf("Seen = (%v, %v), want (true, nil)", seen, err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopen: the mark must survive the restart.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	seen, err = store.Seen("Parizaad", 7)
	if err != nil || !seen {
		t.Fatalf("Seen after reopen = (%v, %v), want (true, nil)", seen, err)
	}
	if seen, _ := store.Seen("Parizaad", 8); seen {
		t.Error("unmarked episode reported seen")
	}

	n, err := store.Count("Parizaad")
	if err != nil || n != 1 {
		t.Errorf("Count = (%d, %v), want (1, nil)", n, err)
	}
}

func TestStoreMarkIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	rec := Record{Drama: "Qabeel", Episode: 1, VideoID: "a"}
	for i := 0; i < 2; i++ {
		rec.VideoID = string(rune('a' + i))
		if err := store.Mark(context.Background(), rec); err != nil {
			t.Fatalf("Mark #%d: %v", i+1, err)
		}
	}
	n, err := store.Count("Qabeel")
	if err != nil || n != 1 {
		t.Errorf("Count after double mark = (%d, %v), want (1, nil)", n, err)
	}
}
