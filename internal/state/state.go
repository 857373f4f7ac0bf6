// Package state tracks which (drama, episode) pairs have already been
// archived, so interrupted runs resume instead of re-downloading.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Record is what gets remembered about a processed episode.
type Record struct {
	Drama      string
	Episode    int
	VideoID    string
	ArchiveURL string
}

// ProcessedSet answers "did we already do this one".
type ProcessedSet interface {
	Seen(drama string, episode int) (bool, error)
	Mark(ctx context.Context, rec Record) error
}

// MemorySet is a run-scoped set with no persistence.
type MemorySet struct {
	mu   sync.Mutex
	done map[string]struct{}
}

func NewMemorySet() *MemorySet {
	return &MemorySet{done: make(map[string]struct{})}
}

func memoryKey(drama string, episode int) string {
	return fmt.Sprintf("%s_ep%d", drama, episode)
}

func (m *MemorySet) Seen(drama string, episode int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.done[memoryKey(drama, episode)]
	return ok, nil
}

func (m *MemorySet) Mark(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done[memoryKey(rec.Drama, rec.Episode)] = struct{}{}
	return nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS processed (
    drama        TEXT NOT NULL,
    episode      INTEGER NOT NULL,
    video_id     TEXT NOT NULL DEFAULT '',
    archive_url  TEXT NOT NULL DEFAULT '',
    processed_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (drama, episode)
);

CREATE INDEX IF NOT EXISTS idx_processed_drama ON processed(drama);
`

// Store persists the processed set in SQLite, surviving restarts.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the state database at the given path.
func Open(path string) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening state db at %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if _, err := sqlDB.Exec(createTableSQL); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating state schema: %w", err)
	}
	return &Store{db: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Seen(drama string, episode int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM processed WHERE drama = ? AND episode = ?`,
		drama, episode,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying processed set: %w", err)
	}
	return true, nil
}

func (s *Store) Mark(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processed (drama, episode, video_id, archive_url, processed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(drama, episode) DO UPDATE SET
		   video_id = excluded.video_id,
		   archive_url = excluded.archive_url,
		   processed_at = excluded.processed_at`,
		rec.Drama, rec.Episode, rec.VideoID, rec.ArchiveURL, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("marking %s episode %d: %w", rec.Drama, rec.Episode, err)
	}
	return nil
}

// Count returns how many episodes of a drama are already archived.
func (s *Store) Count(drama string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM processed WHERE drama = ?`, drama).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting processed episodes: %w", err)
	}
	return n, nil
}
