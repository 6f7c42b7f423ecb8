// Package history persists the record of successful pins so the CLI can
// list and flush them across worker restarts.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Pin is one successfully pinned upload.
type Pin struct {
	ID        string
	CID       string
	Filename  string
	Bytes     int64
	SourceURL string
	PinnedAt  time.Time
}

// Store is a SQLite-backed pin history.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS pins (
    id         TEXT PRIMARY KEY,
    cid        TEXT NOT NULL,
    filename   TEXT NOT NULL,
    bytes      INTEGER NOT NULL,
    source_url TEXT NOT NULL,
    pinned_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS pins_pinned_at ON pins(pinned_at);
`

// Open opens (creating if needed) the pin history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("cannot create pin history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("cannot open pin history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot initialize pin history: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts one pin. An empty ID is filled with a fresh UUID, a zero
// PinnedAt with the current time. The stored pin is returned.
func (s *Store) Record(p Pin) (Pin, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PinnedAt.IsZero() {
		p.PinnedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO pins (id, cid, filename, bytes, source_url, pinned_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.CID, p.Filename, p.Bytes, p.SourceURL, p.PinnedAt.Unix(),
	)
	if err != nil {
		return Pin{}, fmt.Errorf("recording pin: %w", err)
	}
	return p, nil
}

// List returns all pins, most recent first.
func (s *Store) List() ([]Pin, error) {
	rows, err := s.db.Query(
		`SELECT id, cid, filename, bytes, source_url, pinned_at FROM pins ORDER BY pinned_at DESC, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pins: %w", err)
	}
	defer rows.Close()

	var pins []Pin
	for rows.Next() {
		var p Pin
		var pinnedAt int64
		if err := rows.Scan(&p.ID, &p.CID, &p.Filename, &p.Bytes, &p.SourceURL, &pinnedAt); err != nil {
			return nil, fmt.Errorf("scanning pin row: %w", err)
		}
		p.PinnedAt = time.Unix(pinnedAt, 0)
		pins = append(pins, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pin rows: %w", err)
	}
	return pins, nil
}

// Flush deletes the whole pin history and returns the number of rows removed.
func (s *Store) Flush() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM pins`)
	if err != nil {
		return 0, fmt.Errorf("flushing pin history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("flushing pin history: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
