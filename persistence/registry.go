package persistence

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/texelmux/texelmux/session"
)

// RegistryEntry is one row of the session registry: metadata about a
// session independent of whether its JSON snapshot is currently
// up to date or its server is currently running.
type RegistryEntry struct {
	ID             string
	Name           string
	CreatedAt      time.Time
	LastAttachedAt time.Time
	WindowCount    int
}

// Registry indexes session metadata in a SQLite database, supplying
// cross-restart history that a directory scan of live sockets can't:
// last-attached time for a detached-but-running session, and sessions
// whose server exited uncleanly. The JSON files written by
// SaveSession/LoadSession remain the source of truth for session
// content; this index is advisory only.
type Registry struct {
	db *sql.DB
}

// OpenRegistry opens (creating if necessary) the registry database at
// <DataDir>/registry.db.
func OpenRegistry() (*Registry, error) {
	dir := DataDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "persistence: create data dir")
	}
	path := filepath.Join(dir, "registry.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "persistence: open registry")
	}
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	last_attached_at INTEGER NOT NULL,
	window_count INTEGER NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "persistence: create registry schema")
	}
	return &Registry{db: db}, nil
}

// Close releases the registry's database handle.
func (r *Registry) Close() error {
	return r.db.Close()
}

// RecordCreated inserts a session's row with last_attached_at equal to
// created_at. If a row with the same id already exists, only its name
// and window_count are updated; its timestamps are kept.
func (r *Registry) RecordCreated(s *session.Session, now time.Time) error {
	const q = `
INSERT INTO sessions (id, name, created_at, last_attached_at, window_count)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, window_count=excluded.window_count`
	_, err := r.db.Exec(q, s.ID.String(), s.Name, now.Unix(), now.Unix(), len(s.Windows))
	if err != nil {
		return errors.Wrap(err, "persistence: record created session")
	}
	return nil
}

// RecordAttached updates last_attached_at and window_count for s,
// called on every Attach and after every applied command.
func (r *Registry) RecordAttached(s *session.Session, now time.Time) error {
	const q = `
UPDATE sessions SET last_attached_at = ?, window_count = ? WHERE id = ?`
	_, err := r.db.Exec(q, now.Unix(), len(s.Windows), s.ID.String())
	if err != nil {
		return errors.Wrap(err, "persistence: record attached session")
	}
	return nil
}

// Remove deletes a session's registry row by id.
func (r *Registry) Remove(id string) error {
	if _, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "persistence: remove registry row")
	}
	return nil
}

// List returns every registered session, most recently attached first.
func (r *Registry) List() ([]RegistryEntry, error) {
	rows, err := r.db.Query(`
SELECT id, name, created_at, last_attached_at, window_count
FROM sessions ORDER BY last_attached_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "persistence: list registry")
	}
	defer rows.Close()

	var entries []RegistryEntry
	for rows.Next() {
		var e RegistryEntry
		var createdAt, lastAttachedAt int64
		if err := rows.Scan(&e.ID, &e.Name, &createdAt, &lastAttachedAt, &e.WindowCount); err != nil {
			return nil, errors.Wrap(err, "persistence: scan registry row")
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		e.LastAttachedAt = time.Unix(lastAttachedAt, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "persistence: iterate registry rows")
	}
	return entries, nil
}
