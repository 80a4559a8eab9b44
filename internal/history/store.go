// Package history keeps a sqlite log of hotspot lifecycle events.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Kinds of recorded events.
const (
	KindActivating            = "ACTIVATING"
	KindActivated             = "ACTIVATED"
	KindDeactivating          = "DEACTIVATING"
	KindForcefullyDeactivated = "FORCEFULLY_DEACTIVATED"
	KindSettled               = "SETTLED"
)

// Record is one logged lifecycle event.
type Record struct {
	ID        string    `json:"id"`
	Session   string    `json:"session"`
	HotspotID int       `json:"hotspot_id"`
	Kind      string    `json:"kind"`
	State     string    `json:"state,omitempty"`
	At        time.Time `json:"at"`
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores r. A zero At is replaced with the current time.
func (s *Store) Append(ctx context.Context, r Record) error {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO events(event_id, session_id, hotspot_id, kind, state, at)
VALUES (?, ?, ?, ?, ?, ?)
`, r.ID, r.Session, r.HotspotID, r.Kind, r.State, ts(r.At))
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT event_id, session_id, hotspot_id, kind, state, at FROM events WHERE event_id = ?
`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get event %s: %w", id, err)
	}
	return r, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT event_id, session_id, hotspot_id, kind, state, at FROM events
ORDER BY at DESC, rowid DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Activations counts completed activations per hotspot for session. An empty
// session counts across all sessions.
func (s *Store) Activations(ctx context.Context, session string) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT hotspot_id, COUNT(*) FROM events
WHERE kind = ? AND (? = '' OR session_id = ?)
GROUP BY hotspot_id
`, KindActivated, session, session)
	if err != nil {
		return nil, fmt.Errorf("count activations: %w", err)
	}
	defer rows.Close()

	out := map[int]int{}
	for rows.Next() {
		var id, n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan activation count: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var r Record
	var at string
	if err := sc.Scan(&r.ID, &r.Session, &r.HotspotID, &r.Kind, &r.State, &at); err != nil {
		return Record{}, err
	}
	t, err := parseTS(at)
	if err != nil {
		return Record{}, fmt.Errorf("parse time %q: %w", at, err)
	}
	r.At = t
	return r, nil
}

// tsLayout has fixed-width fractional seconds so stored times sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(tsLayout, s)
}
