// Package store implements a SQLite-backed profile store using database/sql.
// Profiles are saved as JSON documents keyed by a generated UUID, so a profile
// captured once can seed any number of later synthesis runs without re-upload.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"scrambler/internal/profile"

	// SQLite driver; replace with your preferred driver if desired.
	_ "modernc.org/sqlite" // alternative: github.com/mattn/go-sqlite3
)

// ErrNotFound reports a lookup for a profile ID that was never saved or has
// been deleted.
var ErrNotFound = errors.New("profile not found")

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	profile    TEXT NOT NULL
);`

// Record is one saved profile with its storage metadata.
type Record struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Profile   *profile.Result `json:"profile"`
}

// Store is a SQLite-backed profile store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite file at path and ensures the
// schema exists.
//
// The path is passed directly to database/sql; for example:
//
//	"file:scrambler.db?cache=shared"
//	"scrambler.db"
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store: path must not be empty")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	// Apply a basic ping with context to fail fast on invalid paths.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists p under a fresh UUID and returns the stored record.
func (s *Store) Save(ctx context.Context, p *profile.Result) (*Record, error) {
	if p == nil {
		return nil, fmt.Errorf("store: profile must not be nil")
	}

	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("store: marshal profile: %w", err)
	}

	rec := &Record{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Profile:   p,
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO profiles (id, created_at, profile) VALUES (?, ?, ?)",
		rec.ID, rec.CreatedAt.Format(time.RFC3339), string(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("store: insert: %w", err)
	}
	return rec, nil
}

// Get loads one saved profile by ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, created_at, profile FROM profiles WHERE id = ?", id)

	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get: %w", err)
	}
	return rec, nil
}

// List returns all saved profiles, newest first.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, created_at, profile FROM profiles ORDER BY created_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list rows: %w", err)
	}
	return out, nil
}

// Delete removes one saved profile; deleting an unknown ID is ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("store: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(scan func(dest ...any) error) (*Record, error) {
	var (
		id, createdAt, doc string
	)
	if err := scan(&id, &createdAt, &doc); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	var p profile.Result
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}

	return &Record{ID: id, CreatedAt: ts, Profile: &p}, nil
}
