// Package store persists snapshots in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/five82/snapwatch/internal/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	url        TEXT NOT NULL,
	favicon    INTEGER NOT NULL DEFAULT 0,
	ready      INTEGER NOT NULL DEFAULT 0,
	files      INTEGER NOT NULL DEFAULT 0,
	size       INTEGER,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS snapshots_created_at ON snapshots(created_at DESC);
`

// Store is the snapshot table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const selectColumns = `SELECT id, title, url, favicon, ready, files, size, created_at FROM snapshots`

// Find returns the snapshot with id. found is false when there is none.
func (s *Store) Find(ctx context.Context, id string) (snapshot.Snapshot, bool, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	snap, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return snapshot.Snapshot{}, false, nil
	}
	if err != nil {
		return snapshot.Snapshot{}, false, fmt.Errorf("find snapshot %s: %w", id, err)
	}
	return snap, true, nil
}

// List returns every snapshot, newest first.
func (s *Store) List(ctx context.Context) ([]snapshot.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Snapshot
	for rows.Next() {
		snap, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// Create inserts a new, not yet ready snapshot.
func (s *Store) Create(ctx context.Context, title, url string) (snapshot.Snapshot, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return snapshot.Snapshot{}, fmt.Errorf("create snapshot: url is required")
	}
	snap := snapshot.Snapshot{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		URL:       url,
		CreatedAt: s.now().UTC(),
	}
	if snap.Title == "" {
		snap.Title = url
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, title, url, created_at) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.Title, snap.URL, snap.CreatedAt.UnixNano())
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("create snapshot: %w", err)
	}
	return snap, nil
}

// MarkReady records the finished artifact statistics. Ready never goes back
// to false, so a second call for the same id changes nothing and reports false.
func (s *Store) MarkReady(ctx context.Context, id string, files int, size int64, favicon bool) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE snapshots SET ready = 1, files = ?, size = ?, favicon = ? WHERE id = ? AND ready = 0`,
		files, size, favicon, id)
	if err != nil {
		return false, fmt.Errorf("mark snapshot %s ready: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark snapshot %s ready: %w", id, err)
	}
	return n > 0, nil
}

// Delete removes id and reports whether it existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (snapshot.Snapshot, error) {
	var (
		snap    snapshot.Snapshot
		size    sql.NullInt64
		created int64
	)
	if err := row.Scan(&snap.ID, &snap.Title, &snap.URL, &snap.Favicon, &snap.Ready, &snap.Files, &size, &created); err != nil {
		return snapshot.Snapshot{}, err
	}
	if size.Valid {
		v := size.Int64
		snap.Size = &v
	}
	snap.CreatedAt = time.Unix(0, created).UTC()
	return snap, nil
}
