package sessionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const defaultBusyTimeout = 5000

// SQLite stores sessions in a single SQLite file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens or creates the database at path.
//
// The database is created with WAL mode, a 5 s busy timeout, and a single
// connection (SQLite serialises writes). The schema is migrated automatically.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sessionstore: sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sessionstore: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sessionstore: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sessionstore: set busy_timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db, now: time.Now}, nil
}

// Load implements Store.
func (s *SQLite) Load(ctx context.Context, name string) (Entry, error) {
	var (
		e       = Entry{Name: name}
		blob    []byte
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT session, user_id, username, updated_at FROM sessions WHERE name = ?", name,
	).Scan(&blob, &e.UserID, &e.Username, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("sessionstore: load %s: %w", name, err)
	}
	e.Session = blob
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return e, nil
}

// Save implements Store.
func (s *SQLite) Save(ctx context.Context, e Entry) error {
	if err := ValidateName(e.Name); err != nil {
		return err
	}
	if e.Session.Empty() {
		return errors.New("sessionstore: refusing to save an empty session")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (name, session, user_id, username, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			session = excluded.session,
			user_id = excluded.user_id,
			username = excluded.username,
			updated_at = excluded.updated_at`,
		e.Name, []byte(e.Session), e.UserID, e.Username, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sessionstore: save %s: %w", e.Name, err)
	}
	return nil
}

// Delete implements Store. Deleting a missing name returns ErrNotFound.
func (s *SQLite) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("sessionstore: delete %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List implements Store. Sessions are not loaded.
func (s *SQLite) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, user_id, username, updated_at FROM sessions ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("sessionstore: list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			updated string
		)
		if err := rows.Scan(&e.Name, &e.UserID, &e.Username, &updated); err != nil {
			return nil, fmt.Errorf("sessionstore: list: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}
