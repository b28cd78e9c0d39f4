package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteFileName = "session.sqlite"

// DB is the local client database: the persisted session and small UI state.
type DB struct {
	Dir string
	db  *sql.DB
}

// Open opens (creating if missing) <dir>/session.sqlite and applies migrations.
func Open(ctx context.Context, dir string) (*DB, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("store: empty dir")
	}
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", filepath.Join(dir, sqliteFileName))
	if err != nil {
		return nil, err
	}
	// The CLI and the TUI may run side by side; WAL + busy_timeout keeps them from tripping
	// over "database is locked".
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{Dir: dir, db: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			access TEXT NOT NULL,
			refresh TEXT NOT NULL,
			user_json TEXT,
			updated_at_unixms INTEGER NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO meta(k, v) VALUES('schema_version', '1')`)
	return err
}

func (d *DB) getMeta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := d.db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (d *DB) setMeta(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `INSERT OR REPLACE INTO meta(k, v) VALUES(?, ?)`, key, value)
	return err
}
