package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/session"
)

// SessionDB persists the single session row.
type SessionDB struct {
	db *DB
}

var _ session.Persister = SessionDB{}

func (d *DB) Sessions() SessionDB { return SessionDB{db: d} }

func (s SessionDB) Load(ctx context.Context) (session.Snapshot, error) {
	var (
		snap     session.Snapshot
		userJSON sql.NullString
	)
	err := s.db.db.QueryRowContext(ctx, `SELECT access, refresh, user_json FROM session WHERE id = 1`).
		Scan(&snap.Access, &snap.Refresh, &userJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Snapshot{}, nil
	}
	if err != nil {
		return session.Snapshot{}, err
	}
	if userJSON.Valid && userJSON.String != "" {
		var u model.User
		// A row written by an older client may not decode; keep the tokens regardless.
		if err := json.Unmarshal([]byte(userJSON.String), &u); err == nil {
			snap.User = &u
		}
	}
	return snap, nil
}

func (s SessionDB) Save(ctx context.Context, snap session.Snapshot) error {
	var userJSON sql.NullString
	if snap.User != nil {
		b, err := json.Marshal(snap.User)
		if err != nil {
			return err
		}
		userJSON = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO session(id, access, refresh, user_json, updated_at_unixms) VALUES(1, ?, ?, ?, ?)`,
		snap.Access, snap.Refresh, userJSON, time.Now().UnixMilli(),
	)
	return err
}

func (s SessionDB) Clear(ctx context.Context) error {
	_, err := s.db.db.ExecContext(ctx, `DELETE FROM session`)
	return err
}
