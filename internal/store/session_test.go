package store

import (
	"context"
	"testing"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/session"
)

func TestSessionDB_SaveLoadClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	db, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	sessions := db.Sessions()
	got, err := sessions.Load(ctx)
	if err != nil || !got.Empty() {
		t.Fatalf("expected empty session; got %+v err=%v", got, err)
	}

	want := session.Snapshot{Access: "a", Refresh: "r", User: &model.User{ID: 3, Username: "grace", IsStaff: true}}
	if err := sessions.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Reopen to prove the row survives the process.
	_ = db.Close()
	db2, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db2.Close()

	got, err = db2.Sessions().Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Access != "a" || got.Refresh != "r" || got.User == nil || got.User.Username != "grace" || !got.User.IsStaff {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	if err := db2.Sessions().Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, _ = db2.Sessions().Load(ctx)
	if !got.Empty() {
		t.Fatalf("expected empty after clear; got %+v", got)
	}
}

func TestSessionDB_BacksSessionStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	s := session.New(db.Sessions(), nil)
	if err := s.SetAuth(ctx, "a1", "r1", &model.User{ID: 1, Username: "ada"}); err != nil {
		t.Fatalf("SetAuth: %v", err)
	}
	s2 := session.New(db.Sessions(), nil)
	if err := s2.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s2.RefreshToken() != "r1" || s2.User().Username != "ada" {
		t.Fatalf("unexpected restored session: %+v", s2.Snapshot())
	}
	s2.Logout(ctx)
	snap, _ := db.Sessions().Load(ctx)
	if !snap.Empty() {
		t.Fatalf("logout should clear the row; got %+v", snap)
	}
}
