// Package session holds the authenticated identity for the lifetime of a process.
//
// The store is the single source of the bearer token: the API client reads it before every
// request, live connections read it on every dial, and a refresh replaces it in place.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"taskflow-cli/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Snapshot is the persisted form of a session.
type Snapshot struct {
	Access  string
	Refresh string
	User    *model.User
}

func (s Snapshot) Empty() bool {
	return s.Access == "" && s.Refresh == "" && s.User == nil
}

// Persister saves the session between processes.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	Clear(ctx context.Context) error
}

// Refresher exchanges a refresh token for a new access token. user may be nil when the
// backend does not return one.
type Refresher func(ctx context.Context, refresh string) (access string, user *model.User, err error)

var ErrNoRefreshToken = errors.New("no refresh token")

type Store struct {
	mu   sync.RWMutex
	tok  *oauth2.Token
	user *model.User

	persist   Persister
	refresher Refresher
	log       *zap.Logger
}

// New returns an empty store. persist and log may be nil.
func New(persist Persister, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{persist: persist, log: log}
}

// SetRefresher installs the token exchange used by Refresh.
func (s *Store) SetRefresher(r Refresher) {
	s.mu.Lock()
	s.refresher = r
	s.mu.Unlock()
}

// Load restores the persisted session, if any.
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	snap, err := s.persist.Load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Access == "" && snap.Refresh == "" {
		s.tok, s.user = nil, nil
		return nil
	}
	s.tok = newToken(snap.Access, snap.Refresh)
	s.user = snap.User
	return nil
}

// SetAuth records a successful login.
func (s *Store) SetAuth(ctx context.Context, access, refresh string, user *model.User) error {
	s.mu.Lock()
	s.tok = newToken(access, refresh)
	s.user = user
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return s.save(ctx, snap)
}

func (s *Store) SetUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	s.user = user
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return s.save(ctx, snap)
}

// Token returns a copy of the current token, or nil when logged out.
func (s *Store) Token() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil {
		return nil
	}
	cp := *s.tok
	return &cp
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil {
		return ""
	}
	return s.tok.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil {
		return ""
	}
	return s.tok.RefreshToken
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	cp := *s.user
	return &cp
}

func (s *Store) LoggedIn() bool {
	return s.AccessToken() != ""
}

// Expiry is the access token's exp claim; zero when unknown.
func (s *Store) Expiry() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tok == nil {
		return time.Time{}
	}
	return s.tok.Expiry
}

// Refresh exchanges the refresh token for a new access token. It reports whether the session
// now holds a fresh token; failures are logged and never returned.
func (s *Store) Refresh(ctx context.Context) bool {
	s.mu.RLock()
	refresher := s.refresher
	rt := ""
	if s.tok != nil {
		rt = s.tok.RefreshToken
	}
	s.mu.RUnlock()

	if rt == "" || refresher == nil {
		s.log.Debug("session refresh skipped", zap.Error(ErrNoRefreshToken))
		return false
	}
	access, user, err := refresher(ctx, rt)
	if err != nil || access == "" {
		s.log.Info("session refresh failed", zap.Error(err))
		return false
	}

	s.mu.Lock()
	// A logout that raced the exchange wins.
	if s.tok == nil || s.tok.RefreshToken != rt {
		s.mu.Unlock()
		return false
	}
	s.tok = newToken(access, rt)
	if user != nil {
		s.user = user
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.save(ctx, snap); err != nil {
		s.log.Warn("persist refreshed session", zap.Error(err))
	}
	return true
}

// Logout clears the token pair, the user and the persisted session.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.tok = nil
	s.user = nil
	s.mu.Unlock()
	if s.persist == nil {
		return
	}
	if err := s.persist.Clear(ctx); err != nil {
		s.log.Warn("clear persisted session", zap.Error(err))
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	var snap Snapshot
	if s.tok != nil {
		snap.Access = s.tok.AccessToken
		snap.Refresh = s.tok.RefreshToken
	}
	if s.user != nil {
		cp := *s.user
		snap.User = &cp
	}
	return snap
}

func (s *Store) save(ctx context.Context, snap Snapshot) error {
	if s.persist == nil {
		return nil
	}
	return s.persist.Save(ctx, snap)
}

func newToken(access, refresh string) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       AccessExpiry(access),
	}
}

// AccessExpiry reads the exp claim without verifying the signature. The backend is the only
// party that checks tokens; the client uses the value for display.
func AccessExpiry(access string) time.Time {
	if access == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
