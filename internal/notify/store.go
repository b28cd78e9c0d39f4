// Package notify is the process-wide notifications state: the list, the unread count and
// the audio cue for pushes.
package notify

import (
	"context"
	"sync"

	"taskflow-cli/internal/model"
)

// Backend is the subset of the notifications API the store needs.
type Backend interface {
	List(ctx context.Context) ([]model.Notification, error)
	MarkRead(ctx context.Context, id int) error
	MarkAllRead(ctx context.Context) error
}

type Store struct {
	backend Backend

	mu      sync.Mutex
	items   []model.Notification
	unread  int
	loading bool

	subMu  sync.Mutex
	nextID int
	subs   map[int]func()
}

func New(backend Backend) *Store {
	return &Store{backend: backend, subs: map[int]func(){}}
}

// Fetch replaces the list with the server's and recounts unread.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.changed()

	items, err := s.backend.List(ctx)

	s.mu.Lock()
	s.loading = false
	if err == nil {
		s.items = append([]model.Notification(nil), items...)
		s.unread = 0
		for _, n := range s.items {
			if !n.Read {
				s.unread++
			}
		}
	}
	s.mu.Unlock()
	s.changed()
	return err
}

// MarkRead calls the API first; local state only changes on success.
func (s *Store) MarkRead(ctx context.Context, id int) error {
	if err := s.backend.MarkRead(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	found := false
	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		found = true
		if !s.items[i].Read {
			s.items[i].Read = true
			s.unread--
		}
	}
	if !found {
		s.unread--
	}
	if s.unread < 0 {
		s.unread = 0
	}
	s.mu.Unlock()
	s.changed()
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context) error {
	if err := s.backend.MarkAllRead(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.unread = 0
	s.mu.Unlock()
	s.changed()
	return nil
}

// Push prepends n, replacing any item with the same id. An unread notification is counted
// once no matter how many times it is delivered.
func (s *Store) Push(n model.Notification) {
	s.mu.Lock()
	out := make([]model.Notification, 0, len(s.items)+1)
	out = append(out, n)
	for _, x := range s.items {
		if x.ID == n.ID {
			if !x.Read {
				s.unread--
			}
			continue
		}
		out = append(out, x)
	}
	s.items = out
	if !n.Read {
		s.unread++
	}
	if s.unread < 0 {
		s.unread = 0
	}
	s.mu.Unlock()
	s.changed()
}

// Reset drops everything (logout).
func (s *Store) Reset() {
	s.mu.Lock()
	s.items = nil
	s.unread = 0
	s.loading = false
	s.mu.Unlock()
	s.changed()
}

func (s *Store) Items() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.items...)
}

func (s *Store) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// OnChange registers fn to run after every state change. fn runs on the mutating goroutine
// and must not block.
func (s *Store) OnChange(fn func()) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) changed() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
