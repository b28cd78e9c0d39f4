// Package signals broadcasts same-process refresh signals to every mounted view.
package signals

import "sync"

// Signal names. They match the event names the web client dispatches on window.
const (
	TasksRefresh   = "taskflow-tasks-refresh"
	OverdueRefresh = "taskflow-overdue-refresh"
)

type Signal struct {
	Name string
}

type subscriber struct {
	names map[string]bool
	ch    chan Signal
}

// Bus fans signals out to subscribers. Publish never blocks: when a subscriber's buffer is
// full the signal is dropped, since the refresh it asks for is already pending.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

func NewBus() *Bus {
	return &Bus{subs: map[int]*subscriber{}}
}

// Subscribe registers for the given names (all names when none are given).
// The returned cancel func unregisters and closes the channel; it is safe to call twice.
func (b *Bus) Subscribe(names ...string) (<-chan Signal, func()) {
	s := &subscriber{ch: make(chan Signal, 8)}
	if len(names) > 0 {
		s.names = map[string]bool{}
		for _, n := range names {
			s.names[n] = true
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, cancel
}

func (b *Bus) Publish(name string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		if s.names != nil && !s.names[name] {
			continue
		}
		select {
		case s.ch <- Signal{Name: name}:
		default:
		}
	}
}
