package tui

import (
	"context"
	"sync"

	"taskflow-cli/internal/live"
	"taskflow-cli/internal/signals"

	tea "github.com/charmbracelet/bubbletea"
)

// Live consumer slots. Starting a slot stops whatever ran in it before.
const (
	slotNotifications = "notifications"
	slotChat          = "chat"
	slotComments      = "comments"
)

// hub owns the goroutines that feed the update loop from outside: live consumers and the
// signals bus. Before attach (and in tests) nothing is started and posts are dropped.
type hub struct {
	mu      sync.Mutex
	ctx     context.Context
	send    func(tea.Msg)
	cancels map[string]context.CancelFunc
	group   live.Group
}

func newHub() *hub {
	return &hub{cancels: map[string]context.CancelFunc{}}
}

func (h *hub) attach(ctx context.Context, send func(tea.Msg)) {
	h.mu.Lock()
	h.ctx, h.send = ctx, send
	h.mu.Unlock()
}

func (h *hub) attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.send != nil
}

// post never blocks the caller. Store and editor callbacks can fire from inside Update, where
// a synchronous Program.Send would deadlock.
func (h *hub) post(msg tea.Msg) {
	h.mu.Lock()
	send := h.send
	h.mu.Unlock()
	if send != nil {
		go send(msg)
	}
}

// start runs fn in slot until the slot is stopped or the program exits.
func (h *hub) start(slot string, fn func(context.Context)) {
	h.mu.Lock()
	if h.send == nil {
		h.mu.Unlock()
		return
	}
	if cancel := h.cancels[slot]; cancel != nil {
		cancel()
	}
	ctx, cancel := context.WithCancel(h.ctx)
	h.cancels[slot] = cancel
	h.mu.Unlock()
	h.group.Go(ctx, fn)
}

func (h *hub) stop(slot string) {
	h.mu.Lock()
	cancel := h.cancels[slot]
	delete(h.cancels, slot)
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// forward relays bus signals into the update loop until the slot stops.
func (h *hub) forward(bus *signals.Bus) {
	h.start("signals", func(ctx context.Context) {
		ch, unsubscribe := bus.Subscribe(signals.TasksRefresh, signals.OverdueRefresh)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-ch:
				if !ok {
					return
				}
				h.post(signalMsg{name: s.Name})
			}
		}
	})
}

// stopAll cancels every slot and waits for the goroutines to return.
func (h *hub) stopAll() {
	h.mu.Lock()
	for slot, cancel := range h.cancels {
		cancel()
		delete(h.cancels, slot)
	}
	h.send = nil
	h.mu.Unlock()
	h.group.Wait()
}
