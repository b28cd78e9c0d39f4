package notify

import (
	"io"
	"sync"

	"taskflow-cli/internal/model"

	"github.com/muesli/termenv"
)

// Chime is the audible/visual cue for a pushed notification. Failures are swallowed.
type Chime interface {
	Ring(n model.Notification)
}

// NopChime never makes a sound.
type NopChime struct{}

func (NopChime) Ring(model.Notification) {}

// TerminalChime rings the terminal bell and asks the terminal emulator for a desktop
// notification (OSC 777). Terminals that don't understand OSC 777 ignore it.
type TerminalChime struct {
	mu  sync.Mutex
	out *termenv.Output
}

func NewTerminalChime(w io.Writer) *TerminalChime {
	return &TerminalChime{out: termenv.NewOutput(w)}
}

func (c *TerminalChime) Ring(n model.Notification) {
	if c == nil || c.out == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, "\a")
	c.out.Notify(n.Title, n.Message)
}
