// Package tui is the full-screen client: login, dashboard, tasks, chat, notifications and
// user administration over one authenticated session.
package tui

import (
	"context"
	"errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// Chimes go to stderr so they never interleave with frames on stdout.
var stderr io.Writer = os.Stderr

func Run(ctx context.Context, deps Deps) error {
	applyColorProfilePreference()
	applyThemePreference()

	m := newAppModel(deps)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	h := m.hub
	h.attach(ctx, p.Send)
	deps.Client.SetOnSessionExpired(func() { h.post(sessionExpiredMsg{}) })
	unwatch := m.notes.OnChange(func() { h.post(notificationsChangedMsg{}) })
	m.board.OnChange(func() { h.post(boardChangedMsg{}) })

	final, err := p.Run()
	unwatch()
	h.stopAll()
	if fm, ok := final.(appModel); ok {
		fm.closeDetail()
		fm.saveState()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
