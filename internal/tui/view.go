package tui

import (
	"strconv"
	"strings"

	"taskflow-cli/internal/views"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func itoa(n int) string { return strconv.Itoa(n) }

// clip cuts an already-styled line to w cells.
func clip(s string, w int) string {
	if w <= 0 {
		return s
	}
	return ansi.Truncate(s, w, "…")
}

func (m appModel) View() string {
	if m.view == viewLogin {
		return m.viewLogin()
	}
	if m.modal != modalNone {
		return placeModal(m.width, m.height, m.viewModal())
	}

	var body string
	switch m.view {
	case viewDashboard:
		body = m.viewDashboard()
	case viewTasks:
		body = m.viewTasks()
	case viewTask:
		body = m.viewTask()
	case viewChat:
		body = m.viewChat()
	case viewNotifications:
		body = m.viewNotifications()
	case viewUsers:
		body = m.viewUsers()
	}

	parts := []string{m.viewNav()}
	if m.overdue > 0 && m.view != viewDashboard {
		parts = append(parts, styleOverdueStrip().Render(
			"You have "+itoa(m.overdue)+" overdue task"+plural(m.overdue)+". Press 1 for the dashboard."))
	}
	parts = append(parts, body, m.viewFooter())
	out := strings.Join(parts, "\n\n")
	if m.width > 0 {
		lines := strings.Split(out, "\n")
		for i, l := range lines {
			lines[i] = clip(l, m.width)
		}
		out = strings.Join(lines, "\n")
	}
	return out
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func (m appModel) viewNav() string {
	var tabs []string
	for i, v := range m.navViews() {
		label := itoa(i+1) + " " + navLabel(v)
		badge := ""
		switch v {
		case viewDashboard:
			badge = views.Badge(m.overdue)
		case viewNotifications:
			badge = views.Badge(m.notes.Unread())
		}
		active := m.view == v || (v == viewTasks && m.view == viewTask)
		tab := styleTab(active).Render(label)
		if badge != "" {
			tab += styleBadge().Render(badge)
		}
		tabs = append(tabs, tab)
	}
	who := ""
	if u := m.me(); u != nil {
		who = styleMuted().Render("  " + u.DisplayName())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(tabs, " "), who)
}

func navLabel(v view) string {
	switch v {
	case viewDashboard:
		return "Dashboard"
	case viewTasks:
		return "Tasks"
	case viewChat:
		return "Chat"
	case viewNotifications:
		return "Notifications"
	case viewUsers:
		return "Users"
	}
	return ""
}

func (m appModel) viewFooter() string {
	var b strings.Builder
	if m.flash != "" {
		if m.flashErr {
			b.WriteString(styleError().Render(m.flash))
		} else {
			b.WriteString(styleHeading().Render(m.flash))
		}
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.helpFor()))
	return b.String()
}

func (m appModel) viewLogin() string {
	var b strings.Builder
	b.WriteString(styleHeading().Render("TaskFlow") + "\n")
	b.WriteString(styleMuted().Render(m.client.Origin()) + "\n\n")
	b.WriteString("Username " + m.loginUser.View() + "\n")
	b.WriteString("Password " + m.loginPass.View() + "\n\n")
	switch {
	case m.loggingIn:
		b.WriteString(styleMuted().Render("Logging in…"))
	case m.loginErr != "":
		b.WriteString(styleError().Render(m.loginErr))
	default:
		b.WriteString(styleMuted().Render("tab switch field · enter log in · ctrl+c quit"))
	}
	box := styleModal().Width(min(56, max(36, m.width-4))).Render(b.String())
	return placeModal(m.width, m.height, box)
}
