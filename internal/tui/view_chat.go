package tui

import (
	"strings"
	"time"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/views"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const channelPaneWidth = 30

func (m appModel) viewChat() string {
	me := m.meID()
	var left strings.Builder
	left.WriteString(styleHeading().Render("Channels") + "\n")
	if len(m.channels) == 0 {
		left.WriteString(styleMuted().Render("No channels. n starts one."))
	}
	for i, ch := range m.channels {
		name := views.ChannelDisplayName(ch, me)
		if ch.ID == m.channelID {
			name = "● " + name
		}
		line := clip(name, channelPaneWidth-2)
		if sub := views.ChannelSubtitle(ch); sub != "" {
			line += "\n" + styleMuted().Render(clip(sub, channelPaneWidth-2))
		}
		if i == m.chanIdx {
			line = styleSelected().Render(line)
		}
		left.WriteString(line + "\n")
	}
	pane := lipgloss.NewStyle().Width(channelPaneWidth).
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(colorCardBorder).
		Render(strings.TrimRight(left.String(), "\n"))

	var right string
	if m.channelID == 0 {
		right = styleMuted().Render("Select a channel and press enter.")
	} else {
		prompt := styleMuted().Render("i to write")
		if m.composing {
			prompt = "> " + m.composer.View()
		}
		right = m.chatScroll.View() + "\n" + prompt
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, pane, " ", right)
}

// refreshChatScroll re-renders the open channel into the viewport and sticks to the newest
// message.
func (m *appModel) refreshChatScroll() {
	m.chatScroll.SetContent(renderMessages(m.messages.Items(), m.meID(), m.chatScroll.Width))
	m.chatScroll.GotoBottom()
}

func renderMessages(msgs []model.Message, me, width int) string {
	if len(msgs) == 0 {
		return styleMuted().Render("No messages yet.")
	}
	var b strings.Builder
	var lastDay string
	for _, msg := range msgs {
		local := msg.CreatedAt.Local()
		if day := local.Format(time.DateOnly); day != lastDay {
			b.WriteString(styleMuted().Render("── "+local.Format("Mon Jan 2")+" ──") + "\n")
			lastDay = day
		}
		who := msg.SenderDetail.Username
		if msg.Sender == me {
			who = "you"
		}
		b.WriteString(styleHeading().Render(who) + styleMuted().Render(" "+local.Format("15:04")) + "\n")
		text := msg.Content
		for _, a := range msg.Attachments {
			text += "\n" + styleMuted().Render("📎 "+a.Filename)
		}
		b.WriteString(lipgloss.NewStyle().Width(max(10, width)).Render(strings.TrimSpace(text)) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func notificationLine(n model.Notification, now time.Time) string {
	mark := "  "
	if !n.Read {
		mark = "● "
	}
	line := mark + n.Title
	if n.Message != "" {
		line += styleMuted().Render("  " + views.Truncate(n.Message, 60))
	}
	return line + styleMuted().Render("  "+views.Relative(n.CreatedAt, now))
}

func (m appModel) viewNotifications() string {
	items := m.notes.Items()
	head := styleHeading().Render("Notifications") + styleMuted().Render("  "+itoa(m.notes.Unread())+" unread")
	if len(items) == 0 {
		if m.notes.Loading() {
			return head + "\n\n" + styleMuted().Render("Loading…")
		}
		return head + "\n\n" + styleMuted().Render("You are all caught up.")
	}
	now := m.now()
	var b strings.Builder
	for i, n := range items {
		line := notificationLine(n, now)
		if i == m.noteIdx {
			line = styleSelected().Render(line)
		}
		b.WriteString(line + "\n")
	}
	return head + "\n\n" + strings.TrimRight(b.String(), "\n")
}

func (m appModel) viewUsers() string {
	if len(m.users) == 0 {
		return styleMuted().Render("Loading users…")
	}
	rows := make([][]string, len(m.users))
	for i, u := range m.users {
		role := ""
		if u.RoleDetail != nil {
			role = u.RoleDetail.Name
		}
		active := "yes"
		if !u.IsActive {
			active = "no"
		}
		rows[i] = []string{itoa(u.ID), u.Username, u.DisplayName(), u.Email, role, active}
	}
	sel := m.userIdx
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorCardBorder)).
		Headers("ID", "Username", "Name", "Email", "Role", "Active").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeading().Padding(0, 1)
			case row == sel:
				return styleSelected().Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return styleHeading().Render("Users") + "\n\n" + t.Render()
}
