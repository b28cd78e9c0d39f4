package tui

import (
	"fmt"
	"strings"
	"time"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/statusutil"
	"taskflow-cli/internal/views"

	"github.com/charmbracelet/lipgloss"
)

const recentNotifications = 5

func (m appModel) viewDashboard() string {
	if !m.dashLoaded {
		return styleMuted().Render("Loading dashboard…")
	}
	counter := func(label string, n int) string {
		return styleCard(false).Width(18).Render(styleHeading().Render(itoa(n)) + "\n" + label)
	}
	counters := lipgloss.JoinHorizontal(lipgloss.Top,
		counter("My tasks", m.dash.MyTasks),
		counter("Overdue", len(m.dash.Overdue)),
		counter("Upcoming", len(m.dash.Upcoming)),
		counter("Unread", m.notes.Unread()),
	)

	var b strings.Builder
	b.WriteString(counters + "\n\n")
	b.WriteString(styleHeading().Render("Overdue") + "\n")
	if len(m.dash.Overdue) == 0 {
		b.WriteString(styleMuted().Render("Nothing overdue.") + "\n")
	}
	now := m.now()
	for i, t := range m.dash.Overdue {
		line := taskLine(t, now)
		if i == m.taskIdx {
			line = styleSelected().Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + styleHeading().Render("Upcoming") + "\n")
	if len(m.dash.Upcoming) == 0 {
		b.WriteString(styleMuted().Render("No upcoming deadlines.") + "\n")
	}
	for _, t := range m.dash.Upcoming {
		b.WriteString(taskLine(t, now) + "\n")
	}

	b.WriteString("\n" + styleHeading().Render("Recent notifications") + "\n")
	items := m.notes.Items()
	if len(items) == 0 {
		b.WriteString(styleMuted().Render("No notifications."))
	}
	for i, n := range items {
		if i == recentNotifications {
			break
		}
		b.WriteString(notificationLine(n, now) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func taskLine(t model.Task, now time.Time) string {
	status := lipgloss.NewStyle().Foreground(statusColor(string(t.Status))).Render(fmt.Sprintf("%-10s", statusutil.StatusLabel(t.Status)))
	due := ""
	if t.Deadline != nil {
		due = styleMuted().Render("  due " + views.Relative(*t.Deadline, now))
	}
	return fmt.Sprintf("#%-5d %s %-7s %s%s", t.ID, status, statusutil.PriorityLabel(t.Priority), t.Title, due)
}

func (m appModel) viewTasks() string {
	header := styleHeading().Render("Tasks · "+m.taskMode.String()) + styleMuted().Render(m.taskScope())
	if !m.tasksLoaded {
		return header + "\n\n" + styleMuted().Render("Loading tasks…")
	}
	var body string
	switch m.taskMode {
	case modeKanban:
		body = m.viewKanban()
	case modeCalendar:
		body = m.viewCalendar()
	default:
		body = m.viewTaskList()
	}
	return header + "\n\n" + body
}

func (m appModel) taskScope() string {
	var parts []string
	if m.mineOnly {
		parts = append(parts, "mine")
	}
	if m.statusFilter != "" {
		parts = append(parts, statusutil.StatusLabel(m.statusFilter))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  (" + strings.Join(parts, ", ") + ")"
}

func (m appModel) viewTaskList() string {
	tasks := m.board.Tasks()
	if len(tasks) == 0 {
		return styleMuted().Render("No tasks. Press n to create one.")
	}
	now := m.now()
	// Keep the selection on screen.
	rows := max(5, m.height-10)
	start := 0
	if m.taskIdx >= rows {
		start = m.taskIdx - rows + 1
	}
	var b strings.Builder
	for i := start; i < len(tasks) && i < start+rows; i++ {
		line := taskLine(tasks[i], now)
		if tasks[i].IsOverdue {
			line += " " + styleError().Render("overdue")
		}
		if i == m.taskIdx {
			line = styleSelected().Render(line)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m appModel) viewKanban() string {
	cols := views.Kanban(m.board.Tasks())
	w := max(18, (m.width-len(cols))/len(cols))
	var rendered []string
	for ci, col := range cols {
		head := lipgloss.NewStyle().Bold(true).Foreground(statusColor(string(col.Status))).
			Render(col.Label + " (" + itoa(len(col.Tasks)) + ")")
		cards := []string{head}
		for ri, t := range col.Tasks {
			sel := ci == m.kanbanCol && ri == m.kanbanRow
			text := clip("#"+itoa(t.ID)+" "+t.Title, w-4)
			meta := statusutil.PriorityLabel(t.Priority)
			if t.IsOverdue {
				meta += " " + styleError().Render("overdue")
			}
			cards = append(cards, styleCard(sel).Width(w-2).Render(text+"\n"+meta))
		}
		if len(col.Tasks) == 0 {
			cards = append(cards, styleMuted().Render("empty"))
		}
		rendered = append(rendered, lipgloss.NewStyle().Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, cards...)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// tasksOnDay returns the tasks whose deadline falls on day's local date.
func tasksOnDay(tasks []model.Task, day time.Time) []model.Task {
	var out []model.Task
	y, mo, d := day.Date()
	for _, t := range tasks {
		if t.Deadline == nil {
			continue
		}
		ty, tm, td := t.Deadline.In(day.Location()).Date()
		if ty == y && tm == mo && td == d {
			out = append(out, t)
		}
	}
	return out
}

func (m appModel) viewCalendar() string {
	cal := views.Calendar(m.board.Tasks(), m.month)
	cell := max(10, (m.width-8)/7)
	var b strings.Builder
	b.WriteString(styleHeading().Render(fmt.Sprintf("%s %d", cal.Month, cal.Year)) + "\n")
	for _, d := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		b.WriteString(fmt.Sprintf("%-*s", cell, d))
	}
	b.WriteString("\n")
	_, _, selDay := m.month.Date()
	for _, week := range cal.Weeks {
		var cells []string
		for _, day := range week {
			label := fmt.Sprintf("%2d", day.Date.Day())
			if n := len(day.Tasks); n > 0 {
				label += " •" + itoa(n)
			}
			st := lipgloss.NewStyle().Width(cell)
			switch {
			case day.InMonth && day.Date.Day() == selDay:
				st = st.Inherit(styleSelected())
			case !day.InMonth:
				st = st.Inherit(styleMuted())
			}
			cells = append(cells, st.Render(label))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...) + "\n")
	}

	b.WriteString("\n" + styleHeading().Render(m.month.Format("Mon Jan 2")) + "\n")
	due := tasksOnDay(m.board.Tasks(), m.month)
	if len(due) == 0 {
		b.WriteString(styleMuted().Render("Nothing due."))
	}
	now := m.now()
	for _, t := range due {
		b.WriteString(taskLine(t, now) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
