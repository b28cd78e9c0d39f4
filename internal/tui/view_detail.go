package tui

import (
	"strings"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/preview"
	"taskflow-cli/internal/statusutil"
	"taskflow-cli/internal/views"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

func (m appModel) viewTask() string {
	d := m.detail
	switch {
	case d == nil:
		return ""
	case d.notFound:
		return styleError().Render("Task #"+itoa(d.id)+" was not found.") + "\n" +
			styleMuted().Render("It may have been deleted. Press esc to go back.")
	case d.loading && d.editor == nil:
		return styleMuted().Render("Loading task #" + itoa(d.id) + "…")
	}

	t := d.task()
	now := m.now()
	var b strings.Builder
	b.WriteString(styleHeading().Render("#"+itoa(t.ID)+" "+t.Title) + "\n")

	status := lipgloss.NewStyle().Foreground(statusColor(string(t.Status))).Bold(true).Render(statusutil.StatusLabel(t.Status))
	meta := []string{
		status,
		statusutil.PriorityLabel(t.Priority),
		views.FormatDeadline(t.Deadline, now),
	}
	if t.IsOverdue {
		meta = append(meta, styleError().Render("overdue"))
	}
	b.WriteString(strings.Join(meta, styleMuted().Render(" · ")) + "\n")

	var who []string
	if t.CreatedByDetail != nil {
		who = append(who, "by "+userLabel(*t.CreatedByDetail))
	}
	if len(t.AssigneeUsers()) > 0 {
		who = append(who, "assigned to "+assigneeNames(t))
	} else if t.AssignedToRoleDetail != nil {
		who = append(who, "assigned to role "+t.AssignedToRoleDetail.Name)
	}
	if len(who) > 0 {
		b.WriteString(styleMuted().Render(strings.Join(who, " · ")) + "\n")
	}

	if desc := renderMarkdown(t.Description, max(20, m.width-4)); desc != "" {
		b.WriteString("\n" + desc + "\n")
	}

	b.WriteString("\n" + m.viewSectionTabs() + "\n")
	b.WriteString(m.viewSection())
	return strings.TrimRight(b.String(), "\n")
}

func (m appModel) viewSectionTabs() string {
	d := m.detail
	counts := []int{d.comments.Len(), len(d.links), len(d.attachments), len(d.history)}
	var tabs []string
	for s := sectionComments; s <= sectionHistory; s++ {
		tabs = append(tabs, styleTab(s == d.section).Render(s.String()+" "+itoa(counts[s])))
	}
	return strings.Join(tabs, " ")
}

func (m appModel) viewSection() string {
	d := m.detail
	now := m.now()
	var lines []string
	switch d.section {
	case sectionComments:
		for _, c := range d.comments.Items() {
			author := "user " + itoa(c.Author)
			if c.AuthorDetail != nil {
				author = c.AuthorDetail.Username
			}
			head := styleHeading().Render(author) + styleMuted().Render(" "+humanize.RelTime(c.CreatedAt, now, "ago", "from now"))
			lines = append(lines, head+"\n"+c.Body)
		}
		if len(lines) == 0 {
			return styleMuted().Render("No comments yet.")
		}
	case sectionLinks:
		for _, l := range d.links {
			text := l.URL
			if l.Label != "" {
				text = l.Label + styleMuted().Render("  "+l.URL)
			}
			lines = append(lines, text)
		}
		if len(lines) == 0 {
			return styleMuted().Render("No links. Press L to add one.")
		}
	case sectionAttachments:
		for _, a := range d.attachments {
			kind := preview.Classify(a.Filename)
			text := a.Filename + styleMuted().Render("  "+string(kind))
			if kind == preview.KindPDF && d.previews != nil {
				if _, ok := d.previews.Path(a.ID); ok {
					text += styleMuted().Render(" (ready)")
				}
			}
			lines = append(lines, text)
		}
		if len(lines) == 0 {
			return styleMuted().Render("No attachments.")
		}
	case sectionHistory:
		for _, e := range d.history {
			by := ""
			if e.ChangedBy != nil {
				by = " by " + e.ChangedBy.Username
			}
			lines = append(lines, views.StatusTransition(e)+styleMuted().Render(by+"  "+views.Relative(e.CreatedAt, now)))
		}
		if len(lines) == 0 {
			return styleMuted().Render("No status changes recorded.")
		}
	}
	for i := range lines {
		if i == d.sel {
			lines[i] = styleSelected().Render(lines[i])
		}
	}
	return strings.Join(lines, "\n")
}

// assigneeNames is the comma-joined usernames for a task, or "unassigned".
func assigneeNames(t model.Task) string {
	as := t.AssigneeUsers()
	if len(as) == 0 {
		return "unassigned"
	}
	names := make([]string, len(as))
	for i, u := range as {
		names[i] = u.Username
	}
	return strings.Join(names, ", ")
}
