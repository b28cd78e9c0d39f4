package publish

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/preview"
	"taskflow-cli/internal/statusutil"
	"taskflow-cli/internal/views"
)

// Bundle is one task with the threads rendered alongside it.
type Bundle struct {
	Task        model.Task
	Comments    []model.TaskComment
	Links       []model.TaskLink
	Attachments []model.Attachment
	History     []model.StatusHistoryEntry
}

type RenderOptions struct {
	// Origin resolves relative attachment paths; empty leaves them as the backend sent them.
	Origin         string
	IncludeHistory bool
}

func RenderTaskMarkdown(b Bundle, opt RenderOptions) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}
	t := b.Task

	writeLn("# " + strings.TrimSpace(t.Title))
	writeLn("")
	writeLn("## Meta")
	writeLn("")
	writeLn(fmt.Sprintf("- ID: %d", t.ID))
	writeLn("- Status: " + statusutil.StatusLabel(t.Status))
	writeLn("- Priority: " + statusutil.PriorityLabel(t.Priority))
	if t.CreatedByDetail != nil {
		writeLn("- Created by: " + t.CreatedByDetail.Username)
	}
	if as := t.AssigneeUsers(); len(as) > 0 {
		names := make([]string, 0, len(as))
		for _, u := range as {
			names = append(names, u.Username)
		}
		sort.Strings(names)
		writeLn("- Assignees: " + strings.Join(names, ", "))
	}
	if t.AssignedToRoleDetail != nil {
		writeLn("- Role: " + t.AssignedToRoleDetail.Name)
	}
	if t.Deadline != nil {
		writeLn("- Deadline: " + t.Deadline.UTC().Format(time.RFC3339))
	}
	if t.IsOverdue {
		writeLn("- Overdue: true")
	}
	writeLn("- Created: " + t.CreatedAt.UTC().Format(time.RFC3339))
	writeLn("- Updated: " + t.UpdatedAt.UTC().Format(time.RFC3339))

	if desc := strings.TrimSpace(t.Description); desc != "" {
		writeLn("")
		writeLn("## Description")
		writeLn("")
		writeLn(desc)
	}

	if len(b.Links) > 0 {
		writeLn("")
		writeLn("## Links")
		writeLn("")
		for _, l := range b.Links {
			label := strings.TrimSpace(l.Label)
			if label == "" {
				label = l.URL
			}
			writeLn("- [" + label + "](" + l.URL + ")")
		}
	}

	if len(b.Attachments) > 0 {
		writeLn("")
		writeLn("## Attachments")
		writeLn("")
		for _, a := range b.Attachments {
			target := a.File
			if opt.Origin != "" {
				target = preview.URL(opt.Origin, a.File)
			}
			writeLn("- [" + a.Filename + "](" + target + ")")
		}
	}

	comments := append([]model.TaskComment(nil), b.Comments...)
	sort.SliceStable(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	if len(comments) > 0 {
		writeLn("")
		writeLn("## Comments")
		writeLn("")
		for _, c := range comments {
			author := fmt.Sprintf("user %d", c.Author)
			if c.AuthorDetail != nil {
				author = c.AuthorDetail.Username
			}
			writeLn("### " + author + " (" + c.CreatedAt.UTC().Format(time.RFC3339) + ")")
			writeLn("")
			body := strings.TrimSpace(c.Body)
			if body == "" {
				body = "(empty)"
			}
			writeLn(body)
			writeLn("")
		}
	}

	if opt.IncludeHistory && len(b.History) > 0 {
		writeLn("")
		writeLn("## Status history")
		writeLn("")
		for _, e := range b.History {
			line := "- " + e.CreatedAt.UTC().Format(time.RFC3339) + " " + views.StatusTransition(e)
			if e.ChangedBy != nil {
				line += " by " + e.ChangedBy.Username
			}
			writeLn(line)
		}
	}

	return buf.String()
}

// RenderIndexMarkdown lists the tasks grouped by board column.
func RenderIndexMarkdown(title string, tasks []model.Task) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", strings.TrimSpace(title))
	for _, col := range views.Kanban(tasks) {
		if len(col.Tasks) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "## %s\n\n", col.Label)
		for _, t := range col.Tasks {
			fmt.Fprintf(&buf, "- [%s](tasks/%d.md) (%s)\n", strings.TrimSpace(t.Title), t.ID, statusutil.PriorityLabel(t.Priority))
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
