package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/mutate"
	"taskflow-cli/internal/statusutil"
	"taskflow-cli/internal/views"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Input slots of the new-task modal.
const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldDeadline
)

func (m *appModel) openModal(kind modalKind) {
	m.modal = kind
	m.modalErr = ""
	m.inputFocus = 0
	m.inputs = nil
	m.pickIdx = 0
	m.picked = map[int]bool{}
	m.groupMode = false
	switch kind {
	case modalNewTask:
		m.inputs = []textinput.Model{
			newInput("title", false),
			newInput("description (markdown)", false),
			newInput("priority: low|medium|high|urgent", false),
			newInput("deadline: YYYY-MM-DD [HH:MM]", false),
		}
	case modalAddLink:
		m.inputs = []textinput.Model{newInput("https://…", false), newInput("label (optional)", false)}
	case modalNewChannel:
		m.inputs = []textinput.Model{newInput("group name", false)}
	case modalAddComment:
		m.textarea.Reset()
	}
}

func (m *appModel) closeModal() {
	m.modal = modalNone
	m.modalErr = ""
	m.inputs = nil
	m.textarea.Blur()
}

func (m *appModel) focusInput(i int) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	i = (i + len(m.inputs)) % len(m.inputs)
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.inputFocus = i
	return m.inputs[i].Focus()
}

func (m appModel) updateModal(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.String() == "esc" {
		m.closeModal()
		return m, nil
	}
	switch m.modal {
	case modalConfirmLogout:
		if k.String() == "y" {
			cmd := m.toLogin("")
			return m, cmd
		}
		m.closeModal()
		return m, nil
	case modalAddComment:
		return m.updateCommentModal(k)
	case modalPickAssignee:
		return m.updateAssigneePicker(k)
	case modalNewChannel:
		return m.updateChannelModal(k)
	}

	switch k.String() {
	case "tab", "down":
		return m, m.focusInput(m.inputFocus + 1)
	case "shift+tab", "up":
		return m, m.focusInput(m.inputFocus - 1)
	case "enter":
		if m.inputFocus < len(m.inputs)-1 && m.modal == modalNewTask {
			return m, m.focusInput(m.inputFocus + 1)
		}
		return m.submitModal()
	case "ctrl+s":
		return m.submitModal()
	}
	var cmd tea.Cmd
	m.inputs[m.inputFocus], cmd = m.inputs[m.inputFocus].Update(k)
	return m, cmd
}

func (m appModel) submitModal() (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalNewTask:
		in, err := m.taskInputFromModal()
		if err != nil {
			m.modalErr = err.Error()
			return m, nil
		}
		m.closeModal()
		return m, m.createTaskCmd(in)
	case modalAddLink:
		raw := strings.TrimSpace(m.inputs[0].Value())
		if err := validateLink(raw); err != nil {
			m.modalErr = err.Error()
			return m, nil
		}
		label := strings.TrimSpace(m.inputs[1].Value())
		m.closeModal()
		if m.detail == nil {
			return m, nil
		}
		return m, m.addLinkCmd(m.detail.id, raw, label)
	}
	return m, nil
}

func (m appModel) taskInputFromModal() (api.TaskInput, error) {
	in := api.TaskInput{
		Title:       strings.TrimSpace(m.inputs[fieldTitle].Value()),
		Description: strings.TrimSpace(m.inputs[fieldDescription].Value()),
	}
	if in.Title == "" {
		return in, errors.New("title is required")
	}
	if s := strings.TrimSpace(m.inputs[fieldPriority].Value()); s != "" {
		p, err := statusutil.NormalizePriority(s)
		if err != nil {
			return in, err
		}
		in.Priority = p
	}
	if s := strings.TrimSpace(m.inputs[fieldDeadline].Value()); s != "" {
		at, _, err := views.ParseWhen(s, time.Local)
		if err != nil {
			return in, err
		}
		in.Deadline = at
	}
	return in, nil
}

func (m appModel) updateCommentModal(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.String() == "ctrl+s" {
		body := strings.TrimSpace(m.textarea.Value())
		if body == "" {
			m.modalErr = "comment is empty"
			return m, nil
		}
		m.closeModal()
		if m.detail == nil {
			return m, nil
		}
		return m, m.addCommentCmd(m.detail.id, body, m.detail.comments)
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(k)
	return m, cmd
}

// pickerUsers lists the directory sorted by display name.
func pickerUsers(users []model.UserMinimal) []model.UserMinimal {
	out := append([]model.UserMinimal(nil), users...)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(userLabel(out[i])) < strings.ToLower(userLabel(out[j]))
	})
	return out
}

func userLabel(u model.TaskUser) string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Username
	}
	return full + " (" + u.Username + ")"
}

func (m appModel) updateAssigneePicker(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.detail
	if d == nil || d.editor == nil {
		m.closeModal()
		return m, nil
	}
	users := pickerUsers(d.users)
	switch k.String() {
	case "up", "k":
		m.pickIdx = max(0, m.pickIdx-1)
	case "down", "j":
		m.pickIdx = min(max(0, len(users)-1), m.pickIdx+1)
	case " ", "enter":
		if m.pickIdx >= len(users) {
			return m, nil
		}
		uid := users[m.pickIdx].ID
		ed, known := d.editor, d.users
		return m, m.mutateCmd("assignees", func(ctx context.Context) (mutate.Result, error) {
			return ed.ToggleAssignee(ctx, uid, known)
		})
	}
	return m, nil
}

func (m appModel) updateChannelModal(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	users := m.otherUsers()
	switch k.String() {
	case "ctrl+t":
		m.groupMode = !m.groupMode
		m.modalErr = ""
		if m.groupMode {
			return m, m.focusInput(0)
		}
		m.inputs[0].Blur()
		return m, nil
	case "up":
		m.pickIdx = max(0, m.pickIdx-1)
		return m, nil
	case "down":
		m.pickIdx = min(max(0, len(users)-1), m.pickIdx+1)
		return m, nil
	case " ":
		if m.groupMode && m.pickIdx < len(users) {
			id := users[m.pickIdx].ID
			m.picked[id] = !m.picked[id]
			return m, nil
		}
	case "enter":
		if !m.groupMode {
			if m.pickIdx >= len(users) {
				return m, nil
			}
			return m, m.createChannelCmd(api.DirectChannelInput("", users[m.pickIdx]))
		}
		name := strings.TrimSpace(m.inputs[0].Value())
		if name == "" {
			m.modalErr = "group name is required"
			return m, nil
		}
		var members []int
		for _, u := range users {
			if m.picked[u.ID] {
				members = append(members, u.ID)
			}
		}
		return m, m.createChannelCmd(api.ChannelInput{Name: name, Type: model.ChannelGroup, Members: members})
	}
	if !m.groupMode {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[0], cmd = m.inputs[0].Update(k)
	return m, cmd
}

func (m appModel) otherUsers() []model.UserMinimal {
	me := m.meID()
	var out []model.UserMinimal
	for _, u := range pickerUsers(m.directory) {
		if u.ID != me {
			out = append(out, u)
		}
	}
	return out
}

func (m appModel) viewModal() string {
	var b strings.Builder
	switch m.modal {
	case modalConfirmLogout:
		b.WriteString(styleHeading().Render("Log out?") + "\n\n")
		b.WriteString("y to confirm, any other key to cancel")
	case modalNewTask:
		b.WriteString(styleHeading().Render("New task") + "\n\n")
		labels := []string{"Title", "Description", "Priority", "Deadline"}
		for i, in := range m.inputs {
			fmt.Fprintf(&b, "%-12s %s\n", labels[i], in.View())
		}
		b.WriteString("\n" + styleMuted().Render("tab next field · enter next/create · esc cancel"))
	case modalAddLink:
		b.WriteString(styleHeading().Render("Add link") + "\n\n")
		fmt.Fprintf(&b, "%-6s %s\n%-6s %s\n", "URL", m.inputs[0].View(), "Label", m.inputs[1].View())
		b.WriteString("\n" + styleMuted().Render("enter add · esc cancel"))
	case modalAddComment:
		b.WriteString(styleHeading().Render("Add comment") + "\n\n")
		b.WriteString(m.textarea.View() + "\n")
		b.WriteString("\n" + styleMuted().Render("ctrl+s post · esc cancel"))
	case modalPickAssignee:
		b.WriteString(styleHeading().Render("Assignees") + "\n\n")
		t := m.detail.task()
		for i, u := range pickerUsers(m.detail.users) {
			box := "[ ]"
			if t.IsAssignee(u.ID) {
				box = "[x]"
			}
			line := box + " " + userLabel(u)
			if i == m.pickIdx {
				line = styleSelected().Render(line)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n" + styleMuted().Render("space toggle · esc done"))
	case modalNewChannel:
		mode := "Direct message"
		if m.groupMode {
			mode = "Group channel"
		}
		b.WriteString(styleHeading().Render("New channel: "+mode) + "\n\n")
		if m.groupMode {
			b.WriteString("Name " + m.inputs[0].View() + "\n\n")
		}
		users := m.otherUsers()
		if len(users) == 0 {
			b.WriteString(styleMuted().Render("Loading users…") + "\n")
		}
		for i, u := range users {
			line := userLabel(u)
			if m.groupMode {
				box := "[ ] "
				if m.picked[u.ID] {
					box = "[x] "
				}
				line = box + line
			}
			if i == m.pickIdx {
				line = styleSelected().Render(line)
			}
			b.WriteString(line + "\n")
		}
		hint := "enter start chat · ctrl+t group · esc cancel"
		if m.groupMode {
			hint = "space add member · enter create · ctrl+t direct · esc cancel"
		}
		b.WriteString("\n" + styleMuted().Render(hint))
	}
	if m.modalErr != "" {
		b.WriteString("\n" + styleError().Render(m.modalErr))
	}
	w := min(76, max(40, m.width-8))
	return styleModal().Width(w).Render(b.String())
}

func placeModal(width, height int, box string) string {
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
