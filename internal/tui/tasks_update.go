package tui

import (
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/statusutil"
	"taskflow-cli/internal/views"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) updateTasks(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Refresh):
		return m, m.loadTasks()
	case key.Matches(k, m.keys.CycleMode):
		m.taskMode = (m.taskMode + 1) % (modeCalendar + 1)
		m.clampTaskSelection()
		return m, nil
	case key.Matches(k, m.keys.Mine):
		m.mineOnly = !m.mineOnly
		m.gen++
		return m, m.loadTasks()
	case key.Matches(k, m.keys.Filter):
		m.statusFilter = nextFilter(m.statusFilter)
		m.gen++
		return m, m.loadTasks()
	case key.Matches(k, m.keys.New):
		m.openModal(modalNewTask)
		return m, m.inputs[0].Focus()
	}

	switch m.taskMode {
	case modeKanban:
		return m.updateKanban(k)
	case modeCalendar:
		return m.updateCalendar(k)
	}
	tasks := m.board.Tasks()
	switch {
	case key.Matches(k, m.keys.Up):
		m.taskIdx = max(0, m.taskIdx-1)
	case key.Matches(k, m.keys.Down):
		m.taskIdx = min(max(0, len(tasks)-1), m.taskIdx+1)
	case key.Matches(k, m.keys.Open):
		if m.taskIdx < len(tasks) {
			return m, m.openTask(tasks[m.taskIdx].ID)
		}
	}
	return m, nil
}

func (m appModel) updateKanban(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := views.Kanban(m.board.Tasks())
	switch {
	case key.Matches(k, m.keys.Left):
		m.kanbanCol = max(0, m.kanbanCol-1)
	case key.Matches(k, m.keys.Right):
		m.kanbanCol = min(len(cols)-1, m.kanbanCol+1)
	case key.Matches(k, m.keys.Up):
		m.kanbanRow = max(0, m.kanbanRow-1)
	case key.Matches(k, m.keys.Down):
		m.kanbanRow++
	case key.Matches(k, m.keys.Open):
		if t, ok := selectedCard(cols, m.kanbanCol, m.kanbanRow); ok {
			return m, m.openTask(t.ID)
		}
	case key.Matches(k, m.keys.MoveLeft), key.Matches(k, m.keys.MoveRight):
		t, ok := selectedCard(cols, m.kanbanCol, m.kanbanRow)
		if !ok {
			return m, nil
		}
		delta := 1
		if key.Matches(k, m.keys.MoveLeft) {
			delta = -1
		}
		next := statusutil.ShiftStatus(t.Status, delta)
		if next == t.Status {
			return m, nil
		}
		m.followID = t.ID
		return m, m.moveCmd(t.ID, next)
	}
	m.clampTaskSelection()
	return m, nil
}

func (m appModel) updateCalendar(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Left):
		m.month = m.month.AddDate(0, 0, -1)
	case key.Matches(k, m.keys.Right):
		m.month = m.month.AddDate(0, 0, 1)
	case key.Matches(k, m.keys.Up):
		m.month = m.month.AddDate(0, 0, -7)
	case key.Matches(k, m.keys.Down):
		m.month = m.month.AddDate(0, 0, 7)
	case key.Matches(k, m.keys.PrevMonth):
		m.month = m.month.AddDate(0, -1, 0)
	case key.Matches(k, m.keys.NextMonth):
		m.month = m.month.AddDate(0, 1, 0)
	case key.Matches(k, m.keys.Open):
		if ts := tasksOnDay(m.board.Tasks(), m.month); len(ts) > 0 {
			return m, m.openTask(ts[0].ID)
		}
	}
	return m, nil
}

func (m *appModel) clampTaskSelection() {
	tasks := m.board.Tasks()
	if m.taskIdx >= len(tasks) {
		m.taskIdx = max(0, len(tasks)-1)
	}
	cols := views.Kanban(tasks)
	if m.kanbanCol >= len(cols) {
		m.kanbanCol = len(cols) - 1
	}
	if n := len(cols[m.kanbanCol].Tasks); m.kanbanRow >= n {
		m.kanbanRow = max(0, n-1)
	}
}

// followCard points the kanban cursor at the card being moved, wherever the board now has it.
func (m *appModel) followCard() {
	if m.followID == 0 {
		return
	}
	for ci, col := range views.Kanban(m.board.Tasks()) {
		for ri, t := range col.Tasks {
			if t.ID == m.followID {
				m.kanbanCol, m.kanbanRow = ci, ri
				return
			}
		}
	}
}

func selectedCard(cols []views.Column, col, row int) (model.Task, bool) {
	if col < 0 || col >= len(cols) || row < 0 || row >= len(cols[col].Tasks) {
		return model.Task{}, false
	}
	return cols[col].Tasks[row], true
}

func columnIndex(s model.Status) int {
	for i, x := range model.Statuses {
		if x == s {
			return i
		}
	}
	return 0
}

func nextFilter(s model.Status) model.Status {
	if s == "" {
		return model.Statuses[0]
	}
	i := columnIndex(s)
	if i+1 >= len(model.Statuses) {
		return ""
	}
	return model.Statuses[i+1]
}
