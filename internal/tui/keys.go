package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	NextView key.Binding
	PrevView key.Binding
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Open     key.Binding
	Back     key.Binding
	Refresh  key.Binding
	Logout   key.Binding

	CycleMode   key.Binding
	Mine        key.Binding
	Filter      key.Binding
	New         key.Binding
	MoveLeft    key.Binding
	MoveRight   key.Binding
	Status      key.Binding
	Priority    key.Binding
	Assign      key.Binding
	Comment     key.Binding
	Link        key.Binding
	Delete      key.Binding
	Section     key.Binding
	Compose     key.Binding
	Read        key.Binding
	ReadAll     key.Binding
	Toggle      key.Binding
	PrevMonth   key.Binding
	NextMonth   key.Binding
	ShowHelpKey key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
		NextView: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		PrevView: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("S-tab", "prev view")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Logout:   key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("C-l", "log out")),

		CycleMode:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "list/kanban/calendar")),
		Mine:        key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mine only")),
		Filter:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "status filter")),
		New:         key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		MoveLeft:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move left")),
		MoveRight:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move right")),
		Status:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "cycle status")),
		Priority:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "cycle priority")),
		Assign:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "assignees")),
		Comment:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment")),
		Link:        key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "add link")),
		Delete:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete link")),
		Section:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "section")),
		Compose:     key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "write")),
		Read:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "mark read")),
		ReadAll:     key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "mark all read")),
		Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		PrevMonth:   key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "prev month")),
		NextMonth:   key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "next month")),
		ShowHelpKey: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

// viewHelp adapts the bindings relevant to one view to help.KeyMap.
type viewHelp []key.Binding

func (h viewHelp) ShortHelp() []key.Binding  { return h }
func (h viewHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h} }

func (m appModel) helpFor() viewHelp {
	k := m.keys
	switch m.view {
	case viewDashboard:
		return viewHelp{k.NextView, k.Refresh, k.Logout, k.Quit}
	case viewTasks:
		h := viewHelp{k.NextView, k.Open, k.CycleMode, k.Mine, k.Filter, k.New}
		switch m.taskMode {
		case modeKanban:
			h = append(h, k.MoveLeft, k.MoveRight)
		case modeCalendar:
			h = append(h, k.PrevMonth, k.NextMonth)
		}
		return append(h, k.Quit)
	case viewTask:
		return viewHelp{k.Back, k.Status, k.Priority, k.Assign, k.Comment, k.Link, k.Section, k.Delete}
	case viewChat:
		return viewHelp{k.NextView, k.Open, k.Compose, k.New, k.Quit}
	case viewNotifications:
		return viewHelp{k.NextView, k.Read, k.ReadAll, k.Refresh, k.Quit}
	case viewUsers:
		return viewHelp{k.NextView, k.Toggle, k.Refresh, k.Quit}
	}
	return viewHelp{k.Quit}
}
