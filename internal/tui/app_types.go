package tui

import (
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/views"
)

type view int

const (
	viewLogin view = iota
	viewDashboard
	viewTasks
	viewTask
	viewChat
	viewNotifications
	viewUsers
)

func viewToString(v view) string {
	switch v {
	case viewDashboard:
		return "dashboard"
	case viewTasks:
		return "tasks"
	case viewTask:
		return "task"
	case viewChat:
		return "chat"
	case viewNotifications:
		return "notifications"
	case viewUsers:
		return "users"
	default:
		return "login"
	}
}

func viewFromString(s string) view {
	switch s {
	case "tasks", "task":
		return viewTasks
	case "chat":
		return viewChat
	case "notifications":
		return viewNotifications
	case "users":
		return viewUsers
	default:
		return viewDashboard
	}
}

type taskMode int

const (
	modeList taskMode = iota
	modeKanban
	modeCalendar
)

func (t taskMode) String() string {
	switch t {
	case modeKanban:
		return "kanban"
	case modeCalendar:
		return "calendar"
	default:
		return "list"
	}
}

func parseTaskMode(s string) taskMode {
	switch s {
	case "kanban":
		return modeKanban
	case "calendar":
		return modeCalendar
	default:
		return modeList
	}
}

type modalKind int

const (
	modalNone modalKind = iota
	modalNewTask
	modalAddComment
	modalAddLink
	modalPickAssignee
	modalNewChannel
	modalConfirmLogout
)

// Detail sections cycled with tab on the task page.
type detailSection int

const (
	sectionComments detailSection = iota
	sectionLinks
	sectionAttachments
	sectionHistory
)

func (s detailSection) String() string {
	switch s {
	case sectionLinks:
		return "Links"
	case sectionAttachments:
		return "Attachments"
	case sectionHistory:
		return "History"
	default:
		return "Comments"
	}
}

// Messages. Results that belong to a view carry the generation they were started under; a
// mismatch means the user has moved on and the result is dropped.

type flashDoneMsg struct{ seq int }

type sessionExpiredMsg struct{}

type signalMsg struct{ name string }

type notificationsChangedMsg struct{}

type loginDoneMsg struct {
	user *model.User
	err  error
}

type badgeMsg struct {
	overdue int
	err     error
}

type dashboardMsg struct {
	gen     int
	summary views.Summary
	err     error
}

type tasksMsg struct {
	gen   int
	tasks []model.Task
	err   error
}

type taskDetailMsg struct {
	gen         int
	id          int
	task        *model.Task
	comments    []model.TaskComment
	links       []model.TaskLink
	attachments []model.Attachment
	history     []model.StatusHistoryEntry
	users       []model.UserMinimal
	err         error
}

type taskChangedMsg struct {
	gen  int
	task model.Task
}

type mutationDoneMsg struct {
	gen  int
	what string
	err  error
}

type commentAddedMsg struct {
	gen int
	err error
}

type linksMsg struct {
	gen   int
	links []model.TaskLink
	err   error
}

type historyMsg struct {
	gen     int
	history []model.StatusHistoryEntry
}

type previewSyncedMsg struct{ gen int }

type taskCreatedMsg struct {
	gen  int
	task *model.Task
	err  error
}

type channelsMsg struct {
	gen      int
	channels []model.Channel
	err      error
}

type messagesMsg struct {
	gen       int
	channelID int
	messages  []model.Message
	err       error
}

type liveMessageMsg struct{ channelID int }

type liveCommentMsg struct{ taskID int }

type messageSentMsg struct {
	gen       int
	channelID int
	message   *model.Message
	err       error
}

type channelCreatedMsg struct {
	gen     int
	channel *model.Channel
	err     error
}

type directoryMsg struct {
	users []model.UserMinimal
	err   error
}

type usersMsg struct {
	gen   int
	users []model.User
	err   error
}

type userUpdatedMsg struct {
	gen  int
	user *model.User
	err  error
}

type noticeDoneMsg struct{ err error }

type boardChangedMsg struct{}
