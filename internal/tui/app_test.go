package tui

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/apitest"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/session"
	"taskflow-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// cmdWait bounds how long run waits on one command; flash and blink ticks are abandoned.
const cmdWait = 300 * time.Millisecond

func newTestClient(t *testing.T, srv *apitest.Server, username string) *api.Client {
	t.Helper()
	c, err := api.New(session.New(nil, nil), api.Options{APIURL: srv.URL})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	if username != "" {
		ctx := context.Background()
		res, err := c.Auth.Login(ctx, username, apitest.Password)
		if err != nil {
			t.Fatalf("login %s: %v", username, err)
		}
		if err := c.Session().SetAuth(ctx, res.Access, res.Refresh, res.User); err != nil {
			t.Fatalf("SetAuth: %v", err)
		}
	}
	return c
}

func newTestModel(t *testing.T, srv *apitest.Server, username string) appModel {
	t.Helper()
	m := newAppModel(Deps{Client: newTestClient(t, srv, username)})
	m.width, m.height = 120, 40
	return m
}

// run executes cmd and feeds every message it produces back through Update until the
// model settles.
func run(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		done := make(chan tea.Msg, 1)
		go func() { done <- c() }()
		var msg tea.Msg
		select {
		case msg = <-done:
		case <-time.After(cmdWait):
			continue
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		// Only this package's messages; bubbles' cursor blink would loop forever.
		if !strings.HasPrefix(fmt.Sprintf("%T", msg), "tui.") {
			continue
		}
		next, more := m.Update(msg)
		m = next.(appModel)
		queue = append(queue, more)
	}
	return m
}

func press(t *testing.T, m appModel, keys ...string) appModel {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "ctrl+s":
			msg = tea.KeyMsg{Type: tea.KeyCtrlS}
		case "ctrl+t":
			msg = tea.KeyMsg{Type: tea.KeyCtrlT}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "pgup":
			msg = tea.KeyMsg{Type: tea.KeyPgUp}
		case "pgdown":
			msg = tea.KeyMsg{Type: tea.KeyPgDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, cmd := m.Update(msg)
		m = run(t, next.(appModel), cmd)
	}
	return m
}

func TestLogin_BadPasswordStaysOnLogin(t *testing.T) {
	srv := apitest.New(t)
	m := newTestModel(t, srv, "")
	if m.view != viewLogin {
		t.Fatalf("expected login view; got %v", m.view)
	}
	m.loginUser.SetValue("ada")
	m.loginPass.SetValue("nope")
	m = press(t, m, "enter")
	if m.view != viewLogin || m.loginErr == "" {
		t.Fatalf("expected login error; view=%v err=%q", m.view, m.loginErr)
	}
	if m.loginPass.Value() != "" {
		t.Fatalf("password should be cleared after an attempt")
	}
}

func TestLogin_LoadsDashboard(t *testing.T) {
	srv := apitest.New(t)
	past := time.Now().Add(-48 * time.Hour)
	srv.AddTask(model.Task{Title: "Late", CreatedBy: apitest.AdaID, Assignees: model.IDList{apitest.AdaID}, Deadline: &past})
	srv.AddNotification(model.Notification{Title: "Hello"})

	m := newTestModel(t, srv, "")
	m.loginUser.SetValue("ada")
	m.loginPass.SetValue(apitest.Password)
	m = press(t, m, "enter")

	if m.view != viewDashboard || !m.dashLoaded {
		t.Fatalf("expected loaded dashboard; view=%v loaded=%v err=%q", m.view, m.dashLoaded, m.loginErr)
	}
	if !m.client.Session().LoggedIn() {
		t.Fatalf("expected session to be stored")
	}
	if len(m.dash.Overdue) != 1 || m.overdue != 1 {
		t.Fatalf("expected one overdue task; dash=%d badge=%d", len(m.dash.Overdue), m.overdue)
	}
	if m.notes.Unread() != 1 {
		t.Fatalf("expected one unread notification; got %d", m.notes.Unread())
	}
	out := m.View()
	if !strings.Contains(out, "Late") || !strings.Contains(out, "Hello") {
		t.Fatalf("dashboard should list the overdue task and the notification:\n%s", out)
	}
}

func TestStaleResultsAreDropped(t *testing.T) {
	srv := apitest.New(t)
	m := newTestModel(t, srv, "ada")
	m.view = viewTasks
	m.gen = 5

	next, _ := m.Update(tasksMsg{gen: 4, tasks: []model.Task{{ID: 1, Title: "old"}}})
	m = next.(appModel)
	if m.tasksLoaded || len(m.board.Tasks()) != 0 {
		t.Fatalf("result from an older generation must be ignored")
	}
	next, _ = m.Update(tasksMsg{gen: 5, tasks: []model.Task{{ID: 2, Title: "new", Status: model.StatusPending}}})
	m = next.(appModel)
	if !m.tasksLoaded || len(m.board.Tasks()) != 1 {
		t.Fatalf("current generation should be applied")
	}
}

func TestKanban_MoveAndRollback(t *testing.T) {
	srv := apitest.New(t)
	task := srv.AddTask(model.Task{Title: "Card", CreatedBy: apitest.AdaID})
	m := newTestModel(t, srv, "ada")
	m = press(t, m, "2", "v")
	if m.view != viewTasks || m.taskMode != modeKanban {
		t.Fatalf("expected kanban; view=%v mode=%v", m.view, m.taskMode)
	}

	path := "/api/tasks/" + strconv.Itoa(task.ID) + "/"
	srv.FailOnce(http.MethodPatch, path, http.StatusInternalServerError, map[string]any{"detail": "boom"})
	m = press(t, m, "]")
	if got := m.board.Tasks()[0].Status; got != model.StatusPending {
		t.Fatalf("failed move should roll back; got %s", got)
	}
	if !m.flashErr || !strings.Contains(m.flash, "Move failed") {
		t.Fatalf("expected move failure flash; got %q", m.flash)
	}

	m = press(t, m, "]")
	if got := m.board.Tasks()[0].Status; got != model.StatusOngoing {
		t.Fatalf("expected ongoing after move; got %s", got)
	}
	if st, _ := srv.Task(task.ID); st.Status != model.StatusOngoing {
		t.Fatalf("server should have the new status; got %s", st.Status)
	}
}

func TestTaskDetail_NotFound(t *testing.T) {
	srv := apitest.New(t)
	m := newTestModel(t, srv, "ada")
	cmd := m.openTask(9999)
	m = run(t, m, cmd)
	if m.detail == nil || !m.detail.notFound {
		t.Fatalf("expected not-found detail")
	}
	if !strings.Contains(m.View(), "was not found") {
		t.Fatalf("not-found message missing:\n%s", m.View())
	}
	m = press(t, m, "esc")
	if m.view != viewTasks || m.detail != nil {
		t.Fatalf("esc should return to the task list")
	}
}

func TestTaskDetail_StatusCycleRecordsHistory(t *testing.T) {
	srv := apitest.New(t)
	task := srv.AddTask(model.Task{Title: "Write docs", CreatedBy: apitest.AdaID, Description: "# Heading\n\nbody"})
	m := newTestModel(t, srv, "ada")
	m = run(t, m, m.openTask(task.ID))
	if m.detail.editor == nil {
		t.Fatalf("detail did not load")
	}

	m = press(t, m, "s")
	if got := m.detail.task().Status; got != model.StatusOngoing {
		t.Fatalf("expected ongoing; got %s", got)
	}
	if len(m.detail.history) != 2 {
		t.Fatalf("expected history reloaded with two entries; got %d", len(m.detail.history))
	}
	m.detail.section = sectionHistory
	if !strings.Contains(m.View(), "pending → ongoing") {
		t.Fatalf("history section should show the transition:\n%s", m.View())
	}
}

func TestTaskDetail_CommentGating(t *testing.T) {
	srv := apitest.New(t)
	task := srv.AddTask(model.Task{Title: "Private", CreatedBy: apitest.AdaID})

	grace := newTestModel(t, srv, "grace")
	grace = run(t, grace, grace.openTask(task.ID))
	grace = press(t, grace, "c")
	if grace.modal != modalNone || !strings.Contains(grace.flash, "Only the creator and assignees") {
		t.Fatalf("non-participant should be refused; modal=%v flash=%q", grace.modal, grace.flash)
	}

	ada := newTestModel(t, srv, "ada")
	ada = run(t, ada, ada.openTask(task.ID))
	ada = press(t, ada, "c")
	if ada.modal != modalAddComment {
		t.Fatalf("creator should get the comment box")
	}
	ada.textarea.SetValue("looks good")
	ada = press(t, ada, "ctrl+s")
	if ada.modal != modalNone || ada.detail.comments.Len() != 1 {
		t.Fatalf("expected the comment to be posted; modal=%v comments=%d", ada.modal, ada.detail.comments.Len())
	}
}

func TestTaskDetail_AddLinkValidates(t *testing.T) {
	srv := apitest.New(t)
	task := srv.AddTask(model.Task{Title: "Linked", CreatedBy: apitest.AdaID})
	m := newTestModel(t, srv, "ada")
	m = run(t, m, m.openTask(task.ID))

	m = press(t, m, "L")
	m.inputs[0].SetValue("ftp://example.com")
	m = press(t, m, "enter")
	if m.modal != modalAddLink || m.modalErr == "" {
		t.Fatalf("non-http link should be rejected in place")
	}
	m.inputs[0].SetValue("https://example.com/design")
	m.inputs[1].SetValue("Design")
	m = press(t, m, "enter")
	if m.modal != modalNone || len(m.detail.links) != 1 || m.detail.links[0].Label != "Design" {
		t.Fatalf("expected one link; got %+v", m.detail.links)
	}
}

func TestNewTask_ValidatesAndCreates(t *testing.T) {
	srv := apitest.New(t)
	m := newTestModel(t, srv, "ada")
	m = press(t, m, "2", "n")
	if m.modal != modalNewTask {
		t.Fatalf("expected the new task modal")
	}
	m = press(t, m, "ctrl+s")
	if m.modalErr != "title is required" {
		t.Fatalf("expected title error; got %q", m.modalErr)
	}

	m.inputs[fieldTitle].SetValue("Ship it")
	m.inputs[fieldPriority].SetValue("whenever")
	m = press(t, m, "ctrl+s")
	if m.modal != modalNewTask || m.modalErr == "" {
		t.Fatalf("bad priority should keep the modal open")
	}

	m.inputs[fieldPriority].SetValue("HIGH")
	m.inputs[fieldDeadline].SetValue("2030-05-01")
	m = press(t, m, "ctrl+s")
	if m.modal != modalNone || !strings.HasPrefix(m.flash, "Created task #") {
		t.Fatalf("expected task creation; modal=%v flash=%q", m.modal, m.flash)
	}
	page, err := m.client.Tasks.List(context.Background(), api.TaskListParams{})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Results) != 1 || page.Results[0].Priority != model.PriorityHigh || page.Results[0].Deadline == nil {
		t.Fatalf("unexpected created task: %+v", page.Results)
	}
}

func TestNav_UsersOnlyForManagers(t *testing.T) {
	srv := apitest.New(t)
	ada := newTestModel(t, srv, "ada")
	if n := len(ada.navViews()); n != 4 {
		t.Fatalf("members should see four views; got %d", n)
	}
	if strings.Contains(ada.viewNav(), "Users") {
		t.Fatalf("members should not see the users tab")
	}

	admin := newTestModel(t, srv, "admin")
	if n := len(admin.navViews()); n != 5 {
		t.Fatalf("admins should see five views; got %d", n)
	}
	admin = press(t, admin, "5")
	if admin.view != viewUsers || len(admin.users) != 3 {
		t.Fatalf("expected the user list; view=%v users=%d", admin.view, len(admin.users))
	}
	if out := admin.View(); !strings.Contains(out, "Username") || !strings.Contains(out, "grace") {
		t.Fatalf("expected the users table:\n%s", out)
	}
	// Index 0 is the admin account itself.
	admin = press(t, admin, "space")
	if !strings.Contains(admin.flash, "cannot deactivate your own account") {
		t.Fatalf("expected self-deactivation refusal; got %q", admin.flash)
	}
}

func TestSessionExpiry_ReturnsToLogin(t *testing.T) {
	srv := apitest.New(t)
	m := newTestModel(t, srv, "ada")
	m.overdue = 3

	next, _ := m.Update(sessionExpiredMsg{})
	m = next.(appModel)
	if m.view != viewLogin || !strings.Contains(m.loginErr, "expired") {
		t.Fatalf("expected login with expiry notice; view=%v err=%q", m.view, m.loginErr)
	}
	if m.client.Session().LoggedIn() || m.overdue != 0 {
		t.Fatalf("session state should be cleared")
	}
}

func TestConfirmLogout(t *testing.T) {
	srv := apitest.New(t)
	m := newTestModel(t, srv, "ada")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = next.(appModel)
	if m.modal != modalConfirmLogout {
		t.Fatalf("ctrl+l should ask first")
	}
	m = press(t, m, "n")
	if m.modal != modalNone || m.view == viewLogin {
		t.Fatalf("any key but y cancels")
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = press(t, next.(appModel), "y")
	if m.view != viewLogin || m.client.Session().LoggedIn() {
		t.Fatalf("y should log out")
	}
}

func TestState_SavedAndRestored(t *testing.T) {
	srv := apitest.New(t)
	db, err := store.Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	c := newTestClient(t, srv, "ada")
	m := newAppModel(Deps{Client: c, DB: db})
	m.view = viewChat
	m.taskMode = modeCalendar
	m.mineOnly = true
	m.channelID = 42
	m.saveState()

	r := newAppModel(Deps{Client: c, DB: db})
	if r.view != viewChat || r.taskMode != modeCalendar || !r.mineOnly || r.channelID != 42 {
		t.Fatalf("state not restored: view=%v mode=%v mine=%v ch=%d", r.view, r.taskMode, r.mineOnly, r.channelID)
	}

	r.view = viewUsers
	r.saveState()
	if again := newAppModel(Deps{Client: c, DB: db}); again.view != viewDashboard {
		t.Fatalf("members cannot land on users; got %v", again.view)
	}
}

func TestChat_OpenChannelAndSend(t *testing.T) {
	srv := apitest.New(t)
	ch := srv.AddChannel(model.Channel{ChannelType: model.ChannelDirect, Members: []int{apitest.AdaID, apitest.GraceID}})
	srv.AddMessage(ch.ID, apitest.GraceID, "hi ada")

	m := newTestModel(t, srv, "ada")
	m = press(t, m, "3")
	if m.view != viewChat || len(m.channels) != 1 {
		t.Fatalf("expected one channel; got %d", len(m.channels))
	}
	if !strings.Contains(m.View(), "grace") {
		t.Fatalf("direct channel should be named after the other member:\n%s", m.View())
	}
	m = press(t, m, "enter")
	if m.channelID != ch.ID || m.messages.Len() != 1 {
		t.Fatalf("expected the channel history; id=%d messages=%d", m.channelID, m.messages.Len())
	}
	m = press(t, m, "pgup", "pgdown")
	if m.view != viewChat || !strings.Contains(m.chatScroll.View(), "hi ada") {
		t.Fatalf("paging should keep the history visible:\n%s", m.chatScroll.View())
	}

	m = press(t, m, "i")
	m.composer.SetValue("hello grace")
	m = press(t, m, "enter")
	if m.messages.Len() != 2 {
		t.Fatalf("sent message should be appended; got %d", m.messages.Len())
	}
	if !strings.Contains(m.chatScroll.View(), "hello grace") {
		t.Fatalf("message pane should show the sent message")
	}
}

func TestNotifications_MarkReadAndAll(t *testing.T) {
	srv := apitest.New(t)
	srv.AddNotification(model.Notification{Title: "one"})
	srv.AddNotification(model.Notification{Title: "two"})

	m := newTestModel(t, srv, "ada")
	m = press(t, m, "4")
	if m.notes.Unread() != 2 {
		t.Fatalf("expected two unread; got %d", m.notes.Unread())
	}
	m = press(t, m, "enter")
	if m.notes.Unread() != 1 {
		t.Fatalf("expected one unread; got %d", m.notes.Unread())
	}
	m = press(t, m, "A")
	if m.notes.Unread() != 0 {
		t.Fatalf("expected none unread; got %d", m.notes.Unread())
	}
}

func TestTasksOnDay(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	a := time.Date(2026, 3, 4, 23, 30, 0, 0, time.UTC) // Mar 5 01:30 in loc
	b := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	tasks := []model.Task{{ID: 1, Deadline: &a}, {ID: 2, Deadline: &b}, {ID: 3}}
	got := tasksOnDay(tasks, time.Date(2026, 3, 5, 12, 0, 0, 0, loc))
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected task 1 only; got %+v", got)
	}
}

func TestValidateLink(t *testing.T) {
	for raw, ok := range map[string]bool{
		"https://example.com":   true,
		"http://example.com/x":  true,
		" https://example.com ": true,
		"example.com":           false,
		"ftp://example.com":     false,
		"https://":              false,
		"":                      false,
	} {
		if err := validateLink(raw); (err == nil) != ok {
			t.Errorf("validateLink(%q) = %v; want ok=%v", raw, err, ok)
		}
	}
}
