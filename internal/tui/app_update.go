package tui

import (
	"context"
	"strings"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/keyset"
	"taskflow-cli/internal/live"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/mutate"
	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/preview"
	"taskflow-cli/internal/signals"
	"taskflow-cli/internal/statusutil"
	"taskflow-cli/internal/views"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.chatScroll.Width = max(20, msg.Width-channelPaneWidth-3)
		m.chatScroll.Height = max(3, msg.Height-9)
		m.textarea.SetWidth(min(72, max(20, msg.Width-12)))
		return m, nil

	case flashDoneMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
			m.flashErr = false
		}
		return m, nil

	case sessionExpiredMsg:
		if m.view == viewLogin {
			return m, nil
		}
		return m, m.toLogin("Your session expired. Log in again.")

	case loginDoneMsg:
		m.loggingIn = false
		m.loginPass.SetValue("")
		if msg.err != nil {
			m.loginErr = msg.err.Error()
			return m, nil
		}
		m.loginErr = ""
		m.view = viewDashboard
		m.gen++
		return m, m.enterSession()

	case signalMsg:
		return m.handleSignal(msg.name)

	case notificationsChangedMsg:
		m.dash.Unread = m.notes.Unread()
		if n := len(m.notes.Items()); m.noteIdx >= n {
			m.noteIdx = max(0, n-1)
		}
		return m, nil

	case noticeDoneMsg:
		return m, m.flashError(msg.err)

	case badgeMsg:
		if msg.err == nil {
			m.overdue = msg.overdue
		}
		return m, nil

	case dashboardMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			return m, m.flashError(msg.err)
		}
		m.dash = msg.summary
		m.dash.Unread = m.notes.Unread()
		m.dashLoaded = true
		return m, nil

	case tasksMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.tasksLoaded = true
		if msg.err != nil {
			m.board.Replace(nil)
			return m, m.flashError(msg.err)
		}
		m.board.Replace(msg.tasks)
		m.clampTaskSelection()
		return m, nil

	case boardChangedMsg:
		m.followCard()
		m.clampTaskSelection()
		return m, nil

	case taskChangedMsg, liveCommentMsg, previewSyncedMsg:
		return m, nil

	case taskDetailMsg:
		return m.applyTaskDetail(msg)

	case mutationDoneMsg:
		if msg.what == "move" {
			m.followID = 0
		}
		if msg.err != nil {
			return m, m.showFlash(mutationLabel(msg.what)+" failed: "+msg.err.Error(), true)
		}
		if msg.what == "status" && msg.gen == m.gen && m.detail != nil {
			return m, m.loadHistory(m.detail.id)
		}
		return m, nil

	case historyMsg:
		if msg.gen == m.gen && m.detail != nil {
			m.detail.history = msg.history
		}
		return m, nil

	case commentAddedMsg:
		if msg.err != nil {
			return m, m.flashError(msg.err)
		}
		return m, m.showFlash("Comment added", false)

	case linksMsg:
		if msg.gen != m.gen || m.detail == nil {
			return m, nil
		}
		if msg.links != nil || msg.err == nil {
			m.detail.links = msg.links
			m.clampDetailSelection()
		}
		return m, m.flashError(msg.err)

	case taskCreatedMsg:
		if msg.err != nil {
			return m, m.flashError(msg.err)
		}
		return m, m.showFlash("Created task #"+itoa(msg.task.ID), false)

	case channelsMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			return m, m.flashError(msg.err)
		}
		m.channels = msg.channels
		if m.chanIdx >= len(m.channels) {
			m.chanIdx = max(0, len(m.channels)-1)
		}
		// A restored or just-created channel opens once the list is known.
		if m.channelID != 0 && m.messages.Len() == 0 {
			for i, ch := range m.channels {
				if ch.ID == m.channelID {
					m.chanIdx = i
					return m, m.openChannel(ch.ID)
				}
			}
			m.channelID = 0
		}
		return m, nil

	case messagesMsg:
		if msg.gen != m.gen || msg.channelID != m.channelID {
			return m, nil
		}
		if msg.err != nil {
			return m, m.flashError(msg.err)
		}
		// Pushes that arrived while the history loaded are kept.
		m.messages.Reset(keyset.Merge(msg.messages, m.messages.Items(), live.MessageKey))
		m.refreshChatScroll()
		return m, nil

	case liveMessageMsg:
		if msg.channelID == m.channelID {
			m.refreshChatScroll()
		}
		return m, nil

	case messageSentMsg:
		if msg.err != nil {
			return m, m.flashError(msg.err)
		}
		if msg.channelID == m.channelID && msg.message != nil {
			m.messages.Add(*msg.message)
			m.refreshChatScroll()
		}
		if msg.gen == m.gen {
			return m, m.loadChannels()
		}
		return m, nil

	case channelCreatedMsg:
		if msg.err != nil {
			m.modalErr = msg.err.Error()
			return m, nil
		}
		m.closeModal()
		if m.view == viewChat && msg.channel != nil {
			m.channelID = msg.channel.ID
			m.messages.Reset(nil)
			m.gen++
			return m, m.loadChannels()
		}
		return m, nil

	case directoryMsg:
		if msg.err != nil {
			return m, m.flashError(msg.err)
		}
		m.directory = msg.users
		return m, nil

	case usersMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			return m, m.flashError(msg.err)
		}
		m.users = msg.users
		if m.userIdx >= len(m.users) {
			m.userIdx = max(0, len(m.users)-1)
		}
		return m, nil

	case userUpdatedMsg:
		if msg.err != nil {
			return m, m.flashError(msg.err)
		}
		for i := range m.users {
			if m.users[i].ID == msg.user.ID {
				m.users[i] = *msg.user
			}
		}
		state := "deactivated"
		if msg.user.IsActive {
			state = "activated"
		}
		return m, m.showFlash(msg.user.Username+" "+state, false)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateFocusedInput(msg)
}

func mutationLabel(what string) string {
	if what == "" {
		return "Update"
	}
	return strings.ToUpper(what[:1]) + what[1:]
}

// updateFocusedInput forwards non-key messages (cursor blink) to whatever input has focus.
func (m appModel) updateFocusedInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.view == viewLogin:
		if m.loginFocus == 0 {
			m.loginUser, cmd = m.loginUser.Update(msg)
		} else {
			m.loginPass, cmd = m.loginPass.Update(msg)
		}
	case m.modal == modalAddComment:
		m.textarea, cmd = m.textarea.Update(msg)
	case m.modal != modalNone && m.inputFocus < len(m.inputs):
		m.inputs[m.inputFocus], cmd = m.inputs[m.inputFocus].Update(msg)
	case m.composing:
		m.composer, cmd = m.composer.Update(msg)
	}
	return m, cmd
}

func (m appModel) handleSignal(name string) (tea.Model, tea.Cmd) {
	if m.view == viewLogin {
		return m, nil
	}
	var cmds []tea.Cmd
	switch name {
	case signals.TasksRefresh:
		switch m.view {
		case viewTasks:
			cmds = append(cmds, m.loadTasks())
		case viewDashboard:
			cmds = append(cmds, m.loadDashboard())
		}
	case signals.OverdueRefresh:
		cmds = append(cmds, m.loadBadge())
		if m.view == viewDashboard {
			cmds = append(cmds, m.loadDashboard())
		}
	}
	return m, tea.Batch(cmds...)
}

// enterSession starts the session-wide consumers and loads the current view.
func (m appModel) enterSession() tea.Cmd {
	m.hub.forward(m.bus)
	m.startNotifications()
	return tea.Batch(m.loadNotifications(), m.loadBadge(), m.enterView())
}

func (m appModel) enterView() tea.Cmd {
	switch m.view {
	case viewDashboard:
		return m.loadDashboard()
	case viewTasks:
		return m.loadTasks()
	case viewTask:
		if m.detail != nil {
			return m.loadTaskDetail(m.detail.id)
		}
	case viewChat:
		return tea.Batch(m.loadChannels(), m.loadDirectory())
	case viewNotifications:
		return m.loadNotifications()
	case viewUsers:
		return m.loadUsers()
	}
	return nil
}

func (m *appModel) switchView(v view) tea.Cmd {
	if m.view == viewTask && v != viewTask {
		m.closeDetail()
	}
	if m.view == viewChat && v != viewChat {
		m.hub.stop(slotChat)
		m.composing = false
		m.composer.Blur()
	}
	m.view = v
	m.gen++
	return m.enterView()
}

func (m *appModel) closeDetail() {
	if m.detail == nil {
		return
	}
	m.hub.stop(slotComments)
	if m.detail.previews != nil {
		_ = m.detail.previews.Close()
	}
	m.detail = nil
}

// toLogin tears the session down to the login screen. The API client has already cleared the
// session when this runs for an expiry.
func (m *appModel) toLogin(reason string) tea.Cmd {
	m.closeDetail()
	m.hub.stop(slotChat)
	m.hub.stop(slotNotifications)
	m.client.Session().Logout(m.ctx())
	m.notes.Reset()
	m.board.Replace(nil)
	m.messages.Reset(nil)
	m.closeModal()

	m.view = viewLogin
	m.gen++
	m.overdue = 0
	m.dash = views.Summary{}
	m.dashLoaded = false
	m.tasksLoaded = false
	m.channels, m.channelID, m.composing = nil, 0, false
	m.users, m.directory = nil, nil
	m.loginErr = reason
	m.loginFocus = 0
	m.loginPass.Blur()
	m.loginUser.Focus()
	return textinput.Blink
}

func (m appModel) navViews() []view {
	out := []view{viewDashboard, viewTasks, viewChat, viewNotifications}
	if perm.CanManageUsers(m.me()) {
		out = append(out, viewUsers)
	}
	return out
}

func (m appModel) cycleView(delta int) (tea.Model, tea.Cmd) {
	nav := m.navViews()
	cur := 0
	for i, v := range nav {
		if v == m.view {
			cur = i
		}
	}
	next := (cur + delta + len(nav)) % len(nav)
	cmd := m.switchView(nav[next])
	return m, cmd
}

func (m appModel) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.view == viewLogin {
		return m.updateLogin(k)
	}
	if m.modal != modalNone {
		return m.updateModal(k)
	}
	if m.view == viewChat && m.composing {
		return m.updateComposer(k)
	}

	switch {
	case key.Matches(k, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(k, m.keys.Logout):
		m.modal = modalConfirmLogout
		return m, nil
	case m.view != viewTask && key.Matches(k, m.keys.NextView):
		return m.cycleView(1)
	case m.view != viewTask && key.Matches(k, m.keys.PrevView):
		return m.cycleView(-1)
	}
	if n := k.String(); len(n) == 1 && n[0] >= '1' && n[0] <= '9' {
		if nav := m.navViews(); int(n[0]-'1') < len(nav) {
			cmd := m.switchView(nav[n[0]-'1'])
			return m, cmd
		}
	}

	switch m.view {
	case viewDashboard:
		return m.updateDashboard(k)
	case viewTasks:
		return m.updateTasks(k)
	case viewTask:
		return m.updateTask(k)
	case viewChat:
		return m.updateChat(k)
	case viewNotifications:
		return m.updateNotifications(k)
	case viewUsers:
		return m.updateUsers(k)
	}
	return m, nil
}

func (m appModel) updateLogin(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "tab", "shift+tab", "up", "down":
		m.loginFocus = 1 - m.loginFocus
		if m.loginFocus == 0 {
			m.loginPass.Blur()
			return m, m.loginUser.Focus()
		}
		m.loginUser.Blur()
		return m, m.loginPass.Focus()
	case "enter":
		if m.loggingIn {
			return m, nil
		}
		user := strings.TrimSpace(m.loginUser.Value())
		pass := m.loginPass.Value()
		if user == "" || pass == "" {
			m.loginErr = "Enter a username and password."
			return m, nil
		}
		m.loggingIn = true
		m.loginErr = ""
		return m, m.loginCmd(user, pass)
	}
	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.loginUser, cmd = m.loginUser.Update(k)
	} else {
		m.loginPass, cmd = m.loginPass.Update(k)
	}
	return m, cmd
}

func (m appModel) updateDashboard(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Refresh):
		return m, tea.Batch(m.loadDashboard(), m.loadBadge())
	case key.Matches(k, m.keys.Up):
		m.taskIdx = max(0, m.taskIdx-1)
	case key.Matches(k, m.keys.Down):
		m.taskIdx = min(max(0, len(m.dash.Overdue)-1), m.taskIdx+1)
	case key.Matches(k, m.keys.Open):
		if m.taskIdx < len(m.dash.Overdue) {
			return m, m.openTask(m.dash.Overdue[m.taskIdx].ID)
		}
	}
	return m, nil
}

func (m *appModel) openTask(id int) tea.Cmd {
	m.closeDetail()
	m.hub.stop(slotChat)
	m.detail = &taskDetail{
		id:       id,
		loading:  true,
		comments: keyset.NewList(live.CommentKey),
	}
	m.view = viewTask
	m.gen++
	return m.loadTaskDetail(id)
}

func (m appModel) applyTaskDetail(msg taskDetailMsg) (tea.Model, tea.Cmd) {
	d := m.detail
	if msg.gen != m.gen || d == nil || d.id != msg.id {
		return m, nil
	}
	d.loading = false
	if msg.err != nil {
		if api.IsNotFound(msg.err) {
			d.notFound = true
			return m, nil
		}
		return m, m.flashError(msg.err)
	}

	if d.editor == nil {
		d.editor = mutate.NewEditor(*msg.task, m.client.Tasks, m.bus)
		gen, h := m.gen, m.hub
		d.editor.OnChange(func(t model.Task) { h.post(taskChangedMsg{gen: gen, task: t}) })
	} else {
		d.editor.Replace(*msg.task)
	}
	d.comments.Reset(keyset.Merge(msg.comments, d.comments.Items(), live.CommentKey))
	d.links = msg.links
	d.attachments = msg.attachments
	d.history = msg.history
	d.users = msg.users
	m.clampDetailSelection()

	if d.previews == nil {
		d.previews = preview.NewCache(m.client.Attachments, m.log.Named("preview"))
		m.startComments(d.id, d.comments)
	}
	return m, m.syncPreviews(d.previews, d.attachments)
}

func (m appModel) updateTask(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.detail
	if key.Matches(k, m.keys.Back) || d == nil {
		cmd := m.switchView(viewTasks)
		return m, cmd
	}
	if d.loading || d.notFound || d.editor == nil {
		return m, nil
	}
	ed := d.editor
	t := ed.Task()

	switch {
	case key.Matches(k, m.keys.Refresh):
		return m, m.loadTaskDetail(d.id)
	case key.Matches(k, m.keys.Status):
		next := statusutil.CycleStatus(t.Status)
		return m, m.mutateCmd("status", func(ctx context.Context) (mutate.Result, error) {
			return ed.SetStatus(ctx, next)
		})
	case key.Matches(k, m.keys.Priority):
		next := statusutil.CyclePriority(t.Priority)
		return m, m.mutateCmd("priority", func(ctx context.Context) (mutate.Result, error) {
			return ed.SetPriority(ctx, next)
		})
	case key.Matches(k, m.keys.Assign):
		if len(d.users) == 0 {
			return m, m.showFlash("No users to assign", true)
		}
		m.openModal(modalPickAssignee)
		return m, nil
	case key.Matches(k, m.keys.Comment):
		if !perm.CanComment(m.me(), t) {
			return m, m.showFlash("Only the creator and assignees can comment", true)
		}
		m.openModal(modalAddComment)
		return m, m.textarea.Focus()
	case key.Matches(k, m.keys.Link):
		m.openModal(modalAddLink)
		return m, m.inputs[0].Focus()
	case key.Matches(k, m.keys.Section):
		d.section = (d.section + 1) % (sectionHistory + 1)
		d.sel = 0
	case key.Matches(k, m.keys.Up):
		d.sel = max(0, d.sel-1)
	case key.Matches(k, m.keys.Down):
		d.sel++
		m.clampDetailSelection()
	case key.Matches(k, m.keys.Delete):
		if d.section == sectionLinks && d.sel < len(d.links) {
			return m, m.deleteLinkCmd(d.id, d.links[d.sel].ID)
		}
	case key.Matches(k, m.keys.Open):
		if d.section == sectionAttachments && d.sel < len(d.attachments) {
			return m, m.showFlash(m.attachmentTarget(d.attachments[d.sel]), false)
		}
		if d.section == sectionLinks && d.sel < len(d.links) {
			return m, m.showFlash(d.links[d.sel].URL, false)
		}
	}
	return m, nil
}

// attachmentTarget is where an attachment can be opened: the downloaded file for PDFs, the
// absolute URL otherwise.
func (m appModel) attachmentTarget(a model.Attachment) string {
	if preview.Classify(a.Filename) == preview.KindPDF && m.detail.previews != nil {
		if p, ok := m.detail.previews.Path(a.ID); ok {
			return p
		}
	}
	return preview.URL(m.client.Origin(), a.File)
}

func (m *appModel) clampDetailSelection() {
	d := m.detail
	if d == nil {
		return
	}
	n := 0
	switch d.section {
	case sectionComments:
		n = d.comments.Len()
	case sectionLinks:
		n = len(d.links)
	case sectionAttachments:
		n = len(d.attachments)
	case sectionHistory:
		n = len(d.history)
	}
	if d.sel >= n {
		d.sel = max(0, n-1)
	}
}

func (m appModel) updateChat(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Up):
		m.chanIdx = max(0, m.chanIdx-1)
	case key.Matches(k, m.keys.Down):
		m.chanIdx = min(max(0, len(m.channels)-1), m.chanIdx+1)
	case key.Matches(k, m.keys.Open):
		if m.chanIdx < len(m.channels) {
			return m, m.openChannel(m.channels[m.chanIdx].ID)
		}
	case key.Matches(k, m.keys.Compose):
		if m.channelID == 0 {
			return m, m.showFlash("Open a channel first", true)
		}
		m.composing = true
		return m, m.composer.Focus()
	case key.Matches(k, m.keys.New):
		m.openModal(modalNewChannel)
		if len(m.directory) == 0 {
			return m, m.loadDirectory()
		}
	case key.Matches(k, m.keys.Refresh):
		return m, m.loadChannels()
	case k.String() == "pgup":
		m.chatScroll.HalfViewUp()
	case k.String() == "pgdown":
		m.chatScroll.HalfViewDown()
	}
	return m, nil
}

func (m *appModel) openChannel(id int) tea.Cmd {
	m.channelID = id
	m.messages.Reset(nil)
	m.refreshChatScroll()
	m.startChat(id)
	return m.loadMessages(id)
}

func (m appModel) updateComposer(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "esc":
		m.composing = false
		m.composer.Blur()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.composer.Value())
		if text == "" || m.channelID == 0 {
			return m, nil
		}
		m.composer.SetValue("")
		return m, m.sendMessageCmd(m.channelID, text)
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(k)
	return m, cmd
}

func (m appModel) updateNotifications(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.notes.Items()
	switch {
	case key.Matches(k, m.keys.Up):
		m.noteIdx = max(0, m.noteIdx-1)
	case key.Matches(k, m.keys.Down):
		m.noteIdx = min(max(0, len(items)-1), m.noteIdx+1)
	case key.Matches(k, m.keys.Read):
		if m.noteIdx < len(items) && !items[m.noteIdx].Read {
			return m, m.markReadCmd(items[m.noteIdx].ID)
		}
	case key.Matches(k, m.keys.ReadAll):
		if m.notes.Unread() > 0 {
			return m, m.markAllReadCmd()
		}
	case key.Matches(k, m.keys.Refresh):
		return m, m.loadNotifications()
	}
	return m, nil
}

func (m appModel) updateUsers(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(k, m.keys.Up):
		m.userIdx = max(0, m.userIdx-1)
	case key.Matches(k, m.keys.Down):
		m.userIdx = min(max(0, len(m.users)-1), m.userIdx+1)
	case key.Matches(k, m.keys.Toggle):
		if !perm.CanManageUsers(m.me()) {
			return m, m.showFlash("Only administrators can change accounts", true)
		}
		if m.userIdx < len(m.users) {
			u := m.users[m.userIdx]
			if u.ID == m.meID() {
				return m, m.showFlash("You cannot deactivate your own account", true)
			}
			return m, m.setActiveCmd(u.ID, !u.IsActive)
		}
	case key.Matches(k, m.keys.Refresh):
		return m, m.loadUsers()
	}
	return m, nil
}
