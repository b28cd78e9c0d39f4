package tui

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/keyset"
	"taskflow-cli/internal/live"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/mutate"
	"taskflow-cli/internal/notify"
	"taskflow-cli/internal/preview"
	"taskflow-cli/internal/signals"
	"taskflow-cli/internal/views"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const flashFor = 3 * time.Second

// ctx is the program context once attached, so in-flight work stops on quit.
func (m appModel) ctx() context.Context {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	if m.hub.ctx != nil {
		return m.hub.ctx
	}
	return context.Background()
}

func (m *appModel) showFlash(text string, isErr bool) tea.Cmd {
	m.flash = text
	m.flashErr = isErr
	m.flashSeq++
	seq := m.flashSeq
	return tea.Tick(flashFor, func(time.Time) tea.Msg { return flashDoneMsg{seq: seq} })
}

func (m *appModel) flashError(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	return m.showFlash(err.Error(), true)
}

func (m appModel) loginCmd(username, password string) tea.Cmd {
	ctx := m.ctx()
	c := m.client
	return func() tea.Msg {
		res, err := c.Auth.Login(ctx, username, password)
		if err != nil {
			return loginDoneMsg{err: err}
		}
		if err := c.Session().SetAuth(ctx, res.Access, res.Refresh, res.User); err != nil {
			return loginDoneMsg{err: err}
		}
		return loginDoneMsg{user: res.User}
	}
}

func (m appModel) loadBadge() tea.Cmd {
	ctx := m.ctx()
	tasks := m.client.Tasks
	return func() tea.Msg {
		p, err := tasks.List(ctx, api.TaskListParams{MyTasks: true})
		if err != nil {
			return badgeMsg{err: err}
		}
		return badgeMsg{overdue: views.OverdueCount(p.Results)}
	}
}

func (m appModel) loadNotifications() tea.Cmd {
	ctx := m.ctx()
	st := m.notes
	return func() tea.Msg {
		return noticeDoneMsg{err: st.Fetch(ctx)}
	}
}

func (m appModel) loadDashboard() tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	tasks := m.client.Tasks
	unread := m.notes.Unread()
	now := m.now()
	return func() tea.Msg {
		s, err := views.LoadDashboard(ctx, tasks, unread, now)
		return dashboardMsg{gen: gen, summary: s, err: err}
	}
}

func (m appModel) loadTasks() tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	tasks := m.client.Tasks
	params := api.TaskListParams{MyTasks: m.mineOnly, Status: m.statusFilter}
	return func() tea.Msg {
		p, err := tasks.List(ctx, params)
		return tasksMsg{gen: gen, tasks: p.Results, err: err}
	}
}

// loadTaskDetail fetches the task and its side lists together. A failed side list leaves
// that section empty; only the task itself decides between found and not found.
func (m appModel) loadTaskDetail(id int) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	c := m.client
	log := m.log
	return func() tea.Msg {
		out := taskDetailMsg{gen: gen, id: id}
		t, err := c.Tasks.Get(ctx, id)
		if err != nil {
			out.err = err
			return out
		}
		out.task = t

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			xs, err := c.Tasks.Comments(gctx, id)
			out.comments = xs
			return soft(log, "comments", err)
		})
		g.Go(func() error {
			xs, err := c.Tasks.Links(gctx, id)
			out.links = xs
			return soft(log, "links", err)
		})
		g.Go(func() error {
			xs, err := c.Attachments.List(gctx, id)
			out.attachments = xs
			return soft(log, "attachments", err)
		})
		g.Go(func() error {
			xs, err := c.Tasks.StatusHistory(gctx, id)
			out.history = xs
			return soft(log, "history", err)
		})
		g.Go(func() error {
			xs, err := c.Users.List(gctx)
			out.users = xs
			return soft(log, "users", err)
		})
		_ = g.Wait()
		return out
	}
}

func soft(log *zap.Logger, what string, err error) error {
	if err != nil {
		log.Debug("task detail: "+what, zap.Error(err))
	}
	return nil
}

func (m appModel) loadHistory(id int) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	tasks := m.client.Tasks
	return func() tea.Msg {
		xs, err := tasks.StatusHistory(ctx, id)
		if err != nil {
			return nil
		}
		return historyMsg{gen: gen, history: xs}
	}
}

func (m appModel) syncPreviews(cache *preview.Cache, atts []model.Attachment) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	return func() tea.Msg {
		_ = cache.Sync(ctx, atts)
		return previewSyncedMsg{gen: gen}
	}
}

// mutateCmd runs an optimistic editor call. The local change reaches the screen through the
// editor's OnChange before the request returns.
func (m appModel) mutateCmd(what string, fn func(context.Context) (mutate.Result, error)) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	return func() tea.Msg {
		_, err := fn(ctx)
		return mutationDoneMsg{gen: gen, what: what, err: err}
	}
}

func (m appModel) moveCmd(taskID int, status model.Status) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	board := m.board
	return func() tea.Msg {
		_, err := board.Move(ctx, taskID, status)
		return mutationDoneMsg{gen: gen, what: "move", err: err}
	}
}

func (m appModel) addCommentCmd(taskID int, body string, comments *keyset.List[model.TaskComment, int]) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	tasks := m.client.Tasks
	return func() tea.Msg {
		c, err := tasks.AddComment(ctx, taskID, body)
		if err == nil && c != nil {
			comments.Add(*c)
		}
		return commentAddedMsg{gen: gen, err: err}
	}
}

func (m appModel) addLinkCmd(taskID int, rawURL, label string) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	tasks := m.client.Tasks
	return func() tea.Msg {
		if _, err := tasks.AddLink(ctx, taskID, rawURL, label); err != nil {
			return linksMsg{gen: gen, err: err}
		}
		xs, err := tasks.Links(ctx, taskID)
		return linksMsg{gen: gen, links: xs, err: err}
	}
}

func (m appModel) deleteLinkCmd(taskID, linkID int) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	tasks := m.client.Tasks
	return func() tea.Msg {
		if err := tasks.DeleteLink(ctx, taskID, linkID); err != nil && !api.IsNotFound(err) {
			return linksMsg{gen: gen, err: err}
		}
		xs, err := tasks.Links(ctx, taskID)
		return linksMsg{gen: gen, links: xs, err: err}
	}
}

func (m appModel) createTaskCmd(in api.TaskInput) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	tasks := m.client.Tasks
	bus := m.bus
	return func() tea.Msg {
		t, err := tasks.Create(ctx, in)
		if err == nil {
			bus.Publish(signals.TasksRefresh)
		}
		return taskCreatedMsg{gen: gen, task: t, err: err}
	}
}

func (m appModel) loadChannels() tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	chat := m.client.Chat
	return func() tea.Msg {
		xs, err := chat.ListChannels(ctx)
		return channelsMsg{gen: gen, channels: xs, err: err}
	}
}

func (m appModel) loadMessages(channelID int) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	chat := m.client.Chat
	return func() tea.Msg {
		xs, err := chat.ListMessages(ctx, channelID)
		return messagesMsg{gen: gen, channelID: channelID, messages: xs, err: err}
	}
}

func (m appModel) sendMessageCmd(channelID int, text string) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	chat := m.client.Chat
	return func() tea.Msg {
		msg, err := chat.SendMessage(ctx, channelID, text, nil)
		return messageSentMsg{gen: gen, channelID: channelID, message: msg, err: err}
	}
}

func (m appModel) createChannelCmd(in api.ChannelInput) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	chat := m.client.Chat
	return func() tea.Msg {
		ch, err := chat.CreateChannel(ctx, in)
		return channelCreatedMsg{gen: gen, channel: ch, err: err}
	}
}

func (m appModel) loadDirectory() tea.Cmd {
	ctx := m.ctx()
	users := m.client.Users
	return func() tea.Msg {
		xs, err := users.List(ctx)
		return directoryMsg{users: xs, err: err}
	}
}

func (m appModel) loadUsers() tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	users := m.client.Users
	return func() tea.Msg {
		xs, err := users.ListFull(ctx)
		return usersMsg{gen: gen, users: xs, err: err}
	}
}

func (m appModel) setActiveCmd(id int, active bool) tea.Cmd {
	ctx, gen := m.ctx(), m.gen
	users := m.client.Users
	return func() tea.Msg {
		u, err := users.Update(ctx, id, api.UserPatch{IsActive: &active})
		return userUpdatedMsg{gen: gen, user: u, err: err}
	}
}

func (m appModel) markReadCmd(id int) tea.Cmd {
	ctx := m.ctx()
	st := m.notes
	return func() tea.Msg {
		return noticeDoneMsg{err: st.MarkRead(ctx, id)}
	}
}

func (m appModel) markAllReadCmd() tea.Cmd {
	ctx := m.ctx()
	st := m.notes
	return func() tea.Msg {
		return noticeDoneMsg{err: st.MarkAllRead(ctx)}
	}
}

// startNotifications runs the session-wide notification stream until logout or quit.
func (m appModel) startNotifications() {
	if !m.hub.attached() {
		return
	}
	var chime notify.Chime = notify.NopChime{}
	if m.cfg.Sound {
		chime = notify.NewTerminalChime(stderr)
	}
	n := live.NewNotifications(m.liveDeps(), m.notes, chime, nil)
	m.hub.start(slotNotifications, n.Run)
}

func (m appModel) startChat(channelID int) {
	h := m.hub
	c := live.NewChat(m.liveDeps(), channelID, m.messages, func(model.Message) {
		h.post(liveMessageMsg{channelID: channelID})
	})
	h.start(slotChat, c.Run)
}

func (m appModel) startComments(taskID int, comments *keyset.List[model.TaskComment, int]) {
	h := m.hub
	tc := live.NewTaskComments(m.liveDeps(), taskID, comments, func(model.TaskComment) {
		h.post(liveCommentMsg{taskID: taskID})
	})
	h.start(slotComments, tc.Run)
}

func (m appModel) liveDeps() live.Deps {
	return live.Deps{
		Client: m.client,
		Bus:    m.bus,
		Delay:  m.cfg.ReconnectDelay,
		Logger: m.log.Named("live"),
	}
}

func validateLink(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("link must be an absolute http(s) URL")
	}
	return nil
}
