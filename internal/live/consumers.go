package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/keyset"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/notify"
	"taskflow-cli/internal/signals"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// CloseAuthFailed is the application close code the backend sends for a rejected token.
const CloseAuthFailed = 4401

var errNoToken = errors.New("live: not logged in")

// Deps are shared by every consumer.
type Deps struct {
	Client *api.Client
	Bus    *signals.Bus
	Delay  time.Duration
	Dialer *websocket.Dialer
	Logger *zap.Logger
}

func (d Deps) urlFor(path string) func() (string, error) {
	return func() (string, error) {
		tok := d.Client.Session().AccessToken()
		if tok == "" {
			return "", errNoToken
		}
		return d.Client.WebSocketURL(path, url.Values{"token": {tok}}), nil
	}
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Notifications is the session-wide notification stream.
type Notifications struct {
	deps  Deps
	store *notify.Store
	chime notify.Chime
	conn  *Conn

	// refreshTried is only touched from the Run goroutine (OnState/OnClose).
	refreshTried bool
	ctx          context.Context
}

func NewNotifications(deps Deps, store *notify.Store, chime notify.Chime, onState func(State)) *Notifications {
	if chime == nil {
		chime = notify.NopChime{}
	}
	n := &Notifications{deps: deps, store: store, chime: chime}
	n.conn = New(Options{
		URL:       deps.urlFor("/ws/notifications/"),
		OnMessage: n.handle,
		OnState: func(s State) {
			if s == Open {
				n.refreshTried = false
			}
			if onState != nil {
				onState(s)
			}
		},
		OnClose: n.closed,
		Delay:   deps.Delay,
		Dialer:  deps.Dialer,
		Logger:  deps.logger().Named("ws.notifications"),
	})
	return n
}

func (n *Notifications) State() State { return n.conn.State() }

func (n *Notifications) Run(ctx context.Context) {
	n.ctx = ctx
	n.conn.Run(ctx)
}

// closed refreshes the session at most once per run of failed connections, so an expired
// access token is replaced before the next dial without looping on a dead refresh token.
func (n *Notifications) closed(code int, opened bool) {
	if code != CloseAuthFailed && code != CloseAbnormal {
		return
	}
	if n.refreshTried {
		return
	}
	n.refreshTried = true
	ok := n.deps.Client.Session().Refresh(n.ctx)
	n.deps.logger().Debug("live: refresh after close", zap.Int("code", code), zap.Bool("opened", opened), zap.Bool("ok", ok))
}

type pushedNotification struct {
	Type             string         `json:"type"`
	ID               *int           `json:"id"`
	NotificationType *string        `json:"notification_type"`
	Title            *string        `json:"title"`
	Message          *string        `json:"message"`
	Link             *string        `json:"link"`
	Read             bool           `json:"read"`
	CreatedAt        *time.Time     `json:"created_at"`
	ExtraData        map[string]any `json:"extra_data"`
}

func (n *Notifications) handle(frame []byte) {
	var p pushedNotification
	if err := json.Unmarshal(frame, &p); err != nil {
		n.deps.logger().Debug("live: malformed notification frame", zap.Error(err))
		return
	}
	if p.Type == "task_list_invalidate" {
		n.deps.Bus.Publish(signals.TasksRefresh)
		n.deps.Bus.Publish(signals.OverdueRefresh)
		return
	}
	nt, ok := normalize(p, time.Now())
	if !ok {
		return
	}
	if n.store != nil {
		n.store.Push(nt)
	}
	n.chime.Ring(nt)
	if nt.NotificationType == model.NotificationDeadline {
		n.deps.Bus.Publish(signals.OverdueRefresh)
	}
}

// normalize fills defaults for optional fields; frames without id or title are not
// notifications.
func normalize(p pushedNotification, now time.Time) (model.Notification, bool) {
	if p.ID == nil || p.Title == nil {
		return model.Notification{}, false
	}
	out := model.Notification{ID: *p.ID, Title: *p.Title, Read: p.Read, ExtraData: p.ExtraData}
	if p.NotificationType != nil {
		out.NotificationType = *p.NotificationType
	}
	if p.Message != nil {
		out.Message = *p.Message
	}
	if p.Link != nil {
		out.Link = *p.Link
	}
	if p.CreatedAt != nil {
		out.CreatedAt = *p.CreatedAt
	} else {
		out.CreatedAt = now
	}
	if out.ExtraData == nil {
		out.ExtraData = map[string]any{}
	}
	return out, true
}

// TaskComments streams new comments for one task into a keyed list.
type TaskComments struct {
	conn     *Conn
	comments *keyset.List[model.TaskComment, int]
}

// CommentKey keys comments by id.
func CommentKey(c model.TaskComment) int { return c.ID }

// NewTaskComments merges pushed comments into comments; onAdd runs for each comment that was
// not already present.
func NewTaskComments(deps Deps, taskID int, comments *keyset.List[model.TaskComment, int], onAdd func(model.TaskComment)) *TaskComments {
	tc := &TaskComments{comments: comments}
	log := deps.logger().Named("ws.comments")
	tc.conn = New(Options{
		URL: deps.urlFor(fmt.Sprintf("/ws/task-comments/%d/", taskID)),
		OnMessage: func(frame []byte) {
			var p struct {
				Type    string             `json:"type"`
				Comment *model.TaskComment `json:"comment"`
			}
			if err := json.Unmarshal(frame, &p); err != nil {
				log.Debug("live: malformed comment frame", zap.Error(err))
				return
			}
			if p.Type != "new_comment" || p.Comment == nil {
				return
			}
			if comments.Add(*p.Comment) && onAdd != nil {
				onAdd(*p.Comment)
			}
		},
		Delay:  deps.Delay,
		Dialer: deps.Dialer,
		Logger: log,
	})
	return tc
}

func (tc *TaskComments) Run(ctx context.Context) { tc.conn.Run(ctx) }
func (tc *TaskComments) State() State           { return tc.conn.State() }

// Chat streams messages of one channel into a keyed list.
type Chat struct {
	conn *Conn
}

func MessageKey(m model.Message) int { return m.ID }

func NewChat(deps Deps, channelID int, messages *keyset.List[model.Message, int], onAdd func(model.Message)) *Chat {
	log := deps.logger().Named("ws.chat")
	c := &Chat{}
	c.conn = New(Options{
		URL: deps.urlFor(fmt.Sprintf("/ws/chat/%d/", channelID)),
		OnMessage: func(frame []byte) {
			var m model.Message
			if err := json.Unmarshal(frame, &m); err != nil {
				log.Debug("live: malformed chat frame", zap.Error(err))
				return
			}
			if m.ID == 0 {
				return
			}
			if messages.Add(m) && onAdd != nil {
				onAdd(m)
			}
		},
		Delay:  deps.Delay,
		Dialer: deps.Dialer,
		Logger: log,
	})
	return c
}

func (c *Chat) Run(ctx context.Context) { c.conn.Run(ctx) }
func (c *Chat) State() State           { return c.conn.State() }

// Group runs several consumers and waits for all of them after cancel.
type Group struct {
	wg sync.WaitGroup
}

func (g *Group) Go(ctx context.Context, run func(context.Context)) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		run(ctx)
	}()
}

func (g *Group) Wait() { g.wg.Wait() }
