package live_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/apitest"
	"taskflow-cli/internal/keyset"
	"taskflow-cli/internal/live"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/notify"
	"taskflow-cli/internal/session"
	"taskflow-cli/internal/signals"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	wait = 3 * time.Second
	tick = 10 * time.Millisecond
)

type countingChime struct {
	mu    sync.Mutex
	rings []model.Notification
}

func (c *countingChime) Ring(n model.Notification) {
	c.mu.Lock()
	c.rings = append(c.rings, n)
	c.mu.Unlock()
}

func (c *countingChime) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rings)
}

func setup(t *testing.T) (*apitest.Server, live.Deps) {
	t.Helper()
	srv := apitest.New(t)
	sess := session.New(nil, nil)
	c, err := api.New(sess, api.Options{APIURL: srv.URL})
	require.NoError(t, err)
	res, err := c.Auth.Login(context.Background(), "ada", apitest.Password)
	require.NoError(t, err)
	require.NoError(t, sess.SetAuth(context.Background(), res.Access, res.Refresh, res.User))
	return srv, live.Deps{Client: c, Bus: signals.NewBus(), Delay: 20 * time.Millisecond}
}

func runInBackground(t *testing.T, run func(context.Context)) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(wait):
			t.Errorf("consumer did not stop after cancel")
		}
	})
	return cancel
}

func TestNotifications_PushDedupsAndSignals(t *testing.T) {
	srv, deps := setup(t)
	store := notify.New(deps.Client.Notifications)
	chime := &countingChime{}
	sigs, cancelSub := deps.Bus.Subscribe()
	defer cancelSub()

	n := live.NewNotifications(deps, store, chime, nil)
	runInBackground(t, n.Run)
	require.True(t, srv.WaitForSockets("/ws/notifications/", 1, wait))

	frame := gin.H{"id": 11, "title": "Assigned", "notification_type": "task_assigned"}
	srv.Broadcast("/ws/notifications/", frame)
	srv.Broadcast("/ws/notifications/", frame)
	srv.BroadcastRaw("/ws/notifications/", []byte("{not json"))
	srv.Broadcast("/ws/notifications/", gin.H{"id": nil, "title": "ignored"})
	srv.Broadcast("/ws/notifications/", gin.H{"id": 12, "title": "Due soon", "notification_type": model.NotificationDeadline})

	require.Eventually(t, func() bool { return chime.count() == 3 }, wait, tick)
	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 12, items[0].ID)
	assert.Equal(t, 11, items[1].ID)
	assert.Equal(t, 2, store.Unread())
	assert.NotNil(t, items[1].ExtraData)
	assert.Empty(t, items[1].Message)
	assert.False(t, items[1].CreatedAt.IsZero())

	select {
	case s := <-sigs:
		assert.Equal(t, signals.OverdueRefresh, s.Name)
	case <-time.After(wait):
		t.Fatalf("expected overdue refresh signal for deadline notification")
	}

	srv.Broadcast("/ws/notifications/", gin.H{"type": "task_list_invalidate"})
	got := map[string]bool{}
	for len(got) < 2 {
		select {
		case s := <-sigs:
			got[s.Name] = true
		case <-time.After(wait):
			t.Fatalf("expected both refresh signals; got %v", got)
		}
	}
	assert.True(t, got[signals.TasksRefresh] && got[signals.OverdueRefresh])
}

func TestNotifications_AuthCloseRefreshesOnceThenReconnects(t *testing.T) {
	srv, deps := setup(t)
	stale := deps.Client.Session().AccessToken()
	srv.ExpireAccessTokens()

	n := live.NewNotifications(deps, nil, nil, nil)
	runInBackground(t, n.Run)

	require.True(t, srv.WaitForSockets("/ws/notifications/", 1, wait))
	assert.Equal(t, 1, srv.RefreshCalls())
	assert.NotEqual(t, stale, deps.Client.Session().AccessToken())
	total, accepted := srv.Dials("/ws/notifications/")
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, accepted)
	require.Eventually(t, func() bool { return n.State() == live.Open }, wait, tick)
}

func TestNotifications_FailedRefreshIsNotLooped(t *testing.T) {
	srv, deps := setup(t)
	srv.ExpireAccessTokens()
	srv.SetRefreshFails(true)
	srv.RejectBadHandshakes(true)

	n := live.NewNotifications(deps, nil, nil, nil)
	runInBackground(t, n.Run)

	require.Eventually(t, func() bool {
		total, _ := srv.Dials("/ws/notifications/")
		return total >= 4
	}, wait, tick)
	assert.Equal(t, 1, srv.RefreshCalls())
}

func TestConn_CancelStopsReconnecting(t *testing.T) {
	srv, deps := setup(t)
	n := live.NewNotifications(deps, nil, nil, nil)
	cancel := runInBackground(t, n.Run)
	require.True(t, srv.WaitForSockets("/ws/notifications/", 1, wait))

	cancel()
	require.Eventually(t, func() bool { return srv.SocketCount("/ws/notifications/") == 0 }, wait, tick)
	require.Eventually(t, func() bool { return n.State() == live.Disconnected }, wait, tick)
	before, _ := srv.Dials("/ws/notifications/")
	time.Sleep(5 * deps.Delay)
	after, _ := srv.Dials("/ws/notifications/")
	assert.Equal(t, before, after)
}

func TestTaskComments_MergesByID(t *testing.T) {
	srv, deps := setup(t)
	task := srv.AddTask(model.Task{Title: "Review", CreatedBy: apitest.AdaID})
	list := keyset.NewList(live.CommentKey)

	var mu sync.Mutex
	var added []int
	tc := live.NewTaskComments(deps, task.ID, list, func(c model.TaskComment) {
		mu.Lock()
		added = append(added, c.ID)
		mu.Unlock()
	})
	runInBackground(t, tc.Run)
	path := "/ws/task-comments/" + strconv.Itoa(task.ID) + "/"
	require.True(t, srv.WaitForSockets(path, 1, wait))

	// The REST post broadcasts the comment; replaying it must not duplicate.
	cm, err := deps.Client.Tasks.AddComment(context.Background(), task.ID, "looks good")
	require.NoError(t, err)
	srv.Broadcast(path, gin.H{"type": "new_comment", "comment": cm})
	srv.Broadcast(path, gin.H{"type": "other", "comment": gin.H{"id": 999}})

	require.Eventually(t, func() bool { return list.Len() == 1 }, wait, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, list.Len())
	mu.Lock()
	assert.Equal(t, []int{cm.ID}, added)
	mu.Unlock()
}

func TestChat_ReconnectsAfterDrop(t *testing.T) {
	srv, deps := setup(t)
	ch := srv.AddChannel(model.Channel{Name: "general", ChannelType: model.ChannelGroup, Members: []int{apitest.AdaID, apitest.GraceID}})
	list := keyset.NewList(live.MessageKey)
	c := live.NewChat(deps, ch.ID, list, nil)
	runInBackground(t, c.Run)
	path := "/ws/chat/" + strconv.Itoa(ch.ID) + "/"
	require.True(t, srv.WaitForSockets(path, 1, wait))

	srv.CloseSockets(1011)
	require.Eventually(t, func() bool {
		_, accepted := srv.Dials(path)
		return accepted >= 2 && srv.SocketCount(path) == 1
	}, wait, tick)

	m := srv.AddMessage(ch.ID, apitest.GraceID, "back online?")
	srv.Broadcast(path, m)
	srv.Broadcast(path, m)
	srv.Broadcast(path, gin.H{"content": "no id"})
	require.Eventually(t, func() bool { return list.Len() == 1 }, wait, tick)
	assert.Equal(t, "back online?", list.Items()[0].Content)

	// Frames arrive in order, so once the next message lands the repeat has been handled.
	srv.Broadcast(path, m)
	next := srv.AddMessage(ch.ID, apitest.AdaID, "yes")
	srv.Broadcast(path, next)
	require.Eventually(t, func() bool { return list.Len() >= 2 }, wait, tick)
	items := list.Items()
	require.Len(t, items, 2)
	assert.Equal(t, m.ID, items[0].ID)
	assert.Equal(t, next.ID, items[1].ID)
}
