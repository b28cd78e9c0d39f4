// Package apitest runs an in-memory TaskFlow backend for tests.
//
// It speaks the same REST and WebSocket contract as the real server, signs HS256 JWTs, and
// exposes knobs to expire access tokens, fail the refresh endpoint, inject one-shot failures
// and push frames to connected sockets.
package apitest

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"taskflow-cli/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

const Password = "secret"

// Seeded user ids.
const (
	AdminID = 1
	AdaID   = 2
	GraceID = 3
)

// Recorded is one request as the fake backend saw it.
type Recorded struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
	ContentType   string
	Body          []byte
}

type failure struct {
	status int
	body   any
}

type Server struct {
	*httptest.Server

	mu     sync.Mutex
	secret []byte
	gen    int // access tokens from older generations are rejected
	nextID int

	users         map[int]*model.User
	roles         []model.Role
	tasks         map[int]*model.Task
	comments      map[int][]model.TaskComment
	links         map[int][]model.TaskLink
	history       map[int][]model.StatusHistoryEntry
	attachments   map[int]*model.Attachment
	files         map[int][]byte
	channels      map[int]*model.Channel
	messages      map[int][]model.Message
	notifications []model.Notification

	requests     []Recorded
	fail         map[string]failure
	refreshFails bool
	refreshCalls int

	wsMu    sync.Mutex
	sockets map[string][]*socket
	dials   []dial

	rejectHandshake bool
}

// New starts a seeded server and registers its shutdown with t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret:      []byte("apitest-secret"),
		nextID:      100,
		users:       map[int]*model.User{},
		tasks:       map[int]*model.Task{},
		comments:    map[int][]model.TaskComment{},
		links:       map[int][]model.TaskLink{},
		history:     map[int][]model.StatusHistoryEntry{},
		attachments: map[int]*model.Attachment{},
		files:       map[int][]byte{},
		channels:    map[int]*model.Channel{},
		messages:    map[int][]model.Message{},
		fail:        map[string]failure{},
		sockets:     map[string][]*socket{},
	}
	s.seed()
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(func() {
		s.CloseSockets(websocket.CloseGoingAway)
		s.Server.Close()
	})
	return s
}

func (s *Server) seed() {
	member := model.Role{ID: 1, Name: "Member", CanViewTasks: true, CanCreateTasks: true, CanEditTasks: true, CanChangeTaskStatus: true, CanAccessChat: true}
	manager := model.Role{ID: 2, Name: "Manager", CanViewTasks: true, CanCreateTasks: true, CanEditTasks: true, CanDeleteTasks: true, CanAssignTasks: true, CanChangeTaskStatus: true, CanAccessChat: true, CanManageUsers: true}
	s.roles = []model.Role{member, manager}
	joined := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	one := 1
	s.users[AdminID] = &model.User{ID: AdminID, Username: "admin", Email: "admin@example.com", IsStaff: true, IsSuperuser: true, IsActive: true, DateJoined: joined}
	s.users[AdaID] = &model.User{ID: AdaID, Username: "ada", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", Role: &one, RoleDetail: &member, IsActive: true, DateJoined: joined}
	s.users[GraceID] = &model.User{ID: GraceID, Username: "grace", Email: "grace@example.com", FirstName: "Grace", LastName: "Hopper", Role: &one, RoleDetail: &member, IsActive: true, DateJoined: joined}
}

func (s *Server) id() int {
	s.nextID++
	return s.nextID
}

// IssueTokens signs a fresh access/refresh pair for userID.
func (s *Server) IssueTokens(userID int) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signLocked(userID, "access", 5*time.Minute), s.signLocked(userID, "refresh", 24*time.Hour)
}

func (s *Server) signLocked(userID int, typ string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"user_id": userID,
		"type":    typ,
		"gen":     s.gen,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return tok
}

// ExpireAccessTokens makes every access token issued so far fail with 401.
// Refresh tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
}

// SetRefreshFails makes auth/refresh/ answer 401.
func (s *Server) SetRefreshFails(v bool) {
	s.mu.Lock()
	s.refreshFails = v
	s.mu.Unlock()
}

func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// FailOnce makes the next request matching method and path answer status with body.
func (s *Server) FailOnce(method, path string, status int, body any) {
	s.mu.Lock()
	s.fail[method+" "+path] = failure{status: status, body: body}
	s.mu.Unlock()
}

// Requests returns the recorded requests, optionally filtered by "METHOD /path".
func (s *Server) Requests(match ...string) []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(match) == 0 {
		return append([]Recorded(nil), s.requests...)
	}
	var out []Recorded
	for _, r := range s.requests {
		for _, m := range match {
			if r.Method+" "+r.Path == m {
				out = append(out, r)
			}
		}
	}
	return out
}

func (s *Server) AddTask(t model.Task) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt
	s.fillTaskLocked(&t)
	s.tasks[t.ID] = &t
	s.history[t.ID] = append(s.history[t.ID], model.StatusHistoryEntry{ID: s.id(), CreatedAt: t.CreatedAt, ToStatus: t.Status})
	return t
}

func (s *Server) Task(id int) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return t.Clone(), true
}

func (s *Server) AddChannel(ch model.Channel) model.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch.ID == 0 {
		ch.ID = s.id()
	}
	s.fillChannelLocked(&ch)
	s.channels[ch.ID] = &ch
	return ch
}

func (s *Server) AddMessage(channelID, senderID int, content string) model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addMessageLocked(channelID, senderID, content, nil)
}

func (s *Server) AddNotification(n model.Notification) model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == 0 {
		n.ID = s.id()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.ExtraData == nil {
		n.ExtraData = map[string]any{}
	}
	s.notifications = append([]model.Notification{n}, s.notifications...)
	return n
}

func (s *Server) AddAttachment(taskID int, filename string, data []byte) model.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAttachmentLocked(taskID, filename, data)
}

func (s *Server) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification(nil), s.notifications...)
}

func (s *Server) addAttachmentLocked(taskID int, filename string, data []byte) model.Attachment {
	id := s.id()
	tid := taskID
	a := model.Attachment{ID: id, File: fmt.Sprintf("/media/attachments/%d/%s", id, filename), Filename: filename, Task: &tid, CreatedAt: time.Now().UTC()}
	s.attachments[id] = &a
	s.files[id] = data
	if t, ok := s.tasks[taskID]; ok {
		t.AttachmentCount++
	}
	return a
}

func (s *Server) addMessageLocked(channelID, senderID int, content string, atts []model.MessageAttachment) model.Message {
	sender := s.users[senderID]
	m := model.Message{
		ID:          s.id(),
		Channel:     channelID,
		Sender:      senderID,
		Content:     content,
		Attachments: atts,
		CreatedAt:   time.Now().UTC(),
	}
	if sender != nil {
		m.SenderDetail = model.UserRef{ID: sender.ID, Username: sender.Username}
	}
	s.messages[channelID] = append(s.messages[channelID], m)
	if ch, ok := s.channels[channelID]; ok {
		last := m
		ch.LastMessage = &last
	}
	return m
}

func (s *Server) fillTaskLocked(t *model.Task) {
	if u, ok := s.users[t.CreatedBy]; ok {
		m := u.Minimal()
		t.CreatedByDetail = &m
	}
	t.AssigneesDetail = nil
	for _, id := range t.Assignees {
		if u, ok := s.users[id]; ok {
			t.AssigneesDetail = append(t.AssigneesDetail, u.Minimal())
		}
	}
	if t.AssigneesDetail == nil {
		t.AssigneesDetail = []model.TaskUser{}
	}
	if t.Assignees == nil {
		t.Assignees = model.IDList{}
	}
	t.IsOverdue = t.Deadline != nil && t.Deadline.Before(time.Now()) &&
		t.Status != model.StatusFinished && t.Status != model.StatusCancelled
}

func (s *Server) fillChannelLocked(ch *model.Channel) {
	ch.MembersDetail = nil
	for _, id := range ch.Members {
		if u, ok := s.users[id]; ok {
			ch.MembersDetail = append(ch.MembersDetail, model.UserRef{ID: u.ID, Username: u.Username})
		}
	}
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now().UTC()
	}
}

func (s *Server) sortedTasksLocked() []model.Task {
	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var errBadToken = errors.New("invalid token")

// userFromToken validates an access token and returns its user id.
func (s *Server) userFromToken(raw, wantType string) (int, error) {
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return 0, errBadToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != wantType {
		return 0, errBadToken
	}
	uid, _ := claims["user_id"].(float64)
	gen, _ := claims["gen"].(float64)
	s.mu.Lock()
	defer s.mu.Unlock()
	if wantType == "access" && int(gen) != s.gen {
		return 0, errBadToken
	}
	if _, ok := s.users[int(uid)]; !ok {
		return 0, errBadToken
	}
	return int(uid), nil
}

func (s *Server) router() http.Handler {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(s.record, s.injectFailure)

	api := r.Group("/api")
	api.POST("/auth/login/", s.login)
	api.POST("/auth/refresh/", s.refresh)

	authed := api.Group("", s.requireAuth)
	authed.GET("/auth/users/", s.listUsers)
	authed.POST("/auth/users/", s.createUser)
	authed.GET("/auth/users/:id/", s.getUser)
	authed.PATCH("/auth/users/:id/", s.updateUser)
	authed.GET("/auth/roles/", s.listRoles)

	authed.GET("/tasks/", s.listTasks)
	authed.POST("/tasks/", s.createTask)
	authed.GET("/tasks/:id/", s.getTask)
	authed.PATCH("/tasks/:id/", s.updateTask)
	authed.DELETE("/tasks/:id/", s.deleteTask)
	authed.GET("/tasks/:id/comments/", s.listComments)
	authed.POST("/tasks/:id/comments/", s.createComment)
	authed.GET("/tasks/:id/links/", s.listLinks)
	authed.POST("/tasks/:id/links/", s.createLink)
	authed.DELETE("/tasks/:id/links/:linkId/", s.deleteLink)
	authed.GET("/tasks/:id/status_history/", s.statusHistory)

	authed.GET("/attachments/", s.listAttachments)
	authed.POST("/attachments/", s.uploadAttachment)
	authed.DELETE("/attachments/:id/", s.deleteAttachment)
	authed.GET("/attachments/:id/file/", s.attachmentFile)

	authed.GET("/channels/", s.listChannels)
	authed.POST("/channels/", s.createChannel)
	authed.GET("/channels/:id/", s.getChannel)
	authed.GET("/channels/:id/messages/", s.listMessages)
	authed.POST("/channels/:id/messages/", s.createMessage)

	authed.GET("/notifications/", s.listNotifications)
	authed.PATCH("/notifications/:id/read/", s.markRead)
	authed.POST("/notifications/mark_all_read/", s.markAllRead)

	r.GET("/ws/notifications/", s.serveSocket)
	r.GET("/ws/task-comments/:id/", s.serveSocket)
	r.GET("/ws/chat/:id/", s.serveSocket)
	return r
}

func (s *Server) record(c *gin.Context) {
	var body []byte
	if c.Request.Body != nil && c.Request.Method != http.MethodGet {
		body, _ = readAllAndRestore(c.Request)
	}
	s.mu.Lock()
	s.requests = append(s.requests, Recorded{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Query:         c.Request.URL.RawQuery,
		Authorization: c.GetHeader("Authorization"),
		RequestID:     c.GetHeader("X-Request-ID"),
		ContentType:   c.GetHeader("Content-Type"),
		Body:          body,
	})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) injectFailure(c *gin.Context) {
	key := c.Request.Method + " " + c.Request.URL.Path
	s.mu.Lock()
	f, ok := s.fail[key]
	if ok {
		delete(s.fail, key)
	}
	s.mu.Unlock()
	if !ok {
		c.Next()
		return
	}
	if f.body == nil {
		c.AbortWithStatus(f.status)
		return
	}
	c.AbortWithStatusJSON(f.status, f.body)
}

func (s *Server) requireAuth(c *gin.Context) {
	h := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
		return
	}
	uid, err := s.userFromToken(raw, "access")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
		return
	}
	c.Set("uid", uid)
	c.Next()
}
