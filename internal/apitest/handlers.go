package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"taskflow-cli/internal/model"

	"github.com/gin-gonic/gin"
)

func readAllAndRestore(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(b))
	return b, err
}

func uid(c *gin.Context) int { return c.GetInt("uid") }

func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return 0, false
	}
	return id, true
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

func (s *Server) login(c *gin.Context) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || in.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"username": []string{"This field is required."}})
		return
	}
	s.mu.Lock()
	var user *model.User
	for _, u := range s.users {
		if u.Username == in.Username {
			user = u
		}
	}
	if user == nil || in.Password != Password || !user.IsActive {
		s.mu.Unlock()
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}
	access := s.signLocked(user.ID, "access", 5*time.Minute)
	refresh := s.signLocked(user.ID, "refresh", 24*time.Hour)
	out := *user
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"access": access, "refresh": refresh, "user": out})
}

func (s *Server) refresh(c *gin.Context) {
	s.mu.Lock()
	s.refreshCalls++
	fails := s.refreshFails
	s.mu.Unlock()

	var in struct {
		Refresh string `json:"refresh"`
	}
	_ = c.ShouldBindJSON(&in)
	userID, err := s.userFromToken(in.Refresh, "refresh")
	if fails || err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	s.mu.Lock()
	access := s.signLocked(userID, "access", 5*time.Minute)
	user := *s.users[userID]
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"access": access, "user": user})
}

func (s *Server) listUsers(c *gin.Context) {
	s.mu.Lock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	u, found := s.users[id]
	var out model.User
	if found {
		out = *u
	}
	s.mu.Unlock()
	if !found {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createUser(c *gin.Context) {
	var in struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Role      *int   `json:"role"`
		IsActive  *bool  `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	errs := gin.H{}
	if in.Username == "" {
		errs["username"] = []string{"This field is required."}
	}
	if in.Password == "" {
		errs["password"] = []string{"This field is required."}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if in.Username != "" && u.Username == in.Username {
			errs["username"] = []string{"A user with that username already exists."}
		}
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, errs)
		return
	}
	u := &model.User{ID: s.id(), Username: in.Username, Email: in.Email, FirstName: in.FirstName, LastName: in.LastName, IsActive: true, DateJoined: time.Now().UTC()}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	s.applyRoleLocked(u, in.Role)
	s.users[u.ID] = u
	c.JSON(http.StatusCreated, *u)
}

func (s *Server) applyRoleLocked(u *model.User, role *int) {
	u.Role, u.RoleDetail = nil, nil
	if role == nil {
		return
	}
	for _, r := range s.roles {
		if r.ID == *role {
			id, rd := r.ID, r
			u.Role, u.RoleDetail = &id, &rd
		}
	}
}

func (s *Server) updateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in map[string]json.RawMessage
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		notFound(c)
		return
	}
	if raw, ok := in["role"]; ok {
		var role *int
		_ = json.Unmarshal(raw, &role)
		s.applyRoleLocked(u, role)
	}
	if raw, ok := in["is_active"]; ok {
		_ = json.Unmarshal(raw, &u.IsActive)
	}
	if raw, ok := in["first_name"]; ok {
		_ = json.Unmarshal(raw, &u.FirstName)
	}
	if raw, ok := in["last_name"]; ok {
		_ = json.Unmarshal(raw, &u.LastName)
	}
	if raw, ok := in["email"]; ok {
		_ = json.Unmarshal(raw, &u.Email)
	}
	c.JSON(http.StatusOK, *u)
}

func (s *Server) listRoles(c *gin.Context) {
	s.mu.Lock()
	out := append([]model.Role(nil), s.roles...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

// listTasks answers with the paginated shape; the other list endpoints use bare arrays.
func (s *Server) listTasks(c *gin.Context) {
	me := uid(c)
	s.mu.Lock()
	all := s.sortedTasksLocked()
	s.mu.Unlock()

	status := c.Query("status")
	priority := c.Query("priority")
	search := strings.ToLower(c.Query("search"))
	mine := c.Query("my_tasks") == "true"

	out := make([]model.Task, 0, len(all))
	for _, t := range all {
		if mine && !t.IsAssignee(me) {
			continue
		}
		if status != "" && string(t.Status) != status {
			continue
		}
		if priority != "" && string(t.Priority) != priority {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title+" "+t.Description), search) {
			continue
		}
		out = append(out, t)
	}
	switch c.Query("ordering") {
	case "-deadline":
		sort.SliceStable(out, func(i, j int) bool { return deadlineAfter(out[i], out[j]) })
	case "deadline":
		sort.SliceStable(out, func(i, j int) bool { return deadlineAfter(out[j], out[i]) })
	}
	c.JSON(http.StatusOK, gin.H{"results": out, "count": len(out), "next": nil, "previous": nil})
}

// deadlineAfter orders tasks by deadline descending, null deadlines last.
func deadlineAfter(a, b model.Task) bool {
	switch {
	case a.Deadline == nil:
		return false
	case b.Deadline == nil:
		return true
	default:
		return a.Deadline.After(*b.Deadline)
	}
}

func (s *Server) getTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	t, found := s.Task(id)
	if !found {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) createTask(c *gin.Context) {
	var in struct {
		Title            string         `json:"title"`
		Description      string         `json:"description"`
		Priority         model.Priority `json:"priority"`
		Status           model.Status   `json:"status"`
		Deadline         *time.Time     `json:"deadline"`
		ReminderDatetime *time.Time     `json:"reminder_datetime"`
		Assignees        []int          `json:"assignees"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"title": []string{"This field may not be blank."}})
		return
	}
	t := s.AddTask(model.Task{
		Title:            in.Title,
		Description:      in.Description,
		Priority:         in.Priority,
		Status:           in.Status,
		Deadline:         in.Deadline,
		ReminderDatetime: in.ReminderDatetime,
		Assignees:        in.Assignees,
		CreatedBy:        uid(c),
	})
	s.Broadcast("/ws/notifications/", gin.H{"type": "task_list_invalidate"})
	c.JSON(http.StatusCreated, t)
}

func (s *Server) updateTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in map[string]json.RawMessage
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	me := uid(c)
	s.mu.Lock()
	t, found := s.tasks[id]
	if !found {
		s.mu.Unlock()
		notFound(c)
		return
	}
	errs := gin.H{}
	if raw, ok := in["title"]; ok {
		_ = json.Unmarshal(raw, &t.Title)
	}
	if raw, ok := in["description"]; ok {
		_ = json.Unmarshal(raw, &t.Description)
	}
	if raw, ok := in["priority"]; ok {
		var p model.Priority
		_ = json.Unmarshal(raw, &p)
		if !p.Valid() {
			errs["priority"] = []string{`"` + string(p) + `" is not a valid choice.`}
		} else {
			t.Priority = p
		}
	}
	if raw, ok := in["status"]; ok {
		var st model.Status
		_ = json.Unmarshal(raw, &st)
		if !st.Valid() {
			errs["status"] = []string{`"` + string(st) + `" is not a valid choice.`}
		} else if st != t.Status {
			from := t.Status
			ref := model.UserRef{ID: me, Username: s.users[me].Username}
			s.history[id] = append(s.history[id], model.StatusHistoryEntry{ID: s.id(), CreatedAt: time.Now().UTC(), ChangedBy: &ref, FromStatus: &from, ToStatus: st})
			t.Status = st
		}
	}
	if raw, ok := in["deadline"]; ok {
		t.Deadline = nil
		_ = json.Unmarshal(raw, &t.Deadline)
	}
	if raw, ok := in["reminder_datetime"]; ok {
		t.ReminderDatetime = nil
		_ = json.Unmarshal(raw, &t.ReminderDatetime)
	}
	if raw, ok := in["assignees"]; ok {
		var ids model.IDList
		_ = json.Unmarshal(raw, &ids)
		t.Assignees = ids
	}
	if len(errs) > 0 {
		s.mu.Unlock()
		c.JSON(http.StatusBadRequest, errs)
		return
	}
	t.UpdatedAt = time.Now().UTC()
	s.fillTaskLocked(t)
	out := t.Clone()
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) deleteTask(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	_, found := s.tasks[id]
	delete(s.tasks, id)
	s.mu.Unlock()
	if !found {
		notFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listComments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	out := append([]model.TaskComment{}, s.comments[id]...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) createComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in struct {
		Body string `json:"body"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"body": []string{"This field may not be blank."}})
		return
	}
	me := uid(c)
	s.mu.Lock()
	if _, found := s.tasks[id]; !found {
		s.mu.Unlock()
		notFound(c)
		return
	}
	author := s.users[me].Minimal()
	cm := model.TaskComment{ID: s.id(), Task: id, Author: me, AuthorDetail: &author, Body: in.Body, CreatedAt: time.Now().UTC()}
	s.comments[id] = append(s.comments[id], cm)
	s.mu.Unlock()
	s.Broadcast("/ws/task-comments/"+strconv.Itoa(id)+"/", gin.H{"type": "new_comment", "comment": cm})
	c.JSON(http.StatusCreated, cm)
}

func (s *Server) listLinks(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	out := append([]model.TaskLink{}, s.links[id]...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) createLink(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in struct {
		URL   string `json:"url"`
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&in); err != nil || !strings.HasPrefix(in.URL, "http") {
		c.JSON(http.StatusBadRequest, gin.H{"url": []string{"Enter a valid URL."}})
		return
	}
	me := uid(c)
	s.mu.Lock()
	l := model.TaskLink{ID: s.id(), Task: id, URL: in.URL, Label: in.Label, AddedBy: &me, CreatedAt: time.Now().UTC()}
	s.links[id] = append(s.links[id], l)
	s.mu.Unlock()
	c.JSON(http.StatusCreated, l)
}

func (s *Server) deleteLink(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	linkID, ok := paramID(c, "linkId")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ls := s.links[id]
	for i, l := range ls {
		if l.ID == linkID {
			s.links[id] = append(ls[:i:i], ls[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	notFound(c)
}

func (s *Server) statusHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	out := append([]model.StatusHistoryEntry{}, s.history[id]...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) listAttachments(c *gin.Context) {
	taskID, _ := strconv.Atoi(c.Query("task_id"))
	s.mu.Lock()
	out := []model.Attachment{}
	for _, a := range s.attachments {
		if a.Task != nil && *a.Task == taskID {
			out = append(out, *a)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) uploadAttachment(c *gin.Context) {
	taskID, err := strconv.Atoi(c.PostForm("task"))
	fh, ferr := c.FormFile("file")
	if err != nil || ferr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"file": []string{"No file was submitted."}})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"file": []string{err.Error()}})
		return
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	a := s.AddAttachment(taskID, fh.Filename, data)
	c.JSON(http.StatusCreated, a)
}

func (s *Server) deleteAttachment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	a, found := s.attachments[id]
	if found {
		if a.Task != nil {
			if t, ok := s.tasks[*a.Task]; ok && t.AttachmentCount > 0 {
				t.AttachmentCount--
			}
		}
		delete(s.attachments, id)
		delete(s.files, id)
	}
	s.mu.Unlock()
	if !found {
		notFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) attachmentFile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	a, found := s.attachments[id]
	var data []byte
	var name string
	if found {
		data, name = s.files[id], a.Filename
	}
	s.mu.Unlock()
	if !found {
		notFound(c)
		return
	}
	ct := "application/octet-stream"
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		ct = "application/pdf"
	}
	c.Data(http.StatusOK, ct, data)
}

func (s *Server) listChannels(c *gin.Context) {
	me := uid(c)
	s.mu.Lock()
	out := []model.Channel{}
	for _, ch := range s.channels {
		for _, m := range ch.Members {
			if m == me {
				out = append(out, *ch)
				break
			}
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) getChannel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	ch, found := s.channels[id]
	var out model.Channel
	if found {
		out = *ch
	}
	s.mu.Unlock()
	if !found {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createChannel(c *gin.Context) {
	var in struct {
		Name        string            `json:"name"`
		ChannelType model.ChannelType `json:"channel_type"`
		Members     []int             `json:"members"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if in.ChannelType == "" {
		in.ChannelType = model.ChannelGroup
	}
	me := uid(c)
	members := []int{me}
	for _, m := range in.Members {
		if m != me {
			members = append(members, m)
		}
	}
	ch := s.AddChannel(model.Channel{Name: in.Name, ChannelType: in.ChannelType, Members: members})
	c.JSON(http.StatusCreated, ch)
}

func (s *Server) listMessages(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	out := append([]model.Message{}, s.messages[id]...)
	s.mu.Unlock()
	c.JSON(http.StatusOK, out)
}

func (s *Server) createMessage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	me := uid(c)
	var content string
	var atts []model.MessageAttachment
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		content = c.PostForm("content")
		form, err := c.MultipartForm()
		if err == nil {
			for _, fh := range form.File["attachments"] {
				atts = append(atts, model.MessageAttachment{Filename: fh.Filename, CreatedAt: time.Now().UTC()})
			}
		}
	} else {
		var in struct {
			Content string `json:"content"`
		}
		_ = c.ShouldBindJSON(&in)
		content = in.Content
	}
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"content": []string{"This field may not be blank."}})
		return
	}
	s.mu.Lock()
	if _, found := s.channels[id]; !found {
		s.mu.Unlock()
		notFound(c)
		return
	}
	for i := range atts {
		atts[i].ID = s.id()
		atts[i].File = "/media/chat/" + atts[i].Filename
	}
	m := s.addMessageLocked(id, me, content, atts)
	s.mu.Unlock()
	s.Broadcast("/ws/chat/"+strconv.Itoa(id)+"/", m)
	c.JSON(http.StatusCreated, m)
}

func (s *Server) listNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, s.Notifications())
}

func (s *Server) markRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			c.JSON(http.StatusOK, s.notifications[i])
			return
		}
	}
	notFound(c)
}

func (s *Server) markAllRead(c *gin.Context) {
	s.mu.Lock()
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
