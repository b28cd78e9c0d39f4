package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"taskflow-cli/internal/model"
)

type TasksAPI struct{ c *Client }

type TaskListParams struct {
	MyTasks    bool
	Status     model.Status
	Priority   model.Priority
	Search     string
	Ordering   string
	Page       int
	AssignedTo int
	CreatedBy  int
}

func (p TaskListParams) values() url.Values {
	q := url.Values{}
	if p.MyTasks {
		q.Set("my_tasks", "true")
	}
	if p.Status != "" {
		q.Set("status", string(p.Status))
	}
	if p.Priority != "" {
		q.Set("priority", string(p.Priority))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Ordering != "" {
		q.Set("ordering", p.Ordering)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.AssignedTo > 0 {
		q.Set("assigned_to", strconv.Itoa(p.AssignedTo))
	}
	if p.CreatedBy > 0 {
		q.Set("created_by", strconv.Itoa(p.CreatedBy))
	}
	return q
}

type TaskInput struct {
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	Priority         model.Priority `json:"priority,omitempty"`
	Status           model.Status   `json:"status,omitempty"`
	Deadline         *time.Time     `json:"deadline,omitempty"`
	ReminderDatetime *time.Time     `json:"reminder_datetime,omitempty"`
	Assignees        []int          `json:"assignees,omitempty"`
	AssignedToRole   *int           `json:"assigned_to_role,omitempty"`
}

// TaskPatch is a partial update. Nil fields are not sent; the Clear flags send an explicit
// null, and a non-nil empty Assignees clears all assignees.
type TaskPatch struct {
	Title            *string
	Description      *string
	Priority         *model.Priority
	Status           *model.Status
	Deadline         *time.Time
	ClearDeadline    bool
	ReminderDatetime *time.Time
	ClearReminder    bool
	Assignees        []int
}

func (p TaskPatch) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Priority != nil {
		m["priority"] = *p.Priority
	}
	if p.Status != nil {
		m["status"] = *p.Status
	}
	switch {
	case p.ClearDeadline:
		m["deadline"] = nil
	case p.Deadline != nil:
		m["deadline"] = p.Deadline.UTC().Format(time.RFC3339)
	}
	switch {
	case p.ClearReminder:
		m["reminder_datetime"] = nil
	case p.ReminderDatetime != nil:
		m["reminder_datetime"] = p.ReminderDatetime.UTC().Format(time.RFC3339)
	}
	if p.Assignees != nil {
		m["assignees"] = p.Assignees
	}
	return json.Marshal(m)
}

func (p TaskPatch) Empty() bool {
	b, _ := p.MarshalJSON()
	return string(b) == "{}"
}

func (t TasksAPI) List(ctx context.Context, p TaskListParams) (model.Page[model.Task], error) {
	return getList[model.Task](ctx, t.c, "tasks/", p.values())
}

func (t TasksAPI) Get(ctx context.Context, id int) (*model.Task, error) {
	var out model.Task
	if err := t.c.getJSON(ctx, taskPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t TasksAPI) Create(ctx context.Context, in TaskInput) (*model.Task, error) {
	var out model.Task
	if err := t.c.sendJSON(ctx, http.MethodPost, "tasks/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t TasksAPI) Update(ctx context.Context, id int, patch TaskPatch) (*model.Task, error) {
	var out model.Task
	if err := t.c.sendJSON(ctx, http.MethodPatch, taskPath(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t TasksAPI) Delete(ctx context.Context, id int) error {
	return t.c.sendJSON(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

func (t TasksAPI) Comments(ctx context.Context, id int) ([]model.TaskComment, error) {
	p, err := getList[model.TaskComment](ctx, t.c, taskPath(id)+"comments/", nil)
	return p.Results, err
}

func (t TasksAPI) AddComment(ctx context.Context, id int, body string) (*model.TaskComment, error) {
	var out model.TaskComment
	if err := t.c.sendJSON(ctx, http.MethodPost, taskPath(id)+"comments/", map[string]string{"body": body}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t TasksAPI) Links(ctx context.Context, id int) ([]model.TaskLink, error) {
	p, err := getList[model.TaskLink](ctx, t.c, taskPath(id)+"links/", nil)
	return p.Results, err
}

func (t TasksAPI) AddLink(ctx context.Context, id int, rawURL, label string) (*model.TaskLink, error) {
	in := map[string]string{"url": rawURL}
	if label != "" {
		in["label"] = label
	}
	var out model.TaskLink
	if err := t.c.sendJSON(ctx, http.MethodPost, taskPath(id)+"links/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t TasksAPI) DeleteLink(ctx context.Context, id, linkID int) error {
	return t.c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("%slinks/%d/", taskPath(id), linkID), nil, nil)
}

func (t TasksAPI) StatusHistory(ctx context.Context, id int) ([]model.StatusHistoryEntry, error) {
	p, err := getList[model.StatusHistoryEntry](ctx, t.c, taskPath(id)+"status_history/", nil)
	return p.Results, err
}

func taskPath(id int) string { return fmt.Sprintf("tasks/%d/", id) }
