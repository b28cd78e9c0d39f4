package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	for _, x := range Priorities {
		if x == p {
			return true
		}
	}
	return false
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority: %q (expected low|medium|high|urgent)", s)
	}
	return p, nil
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusOngoing   Status = "ongoing"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// Statuses lists statuses in board order.
var Statuses = []Status{StatusPending, StatusOngoing, StatusFinished, StatusCancelled}

func (s Status) Valid() bool {
	for _, x := range Statuses {
		if x == s {
			return true
		}
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %q (expected pending|ongoing|finished|cancelled)", s)
	}
	return st, nil
}

type TaskRole struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Task struct {
	ID                   int        `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	CreatedBy            int        `json:"created_by"`
	CreatedByDetail      *TaskUser  `json:"created_by_detail,omitempty"`
	AssignedTo           *int       `json:"assigned_to"`
	AssignedToDetail     *TaskUser  `json:"assigned_to_detail,omitempty"`
	AssignedToRole       *int       `json:"assigned_to_role"`
	AssignedToRoleDetail *TaskRole  `json:"assigned_to_role_detail,omitempty"`
	Assignees            IDList     `json:"assignees"`
	AssigneesDetail      []TaskUser `json:"assignees_detail"`
	Priority             Priority   `json:"priority"`
	Status               Status     `json:"status"`
	Deadline             *time.Time `json:"deadline"`
	ReminderDatetime     *time.Time `json:"reminder_datetime"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	IsOverdue            bool       `json:"is_overdue"`
	AttachmentCount      int        `json:"attachment_count"`
}

// AssigneeUsers returns the multi-assignee detail, falling back to the legacy single assignee.
func (t Task) AssigneeUsers() []TaskUser {
	if len(t.AssigneesDetail) > 0 {
		return t.AssigneesDetail
	}
	if t.AssignedToDetail != nil {
		return []TaskUser{*t.AssignedToDetail}
	}
	return nil
}

// IsAssignee reports whether userID is assigned through either the legacy or the multi field.
func (t Task) IsAssignee(userID int) bool {
	if t.AssignedTo != nil && *t.AssignedTo == userID {
		return true
	}
	return t.Assignees.Contains(userID)
}

// Clone returns a copy that shares no slices with t.
func (t Task) Clone() Task {
	out := t
	out.Assignees = append(IDList(nil), t.Assignees...)
	out.AssigneesDetail = append([]TaskUser(nil), t.AssigneesDetail...)
	return out
}

// IDList decodes either a list of ids or a list of objects carrying an "id" field.
type IDList []int

func (l IDList) Contains(id int) bool {
	for _, x := range l {
		if x == id {
			return true
		}
	}
	return false
}

func (l *IDList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(IDList, 0, len(raw))
	for _, r := range raw {
		var id int
		if err := json.Unmarshal(r, &id); err == nil {
			out = append(out, id)
			continue
		}
		var obj struct {
			ID int `json:"id"`
		}
		if err := json.Unmarshal(r, &obj); err != nil {
			return fmt.Errorf("assignee entry: %w", err)
		}
		out = append(out, obj.ID)
	}
	*l = out
	return nil
}

type TaskComment struct {
	ID           int       `json:"id"`
	Task         int       `json:"task"`
	Author       int       `json:"author"`
	AuthorDetail *TaskUser `json:"author_detail,omitempty"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

type TaskLink struct {
	ID        int       `json:"id"`
	Task      int       `json:"task"`
	URL       string    `json:"url"`
	Label     string    `json:"label"`
	AddedBy   *int      `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusHistoryEntry is one append-only status transition. The first entry has FromStatus == nil.
type StatusHistoryEntry struct {
	ID         int       `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	ChangedBy  *UserRef  `json:"changed_by"`
	FromStatus *Status   `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
}

type Attachment struct {
	ID        int       `json:"id"`
	File      string    `json:"file"`
	Filename  string    `json:"filename"`
	Task      *int      `json:"task"`
	CreatedAt time.Time `json:"created_at"`
}
