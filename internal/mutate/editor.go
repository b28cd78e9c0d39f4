// Package mutate applies task edits optimistically.
//
// Every edit follows the same discipline: snapshot, apply locally, send the PATCH, then either
// adopt the server's copy or restore the snapshot exactly.
package mutate

import (
	"context"
	"strings"
	"sync"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/signals"
)

// TaskUpdater sends a partial update; api.TasksAPI satisfies it.
type TaskUpdater interface {
	Update(ctx context.Context, id int, patch api.TaskPatch) (*model.Task, error)
}

type Result struct {
	Task    model.Task
	Changed bool
}

// Editor owns the local copy of one task (the task detail view).
type Editor struct {
	api TaskUpdater
	bus *signals.Bus

	mu       sync.Mutex
	task     model.Task
	onChange func(model.Task)
}

func NewEditor(t model.Task, up TaskUpdater, bus *signals.Bus) *Editor {
	return &Editor{api: up, bus: bus, task: t.Clone()}
}

// OnChange registers fn to receive every local state, optimistic and final.
func (e *Editor) OnChange(fn func(model.Task)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

func (e *Editor) Task() model.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task.Clone()
}

// Replace adopts a freshly fetched copy.
func (e *Editor) Replace(t model.Task) {
	e.mu.Lock()
	e.task = t.Clone()
	e.mu.Unlock()
	e.changed(t)
}

// ToggleAssignee adds userID to the assignees or removes it. known supplies detail for users
// not yet on the task (the users list of the picker).
func (e *Editor) ToggleAssignee(ctx context.Context, userID int, known []model.TaskUser) (Result, error) {
	cur := e.Task()
	ids := currentAssignees(cur)
	next := make([]int, 0, len(ids)+1)
	removed := false
	for _, id := range ids {
		if id == userID {
			removed = true
			continue
		}
		next = append(next, id)
	}
	if !removed {
		next = append(next, userID)
	}
	return e.SetAssignees(ctx, next, known)
}

// SetAssignees replaces the assignee set.
func (e *Editor) SetAssignees(ctx context.Context, ids []int, known []model.TaskUser) (Result, error) {
	ids = append([]int{}, ids...)
	cur := e.Task()
	if sameIDs(currentAssignees(cur), ids) {
		return Result{Task: cur}, nil
	}
	detail := assigneeDetail(cur, ids, known)
	return e.apply(ctx, api.TaskPatch{Assignees: ids}, func(t *model.Task) {
		t.Assignees = model.IDList(append([]int{}, ids...))
		t.AssigneesDetail = detail
		if t.AssignedTo != nil && !containsID(ids, *t.AssignedTo) {
			t.AssignedTo = nil
			t.AssignedToDetail = nil
		}
	})
}

func (e *Editor) SetStatus(ctx context.Context, status model.Status) (Result, error) {
	if !status.Valid() {
		return Result{Task: e.Task()}, ErrInvalidStatus
	}
	if e.Task().Status == status {
		return Result{Task: e.Task()}, nil
	}
	return e.apply(ctx, api.TaskPatch{Status: &status}, func(t *model.Task) { t.Status = status })
}

func (e *Editor) SetPriority(ctx context.Context, p model.Priority) (Result, error) {
	if !p.Valid() {
		return Result{Task: e.Task()}, ErrInvalidPriority
	}
	if e.Task().Priority == p {
		return Result{Task: e.Task()}, nil
	}
	return e.apply(ctx, api.TaskPatch{Priority: &p}, func(t *model.Task) { t.Priority = p })
}

// SetDeadline sets or (with nil) clears the deadline.
func (e *Editor) SetDeadline(ctx context.Context, at *time.Time) (Result, error) {
	if sameTime(e.Task().Deadline, at) {
		return Result{Task: e.Task()}, nil
	}
	patch := api.TaskPatch{Deadline: at, ClearDeadline: at == nil}
	return e.apply(ctx, patch, func(t *model.Task) { t.Deadline = copyTime(at) })
}

// SetReminder sets or (with nil) clears the reminder.
func (e *Editor) SetReminder(ctx context.Context, at *time.Time) (Result, error) {
	if sameTime(e.Task().ReminderDatetime, at) {
		return Result{Task: e.Task()}, nil
	}
	patch := api.TaskPatch{ReminderDatetime: at, ClearReminder: at == nil}
	return e.apply(ctx, patch, func(t *model.Task) { t.ReminderDatetime = copyTime(at) })
}

func (e *Editor) SetTitle(ctx context.Context, title string) (Result, error) {
	title = strings.TrimSpace(title)
	if e.Task().Title == title {
		return Result{Task: e.Task()}, nil
	}
	return e.apply(ctx, api.TaskPatch{Title: &title}, func(t *model.Task) { t.Title = title })
}

func (e *Editor) SetDescription(ctx context.Context, desc string) (Result, error) {
	if e.Task().Description == desc {
		return Result{Task: e.Task()}, nil
	}
	return e.apply(ctx, api.TaskPatch{Description: &desc}, func(t *model.Task) { t.Description = desc })
}

func (e *Editor) apply(ctx context.Context, patch api.TaskPatch, local func(*model.Task)) (Result, error) {
	e.mu.Lock()
	prev := e.task.Clone()
	next := e.task.Clone()
	local(&next)
	e.task = next.Clone()
	e.mu.Unlock()
	e.changed(next)

	got, err := e.api.Update(ctx, prev.ID, patch)
	if err != nil {
		e.mu.Lock()
		e.task = prev.Clone()
		e.mu.Unlock()
		e.changed(prev)
		return Result{Task: prev}, err
	}

	final := adopt(next, got)
	e.mu.Lock()
	e.task = final.Clone()
	e.mu.Unlock()
	e.changed(final)
	if patch.Status != nil {
		e.bus.Publish(signals.OverdueRefresh)
	}
	return Result{Task: final, Changed: true}, nil
}

func (e *Editor) changed(t model.Task) {
	e.mu.Lock()
	fn := e.onChange
	e.mu.Unlock()
	if fn != nil {
		fn(t.Clone())
	}
}

// adopt takes the server's copy, keeping local detail the response left out.
func adopt(local model.Task, server *model.Task) model.Task {
	if server == nil || server.ID == 0 {
		return local
	}
	out := server.Clone()
	if len(out.AssigneesDetail) == 0 && len(out.Assignees) > 0 {
		out.AssigneesDetail = append([]model.TaskUser(nil), local.AssigneesDetail...)
	}
	if out.CreatedByDetail == nil {
		out.CreatedByDetail = local.CreatedByDetail
	}
	return out
}

func currentAssignees(t model.Task) []int {
	if len(t.Assignees) > 0 {
		return append([]int{}, t.Assignees...)
	}
	if t.AssignedTo != nil {
		return []int{*t.AssignedTo}
	}
	return []int{}
}

func assigneeDetail(cur model.Task, ids []int, known []model.TaskUser) []model.TaskUser {
	byID := map[int]model.TaskUser{}
	for _, u := range known {
		byID[u.ID] = u
	}
	for _, u := range cur.AssigneeUsers() {
		byID[u.ID] = u
	}
	out := make([]model.TaskUser, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		} else {
			out = append(out, model.TaskUser{ID: id})
		}
	}
	return out
}

func sameIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := map[int]int{}
	for _, x := range a {
		seen[x]++
	}
	for _, x := range b {
		seen[x]--
		if seen[x] < 0 {
			return false
		}
	}
	return true
}

func containsID(ids []int, id int) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
