package mutate

import (
	"context"
	"sync"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/signals"
)

// Board is the kanban's task list. Moves are optimistic like Editor edits.
type Board struct {
	api TaskUpdater
	bus *signals.Bus

	mu       sync.Mutex
	tasks    []model.Task
	onChange func()
}

func NewBoard(tasks []model.Task, up TaskUpdater, bus *signals.Bus) *Board {
	b := &Board{api: up, bus: bus}
	b.Replace(tasks)
	return b
}

// OnChange registers fn to run after every local change, optimistic and final.
func (b *Board) OnChange(fn func()) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

func (b *Board) Replace(tasks []model.Task) {
	cp := make([]model.Task, len(tasks))
	for i, t := range tasks {
		cp[i] = t.Clone()
	}
	b.mu.Lock()
	b.tasks = cp
	b.mu.Unlock()
}

func (b *Board) Tasks() []model.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Task, len(b.tasks))
	for i, t := range b.tasks {
		out[i] = t.Clone()
	}
	return out
}

// Move drops taskID into the status column. Unknown tasks and same-column drops are no-ops.
func (b *Board) Move(ctx context.Context, taskID int, status model.Status) (Result, error) {
	if !status.Valid() {
		return Result{}, ErrInvalidStatus
	}
	b.mu.Lock()
	idx := b.indexLocked(taskID)
	if idx < 0 {
		b.mu.Unlock()
		return Result{}, nil
	}
	prev := b.tasks[idx].Clone()
	if prev.Status == status {
		b.mu.Unlock()
		return Result{Task: prev}, nil
	}
	b.tasks[idx].Status = status
	b.mu.Unlock()
	b.changed()

	got, err := b.api.Update(ctx, taskID, api.TaskPatch{Status: &status})
	if err != nil {
		b.mu.Lock()
		if i := b.indexLocked(taskID); i >= 0 {
			b.tasks[i] = prev
		}
		b.mu.Unlock()
		b.changed()
		return Result{Task: prev}, err
	}

	local := prev.Clone()
	local.Status = status
	final := adopt(local, got)
	b.mu.Lock()
	if i := b.indexLocked(taskID); i >= 0 {
		b.tasks[i] = final.Clone()
	}
	b.mu.Unlock()
	b.changed()
	b.bus.Publish(signals.TasksRefresh)
	b.bus.Publish(signals.OverdueRefresh)
	return Result{Task: final, Changed: true}, nil
}

func (b *Board) changed() {
	b.mu.Lock()
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (b *Board) indexLocked(id int) int {
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			return i
		}
	}
	return -1
}
