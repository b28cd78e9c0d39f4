package mutate

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/signals"
)

func boardTasks() []model.Task {
	return []model.Task{
		{ID: 1, Title: "a", Status: model.StatusPending},
		{ID: 2, Title: "b", Status: model.StatusOngoing},
	}
}

func TestBoard_MoveOptimisticAndSignals(t *testing.T) {
	bus := signals.NewBus()
	ch, cancel := bus.Subscribe()
	defer cancel()

	up := &fakeUpdater{}
	b := NewBoard(boardTasks(), up, bus)
	up.during = func() {
		if b.Tasks()[0].Status != model.StatusFinished {
			t.Errorf("expected optimistic status while in flight")
		}
	}

	res, err := b.Move(context.Background(), 1, model.StatusFinished)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if !res.Changed || res.Task.Status != model.StatusFinished {
		t.Fatalf("unexpected result: %+v", res)
	}
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case s := <-ch:
			got[s.Name] = true
		case <-time.After(time.Second):
			t.Fatalf("missing signal; got %v", got)
		}
	}
	if !got[signals.TasksRefresh] || !got[signals.OverdueRefresh] {
		t.Fatalf("unexpected signals: %v", got)
	}
}

func TestBoard_MoveFailureRestores(t *testing.T) {
	b := NewBoard(boardTasks(), &fakeUpdater{err: errors.New("nope")}, nil)
	if _, err := b.Move(context.Background(), 2, model.StatusCancelled); err == nil {
		t.Fatalf("expected error")
	}
	if b.Tasks()[1].Status != model.StatusOngoing {
		t.Fatalf("expected rollback, got %q", b.Tasks()[1].Status)
	}
}

func TestBoard_MoveNoops(t *testing.T) {
	up := &fakeUpdater{}
	b := NewBoard(boardTasks(), up, nil)
	ctx := context.Background()
	if res, err := b.Move(ctx, 1, model.StatusPending); err != nil || res.Changed {
		t.Fatalf("same column should be a no-op: %+v %v", res, err)
	}
	if res, err := b.Move(ctx, 99, model.StatusFinished); err != nil || res.Changed {
		t.Fatalf("missing task should be a no-op: %+v %v", res, err)
	}
	if len(up.patches) != 0 {
		t.Fatalf("expected no requests, got %d", len(up.patches))
	}
}

func TestBoard_OnChangeSeesOptimisticAndRollback(t *testing.T) {
	up := &fakeUpdater{err: errors.New("offline")}
	b := NewBoard(boardTasks(), up, nil)
	var seen []model.Status
	b.OnChange(func() { seen = append(seen, b.Tasks()[0].Status) })

	if _, err := b.Move(context.Background(), 1, model.StatusOngoing); err == nil {
		t.Fatalf("expected error")
	}
	if len(seen) != 2 || seen[0] != model.StatusOngoing || seen[1] != model.StatusPending {
		t.Fatalf("expected optimistic then restored status; got %v", seen)
	}
}
