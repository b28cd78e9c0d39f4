// Package views turns API payloads into what the CLI and TUI render.
package views

import (
	"context"
	"strconv"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/statusutil"

	"golang.org/x/sync/errgroup"
)

// UpcomingLimit caps the dashboard's upcoming list.
const UpcomingLimit = 5

type Summary struct {
	MyTasks  int          `json:"my_tasks"`
	Overdue  []model.Task `json:"overdue"`
	Upcoming []model.Task `json:"upcoming"`
	Unread   int          `json:"unread"`
}

// Dashboard keeps the order of all when picking upcoming tasks.
func Dashboard(all, mine []model.Task, unread int, now time.Time) Summary {
	s := Summary{MyTasks: len(mine), Overdue: []model.Task{}, Upcoming: []model.Task{}, Unread: unread}
	for _, t := range mine {
		if t.IsOverdue {
			s.Overdue = append(s.Overdue, t)
		}
	}
	for _, t := range all {
		if len(s.Upcoming) == UpcomingLimit {
			break
		}
		if t.Deadline == nil || !t.Deadline.After(now) || statusutil.IsEndState(t.Status) {
			continue
		}
		s.Upcoming = append(s.Upcoming, t)
	}
	return s
}

// TaskLister is the slice of api.TasksAPI the dashboard needs.
type TaskLister interface {
	List(ctx context.Context, p api.TaskListParams) (model.Page[model.Task], error)
}

// LoadDashboard fetches all tasks and the caller's tasks concurrently.
func LoadDashboard(ctx context.Context, tasks TaskLister, unread int, now time.Time) (Summary, error) {
	var all, mine model.Page[model.Task]
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = tasks.List(gctx, api.TaskListParams{Ordering: "-deadline"})
		return err
	})
	g.Go(func() error {
		var err error
		mine, err = tasks.List(gctx, api.TaskListParams{MyTasks: true})
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return Dashboard(all.Results, mine.Results, unread, now), nil
}

func OverdueCount(tasks []model.Task) int {
	n := 0
	for _, t := range tasks {
		if t.IsOverdue {
			n++
		}
	}
	return n
}

// Badge renders a navigation counter: empty at zero, "99+" past 99.
func Badge(n int) string {
	switch {
	case n <= 0:
		return ""
	case n > 99:
		return "99+"
	default:
		return strconv.Itoa(n)
	}
}
