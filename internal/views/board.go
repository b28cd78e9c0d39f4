package views

import (
	"time"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/statusutil"
)

type Column struct {
	Status model.Status `json:"status"`
	Label  string       `json:"label"`
	Tasks  []model.Task `json:"tasks"`
}

// Kanban always returns the four columns in board order.
func Kanban(tasks []model.Task) []Column {
	cols := make([]Column, len(model.Statuses))
	idx := map[model.Status]int{}
	for i, s := range model.Statuses {
		cols[i] = Column{Status: s, Label: statusutil.StatusLabel(s), Tasks: []model.Task{}}
		idx[s] = i
	}
	for _, t := range tasks {
		if i, ok := idx[t.Status]; ok {
			cols[i].Tasks = append(cols[i].Tasks, t)
		}
	}
	return cols
}

type Day struct {
	Date    time.Time    `json:"date"`
	InMonth bool         `json:"in_month"`
	Tasks   []model.Task `json:"tasks"`
}

type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Weeks [][7]Day   `json:"weeks"`
}

// Calendar lays out the month containing month as Sunday-first weeks. Tasks land on the local
// date of their deadline, in month's location; tasks without a deadline are left out.
func Calendar(tasks []model.Task, month time.Time) Month {
	loc := month.Location()
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	next := first.AddDate(0, 1, 0)

	byDate := map[string][]model.Task{}
	for _, t := range tasks {
		if t.Deadline == nil {
			continue
		}
		k := t.Deadline.In(loc).Format(time.DateOnly)
		byDate[k] = append(byDate[k], t)
	}

	m := Month{Year: first.Year(), Month: first.Month()}
	for d := start; d.Before(next); {
		var week [7]Day
		for i := 0; i < 7; i++ {
			week[i] = Day{Date: d, InMonth: d.Month() == first.Month(), Tasks: byDate[d.Format(time.DateOnly)]}
			d = d.AddDate(0, 0, 1)
		}
		m.Weeks = append(m.Weeks, week)
	}
	return m
}
