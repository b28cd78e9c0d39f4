package views

import (
	"strings"
	"testing"
	"time"

	"taskflow-cli/internal/model"
)

func at(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}

func TestDashboard(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	mine := []model.Task{
		{ID: 1, IsOverdue: true},
		{ID: 2},
		{ID: 3, IsOverdue: true},
	}
	var all []model.Task
	for i := 0; i < 8; i++ {
		all = append(all, model.Task{ID: 10 + i, Status: model.StatusPending, Deadline: at(2026, 6, 1+i, 9)})
	}
	all = append([]model.Task{
		{ID: 100, Status: model.StatusFinished, Deadline: at(2026, 7, 1, 9)},
		{ID: 101, Status: model.StatusPending, Deadline: at(2026, 4, 1, 9)},
		{ID: 102, Status: model.StatusOngoing},
	}, all...)

	s := Dashboard(all, mine, 4, now)
	if s.MyTasks != 3 || s.Unread != 4 || len(s.Overdue) != 2 {
		t.Fatalf("unexpected summary counts: %+v", s)
	}
	if len(s.Upcoming) != UpcomingLimit || s.Upcoming[0].ID != 10 {
		t.Fatalf("upcoming should skip done/past/undated and cap at %d: %+v", UpcomingLimit, s.Upcoming)
	}
}

func TestBadge(t *testing.T) {
	cases := map[int]string{0: "", -1: "", 1: "1", 99: "99", 100: "99+", 2500: "99+"}
	for n, want := range cases {
		if got := Badge(n); got != want {
			t.Fatalf("Badge(%d): want %q got %q", n, want, got)
		}
	}
}

func TestKanban_FixedOrder(t *testing.T) {
	cols := Kanban([]model.Task{
		{ID: 1, Status: model.StatusFinished},
		{ID: 2, Status: model.StatusPending},
		{ID: 3, Status: model.StatusFinished},
	})
	if len(cols) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(cols))
	}
	want := []model.Status{model.StatusPending, model.StatusOngoing, model.StatusFinished, model.StatusCancelled}
	for i, c := range cols {
		if c.Status != want[i] {
			t.Fatalf("column %d: want %q got %q", i, want[i], c.Status)
		}
	}
	if len(cols[2].Tasks) != 2 || len(cols[1].Tasks) != 0 || cols[1].Tasks == nil {
		t.Fatalf("unexpected bucketing: %+v", cols)
	}
}

func TestCalendar_SundayStartAndBuckets(t *testing.T) {
	// May 2026 starts on a Friday.
	month := time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC)
	m := Calendar([]model.Task{
		{ID: 1, Deadline: at(2026, 5, 1, 23)},
		{ID: 2, Deadline: at(2026, 5, 31, 8)},
		{ID: 3},
	}, month)

	if m.Month != time.May || len(m.Weeks) != 6 {
		t.Fatalf("expected 6 weeks for May 2026, got %d", len(m.Weeks))
	}
	first := m.Weeks[0]
	if first[0].Date.Weekday() != time.Sunday || first[0].InMonth {
		t.Fatalf("grid should start on the Sunday before the 1st: %v", first[0].Date)
	}
	if !first[5].InMonth || first[5].Date.Day() != 1 || len(first[5].Tasks) != 1 {
		t.Fatalf("May 1 should hold task 1: %+v", first[5])
	}
	last := m.Weeks[5]
	if last[0].Date.Day() != 31 || len(last[0].Tasks) != 1 || last[0].Tasks[0].ID != 2 {
		t.Fatalf("May 31 should hold task 2: %+v", last[0])
	}
}

func TestChannelDisplayName(t *testing.T) {
	direct := model.Channel{ID: 7, ChannelType: model.ChannelDirect, MembersDetail: []model.UserRef{{ID: 1, Username: "me"}, {ID: 2, Username: "ada"}}}
	if got := ChannelDisplayName(direct, 1); got != "ada" {
		t.Fatalf("direct: %q", got)
	}
	group := model.Channel{ID: 8, ChannelType: model.ChannelGroup, Name: "ops"}
	if got := ChannelDisplayName(group, 1); got != "ops" {
		t.Fatalf("group: %q", got)
	}
	if got := ChannelDisplayName(model.Channel{ID: 9}, 1); got != "Channel 9" {
		t.Fatalf("fallback: %q", got)
	}
}

func TestChannelSubtitle(t *testing.T) {
	long := strings.Repeat("é", 45)
	ch := model.Channel{LastMessage: &model.Message{Content: long}}
	got := ChannelSubtitle(ch)
	if []rune(got)[40] != '…' || len([]rune(got)) != 41 {
		t.Fatalf("expected 40 runes plus ellipsis, got %q", got)
	}
	if ChannelSubtitle(model.Channel{}) != "" {
		t.Fatalf("no last message means no subtitle")
	}
	short := model.Channel{LastMessage: &model.Message{Content: "hi\nthere"}}
	if got := ChannelSubtitle(short); got != "hi there" {
		t.Fatalf("short: %q", got)
	}
}

func TestStatusTransition(t *testing.T) {
	first := model.StatusHistoryEntry{ToStatus: model.StatusPending}
	if got := StatusTransition(first); got != "created → pending" {
		t.Fatalf("first: %q", got)
	}
	from := model.StatusPending
	next := model.StatusHistoryEntry{FromStatus: &from, ToStatus: model.StatusOngoing}
	if got := StatusTransition(next); got != "pending → ongoing" {
		t.Fatalf("next: %q", got)
	}
}

func TestFormatDeadline(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	if FormatDeadline(nil, now) != "no deadline" {
		t.Fatalf("nil deadline")
	}
	got := FormatDeadline(at(2026, 5, 13, 12), now)
	if !strings.HasPrefix(got, "May 13 2026 12:00") || !strings.Contains(got, "from now") {
		t.Fatalf("unexpected: %q", got)
	}
	if !strings.Contains(Relative(now.Add(-2*time.Hour), now), "ago") {
		t.Fatalf("past times read as ago")
	}
}
