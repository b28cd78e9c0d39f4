package statusutil

import (
	"testing"

	"taskflow-cli/internal/model"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    model.Status
		wantErr bool
	}{
		{"pending", model.StatusPending, false},
		{"TODO", model.StatusPending, false},
		{" in progress ", model.StatusOngoing, false},
		{"Done", model.StatusFinished, false},
		{"canceled", model.StatusCancelled, false},
		{"", "", true},
		{"backlog", "", true},
	}
	for _, tc := range cases {
		got, err := NormalizeStatus(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("NormalizeStatus(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("NormalizeStatus(%q): want %q got %q err=%v", tc.in, tc.want, got, err)
		}
	}
}

func TestNormalizePriority(t *testing.T) {
	if p, err := NormalizePriority("HIGH"); err != nil || p != model.PriorityHigh {
		t.Fatalf("HIGH: %q %v", p, err)
	}
	if p, err := NormalizePriority("critical"); err != nil || p != model.PriorityUrgent {
		t.Fatalf("critical: %q %v", p, err)
	}
	if _, err := NormalizePriority("whenever"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestIsEndState(t *testing.T) {
	if IsEndState(model.StatusPending) || IsEndState(model.StatusOngoing) {
		t.Fatalf("open statuses are not end states")
	}
	if !IsEndState(model.StatusFinished) || !IsEndState(model.StatusCancelled) {
		t.Fatalf("finished and cancelled are end states")
	}
}

func TestShiftAndCycle(t *testing.T) {
	if got := ShiftStatus(model.StatusPending, -1); got != model.StatusPending {
		t.Fatalf("shift left of first: %q", got)
	}
	if got := ShiftStatus(model.StatusOngoing, 1); got != model.StatusFinished {
		t.Fatalf("shift right: %q", got)
	}
	if got := ShiftStatus(model.StatusCancelled, 1); got != model.StatusCancelled {
		t.Fatalf("shift right of last: %q", got)
	}
	if got := CycleStatus(model.StatusCancelled); got != model.StatusPending {
		t.Fatalf("cycle wraps: %q", got)
	}
	if got := CyclePriority(model.PriorityUrgent); got != model.PriorityLow {
		t.Fatalf("priority cycle wraps: %q", got)
	}
}

func TestLabels(t *testing.T) {
	if StatusLabel("") != "created" || StatusLabel(model.StatusOngoing) != "Ongoing" {
		t.Fatalf("unexpected status labels")
	}
	if PriorityLabel(model.PriorityUrgent) != "Urgent" || PriorityLabel("") != "-" {
		t.Fatalf("unexpected priority labels")
	}
}
