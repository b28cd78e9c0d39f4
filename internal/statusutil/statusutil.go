package statusutil

import (
	"fmt"
	"strings"

	"taskflow-cli/internal/model"
)

// NormalizeStatus accepts the canonical ids plus a few common spellings.
func NormalizeStatus(s string) (model.Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "todo", "open":
		return model.StatusPending, nil
	case "ongoing", "doing", "in-progress", "in_progress", "in progress":
		return model.StatusOngoing, nil
	case "finished", "done", "complete", "completed":
		return model.StatusFinished, nil
	case "cancelled", "canceled":
		return model.StatusCancelled, nil
	case "":
		return "", fmt.Errorf("invalid status: empty")
	default:
		return "", fmt.Errorf("invalid status: %q (expected pending|ongoing|finished|cancelled)", s)
	}
}

func NormalizePriority(s string) (model.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", fmt.Errorf("invalid priority: empty")
	case "med", "normal":
		return model.PriorityMedium, nil
	case "critical":
		return model.PriorityUrgent, nil
	default:
		return model.ParsePriority(s)
	}
}

// IsEndState reports whether a task in this status is no longer actionable.
func IsEndState(s model.Status) bool {
	return s == model.StatusFinished || s == model.StatusCancelled
}

func StatusLabel(s model.Status) string {
	switch s {
	case model.StatusPending:
		return "Pending"
	case model.StatusOngoing:
		return "Ongoing"
	case model.StatusFinished:
		return "Finished"
	case model.StatusCancelled:
		return "Cancelled"
	case "":
		return "created"
	default:
		return string(s)
	}
}

func PriorityLabel(p model.Priority) string {
	if p == "" {
		return "-"
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// ShiftStatus moves delta columns along the board order, clamped at both ends.
func ShiftStatus(s model.Status, delta int) model.Status {
	idx := 0
	for i, x := range model.Statuses {
		if x == s {
			idx = i
			break
		}
	}
	idx += delta
	if idx < 0 {
		idx = 0
	}
	if idx >= len(model.Statuses) {
		idx = len(model.Statuses) - 1
	}
	return model.Statuses[idx]
}

// CycleStatus wraps around, for single-key status cycling.
func CycleStatus(s model.Status) model.Status {
	for i, x := range model.Statuses {
		if x == s {
			return model.Statuses[(i+1)%len(model.Statuses)]
		}
	}
	return model.Statuses[0]
}

func CyclePriority(p model.Priority) model.Priority {
	for i, x := range model.Priorities {
		if x == p {
			return model.Priorities[(i+1)%len(model.Priorities)]
		}
	}
	return model.PriorityMedium
}
