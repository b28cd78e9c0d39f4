package views

import (
	"time"

	"taskflow-cli/internal/model"

	"github.com/dustin/go-humanize"
)

const deadlineLayout = "Jan 2 2006 15:04"

// StatusTransition renders one history entry; the first entry reads "created → <status>".
func StatusTransition(e model.StatusHistoryEntry) string {
	from := "created"
	if e.FromStatus != nil {
		from = string(*e.FromStatus)
	}
	return from + " → " + string(e.ToStatus)
}

func FormatDeadline(t *time.Time, now time.Time) string {
	if t == nil {
		return "no deadline"
	}
	return t.In(now.Location()).Format(deadlineLayout) + " (" + Relative(*t, now) + ")"
}

// Relative is "3 hours ago" / "2 days from now".
func Relative(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}
