package cli

import (
	"taskflow-cli/internal/notify"
	"taskflow-cli/internal/views"

	"github.com/spf13/cobra"
)

func newDashboardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show my task counters, overdue and upcoming tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			notes := notify.New(c.Notifications)
			if err := notes.Fetch(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			sum, err := views.LoadDashboard(cmd.Context(), c.Tasks, notes.Unread(), app.now())
			if err != nil {
				return writeErr(cmd, err)
			}
			recent := notes.Items()
			if len(recent) > 5 {
				recent = recent[:5]
			}
			return writeOut(cmd, app, sum, map[string]any{
				"overdue_badge":        views.Badge(len(sum.Overdue)),
				"unread_badge":         views.Badge(sum.Unread),
				"recent_notifications": recent,
			})
		},
	}
}
