package cli

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/live"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/notify"

	"github.com/spf13/cobra"
)

func (app *App) liveDeps(c *api.Client) live.Deps {
	return live.Deps{Client: c, Delay: app.cfg.ReconnectDelay, Logger: app.log.Named("live")}
}

func newNotificationsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Notification commands",
	}
	cmd.AddCommand(newNotificationsListCmd(app))
	cmd.AddCommand(newNotificationsReadCmd(app))
	cmd.AddCommand(newNotificationsReadAllCmd(app))
	cmd.AddCommand(newNotificationsWatchCmd(app))
	return cmd
}

func newNotificationsListCmd(app *App) *cobra.Command {
	var unreadOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			st := notify.New(c.Notifications)
			if err := st.Fetch(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			items := st.Items()
			if unreadOnly {
				kept := items[:0]
				for _, n := range items {
					if !n.Read {
						kept = append(kept, n)
					}
				}
				items = kept
			}
			return writeOut(cmd, app, notificationTable(items), map[string]any{"unread": st.Unread()})
		},
	}
	cmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only unread notifications")
	return cmd
}

func newNotificationsReadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("notification", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Notifications.MarkRead(cmd.Context(), id); err != nil {
				return writeErr(cmd, orNotFound(err, "notification", id))
			}
			return writeOut(cmd, app, map[string]any{"id": id, "read": true})
		},
	}
}

func newNotificationsReadAllCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Notifications.MarkAllRead(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"read_all": true})
		},
	}
}

func newNotificationsWatchCmd(app *App) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream pushed notifications as JSON lines until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st := notify.New(c.Notifications)
			if err := st.Fetch(ctx); err != nil {
				return writeErr(cmd, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			var chime notify.Chime = notify.NopChime{}
			if !quiet && app.cfg.Sound {
				chime = notify.NewTerminalChime(cmd.ErrOrStderr())
			}
			// Each id is printed and rung once, however often it is pushed.
			seen := map[int]bool{}
			for _, n := range st.Items() {
				seen[n.ID] = true
			}
			printer := chimeFunc(func(n model.Notification) {
				if seen[n.ID] {
					return
				}
				seen[n.ID] = true
				_ = enc.Encode(n)
				chime.Ring(n)
			})
			live.NewNotifications(app.liveDeps(c), st, printer, nil).Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&quiet, "quiet", false, "No terminal bell or desktop notification")
	return cmd
}

type chimeFunc func(model.Notification)

func (f chimeFunc) Ring(n model.Notification) { f(n) }
