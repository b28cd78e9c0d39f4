package cli

import (
	"errors"
	"net/url"
	"strings"

	"taskflow-cli/internal/perm"

	"github.com/spf13/cobra"
)

func newTasksCommentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Task comment commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <task-id>",
		Short: "List comments for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			xs, err := c.Tasks.Comments(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "task", id))
			}
			return writeOut(cmd, app, xs, map[string]any{"count": len(xs)})
		},
	})

	var body string
	add := &cobra.Command{
		Use:   "add <task-id>",
		Short: "Comment on a task (creator and assignees only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			body = strings.TrimSpace(body)
			if body == "" {
				return writeErr(cmd, errors.New("missing --body"))
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			t, err := c.Tasks.Get(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "task", id))
			}
			if !perm.CanComment(c.Session().User(), *t) {
				return writeErr(cmd, errors.New("permission denied: only the creator and assignees can comment"))
			}
			cm, err := c.Tasks.AddComment(cmd.Context(), id, body)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, cm)
		},
	}
	add.Flags().StringVar(&body, "body", "", "Comment body")
	cmd.AddCommand(add)
	return cmd
}

func newTasksLinksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Task link commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <task-id>",
		Short: "List links on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			xs, err := c.Tasks.Links(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "task", id))
			}
			return writeOut(cmd, app, xs)
		},
	})

	var label string
	add := &cobra.Command{
		Use:   "add <task-id> <url>",
		Short: "Attach a link to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			raw := strings.TrimSpace(args[1])
			if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
				return writeErr(cmd, errors.New("invalid url: "+raw))
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			l, err := c.Tasks.AddLink(cmd.Context(), id, raw, strings.TrimSpace(label))
			if err != nil {
				return writeErr(cmd, orNotFound(err, "task", id))
			}
			return writeOut(cmd, app, l)
		},
	}
	add.Flags().StringVar(&label, "label", "", "Link label")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <task-id> <link-id>",
		Short: "Remove a link from a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			linkID, err := parseID("link", args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Tasks.DeleteLink(cmd.Context(), id, linkID); err != nil {
				return writeErr(cmd, orNotFound(err, "link", linkID))
			}
			return writeOut(cmd, app, map[string]any{"id": linkID, "deleted": true})
		},
	})
	return cmd
}
