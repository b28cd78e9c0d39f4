package cli

import (
	"errors"
	"strings"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/publish"

	"github.com/spf13/cobra"
)

func newTasksPublishCmd(app *App) *cobra.Command {
	var (
		to        string
		all       bool
		mine      bool
		history   bool
		overwrite bool
		title     string
	)

	cmd := &cobra.Command{
		Use:   "publish [task-id...]",
		Short: "Write tasks as Markdown pages (tasks/<id>.md plus index.md)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(to) == "" {
				return writeErr(cmd, errors.New("missing --to"))
			}
			if len(args) == 0 && !all && !mine {
				return writeErr(cmd, errors.New("nothing to publish; pass task ids, --all or --mine"))
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}

			ids := make([]int, 0, len(args))
			for _, a := range args {
				id, err := parseID("task", a)
				if err != nil {
					return writeErr(cmd, err)
				}
				ids = append(ids, id)
			}
			if all || mine {
				page, err := c.Tasks.List(cmd.Context(), api.TaskListParams{MyTasks: mine})
				if err != nil {
					return writeErr(cmd, err)
				}
				for _, t := range page.Results {
					ids = append(ids, t.ID)
				}
			}

			bundles := make([]publish.Bundle, 0, len(ids))
			for _, id := range ids {
				d, err := fetchTaskDetail(cmd.Context(), c, id)
				if err != nil {
					return writeErr(cmd, err)
				}
				bundles = append(bundles, publish.Bundle{
					Task:        d.Task,
					Comments:    d.Comments,
					Links:       d.Links,
					Attachments: d.Attachments,
					History:     d.StatusHistory,
				})
			}

			if title == "" && len(bundles) > 1 {
				title = "Tasks"
			}
			res, err := publish.WriteTasks(bundles, to, publish.WriteOptions{
				Origin:         c.Origin(),
				IncludeHistory: history,
				Overwrite:      overwrite,
				Title:          title,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, res, map[string]any{"dir": to, "count": len(res.Written)})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().BoolVar(&all, "all", false, "Publish every visible task")
	cmd.Flags().BoolVar(&mine, "mine", false, "Publish tasks assigned to me")
	cmd.Flags().BoolVar(&history, "history", false, "Include status history")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	cmd.Flags().StringVar(&title, "title", "", "Index title (default: Tasks when publishing more than one)")
	return cmd
}
