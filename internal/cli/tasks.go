package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/mutate"
	"taskflow-cli/internal/perm"
	"taskflow-cli/internal/statusutil"
	"taskflow-cli/internal/views"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newTasksCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands",
	}
	cmd.AddCommand(newTasksListCmd(app))
	cmd.AddCommand(newTasksShowCmd(app))
	cmd.AddCommand(newTasksCreateCmd(app))
	cmd.AddCommand(newTasksUpdateCmd(app))
	cmd.AddCommand(newTasksAssignCmd(app))
	cmd.AddCommand(newTasksDeleteCmd(app))
	cmd.AddCommand(newTasksCommentsCmd(app))
	cmd.AddCommand(newTasksLinksCmd(app))
	cmd.AddCommand(newTasksHistoryCmd(app))
	cmd.AddCommand(newTasksPublishCmd(app))
	return cmd
}

func newTasksListCmd(app *App) *cobra.Command {
	var (
		mine     bool
		status   string
		priority string
		search   string
		ordering string
		page     int
		view     string
		month    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks (list, kanban or calendar view)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			p := api.TaskListParams{MyTasks: mine, Search: strings.TrimSpace(search), Ordering: ordering, Page: page}
			if status != "" {
				s, err := statusutil.NormalizeStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.Status = s
			}
			if priority != "" {
				pr, err := statusutil.NormalizePriority(priority)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.Priority = pr
			}

			res, err := c.Tasks.List(cmd.Context(), p)
			if err != nil {
				return writeErr(cmd, err)
			}
			meta := map[string]any{
				"count":    res.Count,
				"next":     res.Next,
				"previous": res.Previous,
				"overdue":  views.OverdueCount(res.Results),
				"view":     view,
			}

			switch view {
			case "", "list":
				meta["view"] = "list"
				return writeOut(cmd, app, taskTable(res.Results), meta)
			case "kanban":
				return writeOut(cmd, app, views.Kanban(res.Results), meta)
			case "calendar":
				m, err := views.ParseMonth(month, app.now())
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, views.Calendar(res.Results, m), meta)
			default:
				return writeErr(cmd, fmt.Errorf("invalid --view %q (expected list|kanban|calendar)", view))
			}
		},
	}

	cmd.Flags().BoolVar(&mine, "mine", false, "Only tasks assigned to me")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending|ongoing|finished|cancelled)")
	cmd.Flags().StringVar(&priority, "priority", "", "Filter by priority (low|medium|high|urgent)")
	cmd.Flags().StringVar(&search, "search", "", "Search title and description")
	cmd.Flags().StringVar(&ordering, "ordering", "", "Backend ordering, e.g. -deadline")
	cmd.Flags().IntVar(&page, "page", 0, "Page number")
	cmd.Flags().StringVar(&view, "view", "list", "Output shape (list|kanban|calendar)")
	cmd.Flags().StringVar(&month, "month", "", "Calendar month YYYY-MM (default: current month)")
	return cmd
}

type taskDetail struct {
	Task          model.Task                 `json:"task"`
	Comments      []model.TaskComment        `json:"comments"`
	Links         []model.TaskLink           `json:"links"`
	Attachments   []model.Attachment         `json:"attachments"`
	StatusHistory []model.StatusHistoryEntry `json:"status_history"`
}

func newTasksShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with comments, links, attachments and status history",
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

			out, err := fetchTaskDetail(cmd.Context(), c, id)
			if err != nil {
				return writeErr(cmd, err)
			}

			transitions := make([]string, 0, len(out.StatusHistory))
			for _, e := range out.StatusHistory {
				transitions = append(transitions, views.StatusTransition(e))
			}
			return writeOut(cmd, app, out, map[string]any{
				"can_comment": perm.CanComment(c.Session().User(), out.Task),
				"deadline":    views.FormatDeadline(out.Task.Deadline, app.now()),
				"transitions": transitions,
			})
		},
	}
}

// fetchTaskDetail loads a task and its threads; the threads are fetched concurrently.
func fetchTaskDetail(ctx context.Context, c *api.Client, id int) (taskDetail, error) {
	t, err := c.Tasks.Get(ctx, id)
	if err != nil {
		return taskDetail{}, orNotFound(err, "task", id)
	}
	out := taskDetail{Task: *t}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { out.Comments, err = c.Tasks.Comments(gctx, id); return })
	g.Go(func() (err error) { out.Links, err = c.Tasks.Links(gctx, id); return })
	g.Go(func() (err error) { out.Attachments, err = c.Attachments.List(gctx, id); return })
	g.Go(func() (err error) { out.StatusHistory, err = c.Tasks.StatusHistory(gctx, id); return })
	if err := g.Wait(); err != nil {
		return taskDetail{}, err
	}
	return out, nil
}

func newTasksCreateCmd(app *App) *cobra.Command {
	var (
		in        api.TaskInput
		priority  string
		status    string
		deadline  string
		reminder  string
		assignees []int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			in.Title = strings.TrimSpace(in.Title)
			if in.Title == "" {
				return writeErr(cmd, errors.New("missing --title"))
			}
			if priority != "" {
				if in.Priority, err = statusutil.NormalizePriority(priority); err != nil {
					return writeErr(cmd, err)
				}
			}
			if status != "" {
				if in.Status, err = statusutil.NormalizeStatus(status); err != nil {
					return writeErr(cmd, err)
				}
			}
			loc := app.now().Location()
			if deadline != "" {
				if in.Deadline, _, err = views.ParseWhen(deadline, loc); err != nil {
					return writeErr(cmd, err)
				}
			}
			if reminder != "" {
				if in.ReminderDatetime, _, err = views.ParseWhen(reminder, loc); err != nil {
					return writeErr(cmd, err)
				}
			}
			in.Assignees = assignees

			t, err := c.Tasks.Create(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, t)
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "Title")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high|urgent)")
	cmd.Flags().StringVar(&status, "status", "", "Initial status")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline (YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC3339)")
	cmd.Flags().StringVar(&reminder, "reminder", "", "Reminder datetime")
	cmd.Flags().IntSliceVar(&assignees, "assignee", nil, "Assignee user id (repeatable)")
	return cmd
}

func newTasksUpdateCmd(app *App) *cobra.Command {
	var (
		title       string
		description string
		priority    string
		status      string
		deadline    string
		reminder    string
	)

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update task fields",
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

			var patch api.TaskPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				t := strings.TrimSpace(title)
				patch.Title = &t
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("priority") {
				p, err := statusutil.NormalizePriority(priority)
				if err != nil {
					return writeErr(cmd, err)
				}
				patch.Priority = &p
			}
			if flags.Changed("status") {
				s, err := statusutil.NormalizeStatus(status)
				if err != nil {
					return writeErr(cmd, err)
				}
				patch.Status = &s
			}
			loc := app.now().Location()
			if flags.Changed("deadline") {
				if patch.Deadline, patch.ClearDeadline, err = views.ParseWhen(deadline, loc); err != nil {
					return writeErr(cmd, err)
				}
			}
			if flags.Changed("reminder") {
				if patch.ReminderDatetime, patch.ClearReminder, err = views.ParseWhen(reminder, loc); err != nil {
					return writeErr(cmd, err)
				}
			}
			if patch.Empty() {
				return writeErr(cmd, errors.New("nothing to update; pass at least one field flag"))
			}

			t, err := c.Tasks.Update(cmd.Context(), id, patch)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "task", id))
			}
			return writeOut(cmd, app, t)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&description, "description", "", "Description (markdown)")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (low|medium|high|urgent)")
	cmd.Flags().StringVar(&status, "status", "", "Status (pending|ongoing|finished|cancelled)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline, or none to clear")
	cmd.Flags().StringVar(&reminder, "reminder", "", "Reminder datetime, or none to clear")
	return cmd
}

func newTasksAssignCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <task-id> <user-id>",
		Short: "Toggle a user in the task's assignees",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			userID, err := parseID("user", args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			t, err := c.Tasks.Get(ctx, id)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "task", id))
			}
			known, err := c.Users.List(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}

			ed := mutate.NewEditor(*t, c.Tasks, nil)
			wasAssigned := t.IsAssignee(userID)
			res, err := ed.ToggleAssignee(ctx, userID, known)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, res.Task, map[string]any{
				"user_id":  userID,
				"assigned": !wasAssigned,
			})
		},
	}
}

func newTasksDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
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
			if err := c.Tasks.Delete(cmd.Context(), id); err != nil {
				return writeErr(cmd, orNotFound(err, "task", id))
			}
			return writeOut(cmd, app, map[string]any{"id": id, "deleted": true})
		},
	}
}

func newTasksHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history <task-id>",
		Short: "Show a task's status history",
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
			hist, err := c.Tasks.StatusHistory(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "task", id))
			}
			return writeOut(cmd, app, hist)
		},
	}
}
