package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/config"
	"taskflow-cli/internal/format"
	"taskflow-cli/internal/logging"
	"taskflow-cli/internal/session"
	"taskflow-cli/internal/store"
	"taskflow-cli/internal/tui"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type App struct {
	ConfigDir  string
	APIURL     string
	PrettyJSON bool
	Format     string

	cfg      *config.Config
	log      *zap.Logger
	closeLog func()
	db       *store.DB
	client   *api.Client

	// now is replaced in tests.
	now func() time.Time
}

func NewRootCmd() *cobra.Command {
	app := &App{now: time.Now}

	cmd := &cobra.Command{
		Use:          "taskflow",
		Short:        "TaskFlow terminal client (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  taskflow

  # Sign in for scripted use
  taskflow login --username ada

  # Scriptable commands
  taskflow tasks list --mine
  taskflow notifications watch

  # Direct task lookup (shortcut for: taskflow tasks show <id>)
  taskflow 42
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand on a terminal => interactive TUI.
			if len(args) == 0 && isTerminal() {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigDir, "config-dir", "", "Config dir holding config.yaml and session.sqlite (default: $TASKFLOW_CONFIG_DIR or ~/.taskflow)")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", "", "Backend origin (overrides api_url / TASKFLOW_API_URL)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("TASKFLOW_FORMAT", "json"), "Output format (json|edn|table)")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newDashboardCmd(app))
	cmd.AddCommand(newTasksCmd(app))
	cmd.AddCommand(newAttachmentsCmd(app))
	cmd.AddCommand(newChatCmd(app))
	cmd.AddCommand(newNotificationsCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newRolesCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	closeAfterRun(cmd, app)
	return cmd
}

// closeAfterRun releases the session database after every command, including failed ones
// (cobra skips post-run hooks on error).
func closeAfterRun(c *cobra.Command, app *App) {
	if run := c.RunE; run != nil {
		c.RunE = func(cmd *cobra.Command, args []string) error {
			defer app.close()
			return run(cmd, args)
		}
	}
	for _, sub := range c.Commands() {
		closeAfterRun(sub, app)
	}
}

func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
}

func runTUI(cmd *cobra.Command, app *App) error {
	c, err := app.connect(cmd.Context())
	if err != nil {
		return writeErr(cmd, err)
	}
	return tui.Run(cmd.Context(), tui.Deps{
		Client: c,
		DB:     app.db,
		Config: app.cfg,
		Logger: app.log,
	})
}

// connect resolves config, opens the session database and restores the session. It is lazy so
// that `--help` and flag errors never touch the disk.
func (app *App) connect(ctx context.Context) (*api.Client, error) {
	if app.client != nil {
		return app.client, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	dir := app.ConfigDir
	if dir == "" {
		d, err := store.ConfigDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	cfg, err := config.Load(dir, ".env")
	if err != nil {
		return nil, err
	}
	if app.APIURL != "" {
		if err := cfg.SetAPIURL(app.APIURL); err != nil {
			return nil, err
		}
	}
	log, closeLog, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	db, err := store.Open(ctx, dir)
	if err != nil {
		closeLog()
		return nil, err
	}
	sess := session.New(db.Sessions(), log.Named("session"))
	if err := sess.Load(ctx); err != nil {
		log.Warn("load persisted session", zap.Error(err))
	}
	client, err := api.New(sess, api.Options{
		APIURL:  cfg.APIURL,
		WSURL:   cfg.WSURL,
		Timeout: cfg.RequestTimeout,
		Logger:  log.Named("api"),
	})
	if err != nil {
		_ = db.Close()
		closeLog()
		return nil, err
	}
	app.cfg, app.log, app.closeLog, app.db, app.client = cfg, log, closeLog, db, client
	return client, nil
}

// authed is connect plus a logged-in check.
func (app *App) authed(ctx context.Context) (*api.Client, error) {
	c, err := app.connect(ctx)
	if err != nil {
		return nil, err
	}
	if !c.Session().LoggedIn() {
		return nil, errNotLoggedIn
	}
	return c, nil
}

func (app *App) close() {
	if app.db != nil {
		_ = app.db.Close()
		app.db = nil
	}
	if app.closeLog != nil {
		app.closeLog()
		app.closeLog = nil
	}
	app.client = nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, data any, meta ...map[string]any) error {
	env := format.Envelope{Data: data}
	if len(meta) > 0 && meta[0] != nil {
		env.Meta = meta[0]
	}
	return format.Write(cmd.OutOrStdout(), env, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
