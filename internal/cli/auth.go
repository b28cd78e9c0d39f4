package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(app *App) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			username = strings.TrimSpace(username)
			if username == "" {
				return writeErr(cmd, errors.New("missing --username"))
			}
			if password == "" {
				password = os.Getenv("TASKFLOW_PASSWORD")
			}
			if password == "" {
				p, err := promptPassword(cmd)
				if err != nil {
					return writeErr(cmd, err)
				}
				password = p
			}

			ctx := cmd.Context()
			res, err := c.Auth.Login(ctx, username, password)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Session().SetAuth(ctx, res.Access, res.Refresh, res.User); err != nil {
				return writeErr(cmd, fmt.Errorf("save session: %w", err))
			}
			return writeOut(cmd, app, res.User, map[string]any{
				"expires_at": c.Session().Expiry(),
				"api_url":    app.cfg.APIURL,
			})
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password (default: $TASKFLOW_PASSWORD, else prompt)")
	return cmd
}

// promptPassword reads without echo on a terminal, or one line from stdin otherwise.
func promptPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", errors.New("missing password")
		}
	}
	return line, nil
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.connect(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			was := c.Session().LoggedIn()
			c.Session().Logout(cmd.Context())
			return writeOut(cmd, app, map[string]any{"logged_out": was})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			sess := c.Session()
			u := sess.User()
			if refresh || u == nil {
				if u == nil {
					return writeErr(cmd, errors.New("session has no user; run `taskflow login`"))
				}
				fresh, err := c.Users.Get(cmd.Context(), u.ID)
				if err != nil {
					return writeErr(cmd, err)
				}
				if err := sess.SetUser(cmd.Context(), fresh); err != nil {
					return writeErr(cmd, err)
				}
				u = fresh
			}
			return writeOut(cmd, app, u, map[string]any{"expires_at": sess.Expiry()})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Refetch the user from the backend")
	return cmd
}
