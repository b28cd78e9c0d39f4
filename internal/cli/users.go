package cli

import (
	"errors"
	"strings"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/perm"

	"github.com/spf13/cobra"
)

var errNeedsUserAdmin = errors.New("permission denied: managing users requires staff or the can_manage_users role flag")

func newUsersCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "User commands",
	}
	cmd.AddCommand(newUsersListCmd(app))
	cmd.AddCommand(newUsersShowCmd(app))
	cmd.AddCommand(newUsersCreateCmd(app))
	cmd.AddCommand(newUsersUpdateCmd(app))
	return cmd
}

func newUsersListCmd(app *App) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users (--full for admin detail)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if full {
				if !perm.CanManageUsers(c.Session().User()) {
					return writeErr(cmd, errNeedsUserAdmin)
				}
				us, err := c.Users.ListFull(cmd.Context())
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, userTable(us), map[string]any{"count": len(us)})
			}
			us, err := c.Users.List(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, minimalUserTable(us), map[string]any{"count": len(us)})
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Full user records (admins only)")
	return cmd
}

func newUsersShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("user", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			u, err := c.Users.Get(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "user", id))
			}
			return writeOut(cmd, app, u)
		},
	}
}

func newUsersCreateCmd(app *App) *cobra.Command {
	var (
		in       api.UserInput
		role     int
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user (admins only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if !perm.CanManageUsers(c.Session().User()) {
				return writeErr(cmd, errNeedsUserAdmin)
			}
			in.Username = strings.TrimSpace(in.Username)
			in.Email = strings.TrimSpace(in.Email)
			if in.Username == "" || in.Password == "" {
				return writeErr(cmd, errors.New("missing --username or --password"))
			}
			if role > 0 {
				in.Role = &role
			}
			if inactive {
				active := false
				in.IsActive = &active
			}
			u, err := c.Users.Create(cmd.Context(), in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, u)
		},
	}

	cmd.Flags().StringVar(&in.Username, "username", "", "Username")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email")
	cmd.Flags().StringVar(&in.Password, "password", "", "Initial password")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Last name")
	cmd.Flags().IntVar(&role, "role", 0, "Role id")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the account disabled")
	return cmd
}

func newUsersUpdateCmd(app *App) *cobra.Command {
	var (
		role      int
		clearRole bool
		active    bool
		firstName string
		lastName  string
		email     string
	)

	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Update a user (admins only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("user", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if !perm.CanManageUsers(c.Session().User()) {
				return writeErr(cmd, errNeedsUserAdmin)
			}

			var patch api.UserPatch
			flags := cmd.Flags()
			if flags.Changed("role") {
				patch.Role = &role
			}
			patch.ClearRole = clearRole
			if flags.Changed("active") {
				patch.IsActive = &active
			}
			if flags.Changed("first-name") {
				patch.FirstName = &firstName
			}
			if flags.Changed("last-name") {
				patch.LastName = &lastName
			}
			if flags.Changed("email") {
				patch.Email = &email
			}
			if me := c.Session().User(); me != nil && me.ID == id && patch.IsActive != nil && !*patch.IsActive {
				return writeErr(cmd, errors.New("you cannot deactivate your own account"))
			}
			if patch == (api.UserPatch{}) {
				return writeErr(cmd, errors.New("nothing to update; pass at least one field flag"))
			}

			u, err := c.Users.Update(cmd.Context(), id, patch)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "user", id))
			}
			if me := c.Session().User(); me != nil && me.ID == u.ID {
				_ = c.Session().SetUser(cmd.Context(), u)
			}
			return writeOut(cmd, app, u)
		},
	}

	cmd.Flags().IntVar(&role, "role", 0, "Role id")
	cmd.Flags().BoolVar(&clearRole, "clear-role", false, "Remove the role")
	cmd.Flags().BoolVar(&active, "active", true, "Account enabled (--active=false disables)")
	cmd.Flags().StringVar(&firstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&email, "email", "", "Email")
	return cmd
}

func newRolesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Role commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			rs, err := c.Roles.List(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, rs)
		},
	})
	return cmd
}
