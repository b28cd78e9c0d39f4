package cli

import (
	"encoding/json"
	"errors"
	"os/signal"
	"strings"
	"syscall"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/keyset"
	"taskflow-cli/internal/live"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/views"

	"github.com/spf13/cobra"
)

func newChatCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat commands",
	}
	channels := &cobra.Command{
		Use:   "channels",
		Short: "Chat channel commands",
	}
	channels.AddCommand(newChannelsListCmd(app))
	channels.AddCommand(newChannelsShowCmd(app))
	channels.AddCommand(newChannelsCreateCmd(app))
	messages := &cobra.Command{
		Use:   "messages",
		Short: "Chat message commands",
	}
	messages.AddCommand(newMessagesListCmd(app))

	cmd.AddCommand(channels)
	cmd.AddCommand(messages)
	cmd.AddCommand(newChatSendCmd(app))
	cmd.AddCommand(newChatWatchCmd(app))
	return cmd
}

func channelRows(chs []model.Channel, me int) channelTable {
	out := make(channelTable, 0, len(chs))
	for _, ch := range chs {
		out = append(out, channelRow{Channel: ch, DisplayName: views.ChannelDisplayName(ch, me), Subtitle: views.ChannelSubtitle(ch)})
	}
	return out
}

func currentUserID(c *api.Client) int {
	if u := c.Session().User(); u != nil {
		return u.ID
	}
	return 0
}

func newChannelsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List my channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			chs, err := c.Chat.ListChannels(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, channelRows(chs, currentUserID(c)), map[string]any{"count": len(chs)})
		},
	}
}

func newChannelsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <channel-id>",
		Short: "Show a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("channel", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ch, err := c.Chat.GetChannel(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "channel", id))
			}
			return writeOut(cmd, app, channelRows([]model.Channel{*ch}, currentUserID(c))[0])
		},
	}
}

func newChannelsCreateCmd(app *App) *cobra.Command {
	var (
		direct  int
		group   bool
		name    string
		members []int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a direct (--direct <user-id>) or group (--group --name --member) channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (direct > 0) == group {
				return writeErr(cmd, errors.New("pass exactly one of --direct <user-id> or --group"))
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()

			var in api.ChannelInput
			if direct > 0 {
				users, err := c.Users.List(ctx)
				if err != nil {
					return writeErr(cmd, err)
				}
				other := model.UserMinimal{ID: direct}
				found := false
				for _, u := range users {
					if u.ID == direct {
						other, found = u, true
						break
					}
				}
				if !found {
					return writeErr(cmd, errNotFound("user", direct))
				}
				in = api.DirectChannelInput(strings.TrimSpace(name), other)
			} else {
				name = strings.TrimSpace(name)
				if name == "" {
					return writeErr(cmd, errors.New("missing --name for a group channel"))
				}
				in = api.ChannelInput{Name: name, Type: model.ChannelGroup, Members: members}
			}

			ch, err := c.Chat.CreateChannel(ctx, in)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, channelRows([]model.Channel{*ch}, currentUserID(c))[0])
		},
	}

	cmd.Flags().IntVar(&direct, "direct", 0, "Other user's id for a direct channel")
	cmd.Flags().BoolVar(&group, "group", false, "Create a group channel")
	cmd.Flags().StringVar(&name, "name", "", "Channel name")
	cmd.Flags().IntSliceVar(&members, "member", nil, "Member user id (repeatable)")
	return cmd
}

func newMessagesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <channel-id>",
		Short: "List a channel's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("channel", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			msgs, err := c.Chat.ListMessages(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "channel", id))
			}
			return writeOut(cmd, app, msgs, map[string]any{"count": len(msgs)})
		},
	}
}

func newChatSendCmd(app *App) *cobra.Command {
	var (
		text  string
		files []string
	)

	cmd := &cobra.Command{
		Use:   "send <channel-id>",
		Short: "Send a message with optional file attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("channel", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(text) == "" && len(files) == 0 {
				return writeErr(cmd, errors.New("nothing to send; pass --text and/or --file"))
			}
			uploads := make([]api.FileUpload, 0, len(files))
			for _, p := range files {
				f, err := api.FileFromPath(p)
				if err != nil {
					return writeErr(cmd, err)
				}
				uploads = append(uploads, f)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			m, err := c.Chat.SendMessage(cmd.Context(), id, text, uploads)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "channel", id))
			}
			return writeOut(cmd, app, m)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Message text")
	cmd.Flags().StringSliceVar(&files, "file", nil, "File to attach (repeatable)")
	return cmd
}

func newChatWatchCmd(app *App) *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "watch <channel-id>",
		Short: "Stream a channel's messages as JSON lines until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("channel", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			msgs := keyset.NewList(live.MessageKey)
			enc := json.NewEncoder(cmd.OutOrStdout())
			if history {
				initial, err := c.Chat.ListMessages(ctx, id)
				if err != nil {
					return writeErr(cmd, orNotFound(err, "channel", id))
				}
				msgs.Reset(initial)
				for _, m := range initial {
					_ = enc.Encode(m)
				}
			}
			consumer := live.NewChat(app.liveDeps(c), id, msgs, func(m model.Message) {
				_ = enc.Encode(m)
			})
			consumer.Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Print existing messages before streaming")
	return cmd
}
