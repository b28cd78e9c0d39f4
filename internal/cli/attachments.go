package cli

import (
	"errors"
	"path/filepath"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/preview"
	"taskflow-cli/internal/store"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newAttachmentsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attachments",
		Short: "Task attachment commands",
	}
	cmd.AddCommand(newAttachmentsListCmd(app))
	cmd.AddCommand(newAttachmentsUploadCmd(app))
	cmd.AddCommand(newAttachmentsDeleteCmd(app))
	cmd.AddCommand(newAttachmentsDownloadCmd(app))
	cmd.AddCommand(newAttachmentsPreviewCmd(app))
	return cmd
}

func newAttachmentsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list <task-id>",
		Short: "List a task's attachments",
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
			xs, err := c.Attachments.List(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "task", id))
			}
			return writeOut(cmd, app, xs, map[string]any{"count": len(xs)})
		},
	}
}

func newAttachmentsUploadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <task-id> <path>",
		Short: "Upload a file to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("task", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			f, err := api.FileFromPath(args[1])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			a, err := c.Attachments.Upload(cmd.Context(), id, f)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "task", id))
			}
			return writeOut(cmd, app, a, map[string]any{
				"size": humanize.Bytes(uint64(len(f.Data))),
				"kind": preview.Classify(a.Filename),
			})
		},
	}
}

func newAttachmentsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <attachment-id>",
		Short: "Delete an attachment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("attachment", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := c.Attachments.Delete(cmd.Context(), id); err != nil {
				return writeErr(cmd, orNotFound(err, "attachment", id))
			}
			return writeOut(cmd, app, map[string]any{"id": id, "deleted": true})
		},
	}
}

func newAttachmentsDownloadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "download <attachment-id> <dest>",
		Short: "Download an attachment's bytes to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("attachment", args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			dest := filepath.Clean(args[1])
			if dest == "." || dest == "" {
				return writeErr(cmd, errors.New("missing dest"))
			}
			c, err := app.authed(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			b, contentType, err := c.Attachments.Fetch(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "attachment", id))
			}
			if err := store.WriteFile(dest, b, 0o644); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"id":           id,
				"path":         dest,
				"bytes":        len(b),
				"size":         humanize.Bytes(uint64(len(b))),
				"content_type": contentType,
			})
		},
	}
}

type previewEntry struct {
	ID       int          `json:"id"`
	Filename string       `json:"filename"`
	Kind     preview.Kind `json:"kind"`
	URL      string       `json:"url"`
	Path     string       `json:"path,omitempty"`
}

func newAttachmentsPreviewCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <task-id>",
		Short: "Classify a task's attachments and download PDFs for viewing",
		Long:  "Images are listed by URL. PDFs are fetched with the session token and written to a temp dir; the files are left in place for a viewer to open.",
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
			atts, err := c.Attachments.List(cmd.Context(), id)
			if err != nil {
				return writeErr(cmd, orNotFound(err, "task", id))
			}
			cache := preview.NewCache(c.Attachments, app.log)
			if err := cache.Sync(cmd.Context(), atts); err != nil {
				return writeErr(cmd, err)
			}

			out := make([]previewEntry, 0, len(atts))
			for _, a := range atts {
				e := previewEntry{ID: a.ID, Filename: a.Filename, Kind: preview.Classify(a.Filename), URL: preview.URL(c.Origin(), a.File)}
				if e.Kind == preview.KindPDF {
					e.Path, _ = cache.Path(a.ID)
				}
				out = append(out, e)
			}
			return writeOut(cmd, app, out, map[string]any{"pdfs": cache.Len()})
		},
	}
}
