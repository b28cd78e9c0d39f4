package api

import (
	"context"
	"fmt"
	"net/http"

	"taskflow-cli/internal/model"
)

type NotificationsAPI struct{ c *Client }

func (n NotificationsAPI) List(ctx context.Context) ([]model.Notification, error) {
	p, err := getList[model.Notification](ctx, n.c, "notifications/", nil)
	return p.Results, err
}

func (n NotificationsAPI) MarkRead(ctx context.Context, id int) error {
	return n.c.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("notifications/%d/read/", id), nil, nil)
}

func (n NotificationsAPI) MarkAllRead(ctx context.Context) error {
	return n.c.sendJSON(ctx, http.MethodPost, "notifications/mark_all_read/", nil, nil)
}
