package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"taskflow-cli/internal/model"
)

type AttachmentsAPI struct{ c *Client }

func (a AttachmentsAPI) List(ctx context.Context, taskID int) ([]model.Attachment, error) {
	q := url.Values{"task_id": {strconv.Itoa(taskID)}}
	p, err := getList[model.Attachment](ctx, a.c, "attachments/", q)
	return p.Results, err
}

// Upload posts multipart fields file and task.
func (a AttachmentsAPI) Upload(ctx context.Context, taskID int, f FileUpload) (*model.Attachment, error) {
	body, ct, err := multipartBody([]formField{{name: "task", value: strconv.Itoa(taskID)}}, "file", []FileUpload{f})
	if err != nil {
		return nil, err
	}
	resp, err := a.c.do(ctx, request{method: http.MethodPost, path: "attachments/", body: body, contentType: ct})
	if err != nil {
		return nil, err
	}
	var out model.Attachment
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a AttachmentsAPI) Delete(ctx context.Context, id int) error {
	return a.c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("attachments/%d/", id), nil, nil)
}

// Fetch downloads the attachment bytes with the session's credentials.
func (a AttachmentsAPI) Fetch(ctx context.Context, id int) ([]byte, string, error) {
	return a.c.getBytes(ctx, fmt.Sprintf("attachments/%d/file/", id))
}
