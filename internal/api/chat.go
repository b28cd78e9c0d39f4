package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"taskflow-cli/internal/model"
)

type ChatAPI struct{ c *Client }

type ChannelInput struct {
	Name    string            `json:"name,omitempty"`
	Type    model.ChannelType `json:"channel_type,omitempty"`
	Members []int             `json:"members,omitempty"`
}

func (a ChatAPI) ListChannels(ctx context.Context) ([]model.Channel, error) {
	p, err := getList[model.Channel](ctx, a.c, "channels/", nil)
	return p.Results, err
}

func (a ChatAPI) GetChannel(ctx context.Context, id int) (*model.Channel, error) {
	var out model.Channel
	if err := a.c.getJSON(ctx, fmt.Sprintf("channels/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a ChatAPI) ListMessages(ctx context.Context, channelID int) ([]model.Message, error) {
	p, err := getList[model.Message](ctx, a.c, fmt.Sprintf("channels/%d/messages/", channelID), nil)
	return p.Results, err
}

// SendMessage posts JSON {content} when there are no files. With files it posts multipart;
// the backend rejects empty content, so blank text is sent as a single space.
func (a ChatAPI) SendMessage(ctx context.Context, channelID int, content string, files []FileUpload) (*model.Message, error) {
	path := fmt.Sprintf("channels/%d/messages/", channelID)
	var out model.Message
	if len(files) == 0 {
		if err := a.c.sendJSON(ctx, http.MethodPost, path, map[string]string{"content": content}, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	text := strings.TrimSpace(content)
	if text == "" {
		text = " "
	}
	body, ct, err := multipartBody([]formField{{name: "content", value: text}}, "attachments", files)
	if err != nil {
		return nil, err
	}
	resp, err := a.c.do(ctx, request{method: http.MethodPost, path: path, body: body, contentType: ct})
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateChannel creates a direct or group channel. Naming a direct channel after the other
// member is the caller's job (see DirectChannelInput).
func (a ChatAPI) CreateChannel(ctx context.Context, in ChannelInput) (*model.Channel, error) {
	var out model.Channel
	if err := a.c.sendJSON(ctx, http.MethodPost, "channels/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DirectChannelInput builds the request for a direct channel with other; the name defaults
// to other's username.
func DirectChannelInput(name string, other model.UserMinimal) ChannelInput {
	name = strings.TrimSpace(name)
	if name == "" {
		name = other.Username
	}
	return ChannelInput{Name: name, Type: model.ChannelDirect, Members: []int{other.ID}}
}
