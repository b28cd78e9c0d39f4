package api

import (
	"context"
	"encoding/json"
	"net/http"

	"taskflow-cli/internal/model"
)

type AuthAPI struct{ c *Client }

type LoginResult struct {
	Access  string      `json:"access"`
	Refresh string      `json:"refresh"`
	User    *model.User `json:"user"`
}

type RefreshResult struct {
	Access string      `json:"access"`
	User   *model.User `json:"user,omitempty"`
}

// Login exchanges credentials for a token pair. It does not touch the session; callers store
// the result with session.Store.SetAuth.
func (a AuthAPI) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	err := a.c.unauthenticatedJSON(ctx, "auth/login/", map[string]string{
		"username": username,
		"password": password,
	}, &out)
	return out, err
}

func (a AuthAPI) Refresh(ctx context.Context, refresh string) (RefreshResult, error) {
	var out RefreshResult
	err := a.c.unauthenticatedJSON(ctx, "auth/refresh/", map[string]string{"refresh": refresh}, &out)
	return out, err
}

func (c *Client) unauthenticatedJSON(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        path,
		body:        b,
		contentType: "application/json",
		noAuth:      true,
	})
	if err != nil {
		return err
	}
	return decodeInto(resp.body, out)
}
