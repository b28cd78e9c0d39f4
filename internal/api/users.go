package api

import (
	"context"
	"fmt"
	"net/http"

	"taskflow-cli/internal/model"
)

type UsersAPI struct{ c *Client }

type RolesAPI struct{ c *Client }

type UserInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      *int   `json:"role,omitempty"`
	IsActive  *bool  `json:"is_active,omitempty"`
}

// UserPatch updates only the non-nil fields. ClearRole sends role=null.
type UserPatch struct {
	Role      *int    `json:"role,omitempty"`
	ClearRole bool    `json:"-"`
	IsActive  *bool   `json:"is_active,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
}

func (p UserPatch) body() map[string]any {
	m := map[string]any{}
	if p.ClearRole {
		m["role"] = nil
	} else if p.Role != nil {
		m["role"] = *p.Role
	}
	if p.IsActive != nil {
		m["is_active"] = *p.IsActive
	}
	if p.FirstName != nil {
		m["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		m["last_name"] = *p.LastName
	}
	if p.Email != nil {
		m["email"] = *p.Email
	}
	return m
}

// List returns the minimal user shape visible to every authenticated user.
func (u UsersAPI) List(ctx context.Context) ([]model.UserMinimal, error) {
	p, err := getList[model.UserMinimal](ctx, u.c, "auth/users/", nil)
	return p.Results, err
}

// ListFull returns users with role and flags; the backend only fills these for managers.
func (u UsersAPI) ListFull(ctx context.Context) ([]model.User, error) {
	p, err := getList[model.User](ctx, u.c, "auth/users/", nil)
	return p.Results, err
}

func (u UsersAPI) Get(ctx context.Context, id int) (*model.User, error) {
	var out model.User
	if err := u.c.getJSON(ctx, fmt.Sprintf("auth/users/%d/", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u UsersAPI) Create(ctx context.Context, in UserInput) (*model.User, error) {
	var out model.User
	if err := u.c.sendJSON(ctx, http.MethodPost, "auth/users/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (u UsersAPI) Update(ctx context.Context, id int, patch UserPatch) (*model.User, error) {
	var out model.User
	if err := u.c.sendJSON(ctx, http.MethodPatch, fmt.Sprintf("auth/users/%d/", id), patch.body(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r RolesAPI) List(ctx context.Context) ([]model.Role, error) {
	p, err := getList[model.Role](ctx, r.c, "auth/roles/", nil)
	return p.Results, err
}
