package model

import (
	"strings"
	"time"
)

// Role is a capability bundle attached to a user.
type Role struct {
	ID                  int    `json:"id"`
	Name                string `json:"name"`
	CanViewTasks        bool   `json:"can_view_tasks"`
	CanCreateTasks      bool   `json:"can_create_tasks"`
	CanEditTasks        bool   `json:"can_edit_tasks"`
	CanDeleteTasks      bool   `json:"can_delete_tasks"`
	CanAssignTasks      bool   `json:"can_assign_tasks"`
	CanChangeTaskStatus bool   `json:"can_change_task_status"`
	CanAccessChat       bool   `json:"can_access_chat"`
	CanManageUsers      bool   `json:"can_manage_users"`
}

type User struct {
	ID          int       `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	IsStaff     bool      `json:"is_staff,omitempty"`
	IsSuperuser bool      `json:"is_superuser,omitempty"`
	Role        *int      `json:"role"`
	RoleDetail  *Role     `json:"role_detail,omitempty"`
	IsActive    bool      `json:"is_active"`
	DateJoined  time.Time `json:"date_joined"`
}

// DisplayName prefers "First Last", then username, then email.
func (u User) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if full != "" {
		return full
	}
	if s := strings.TrimSpace(u.Username); s != "" {
		return s
	}
	return strings.TrimSpace(u.Email)
}

// Minimal returns the user reduced to the fields embedded in task payloads.
func (u User) Minimal() TaskUser {
	return TaskUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// TaskUser is the minimal user shape embedded in tasks, comments and user lists.
type TaskUser struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserMinimal is what `GET auth/users/` returns to non-admins.
type UserMinimal = TaskUser

// UserRef is the {id, username} pair used by chat payloads and status history.
type UserRef struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}
