package perm

import "taskflow-cli/internal/model"

// Capability names one role flag.
type Capability string

const (
	ViewTasks        Capability = "can_view_tasks"
	CreateTasks      Capability = "can_create_tasks"
	EditTasks        Capability = "can_edit_tasks"
	DeleteTasks      Capability = "can_delete_tasks"
	AssignTasks      Capability = "can_assign_tasks"
	ChangeTaskStatus Capability = "can_change_task_status"
	AccessChat       Capability = "can_access_chat"
	ManageUsers      Capability = "can_manage_users"
)

// IsAdmin treats staff and superusers alike.
func IsAdmin(u *model.User) bool {
	return u != nil && (u.IsStaff || u.IsSuperuser)
}

// Can resolves a capability for UI gating only; the backend decides for real.
//
// Rules:
//   - With role detail present, the role's flag wins.
//   - Without it, admins can do everything and everyone else nothing.
func Can(u *model.User, c Capability) bool {
	if u == nil {
		return false
	}
	if u.RoleDetail == nil {
		return IsAdmin(u)
	}
	r := u.RoleDetail
	switch c {
	case ViewTasks:
		return r.CanViewTasks
	case CreateTasks:
		return r.CanCreateTasks
	case EditTasks:
		return r.CanEditTasks
	case DeleteTasks:
		return r.CanDeleteTasks
	case AssignTasks:
		return r.CanAssignTasks
	case ChangeTaskStatus:
		return r.CanChangeTaskStatus
	case AccessChat:
		return r.CanAccessChat
	case ManageUsers:
		return r.CanManageUsers
	default:
		return false
	}
}

// CanManageUsers gates the Users view. Admins pass regardless of role.
func CanManageUsers(u *model.User) bool {
	if IsAdmin(u) {
		return true
	}
	return u != nil && u.RoleDetail != nil && u.RoleDetail.CanManageUsers
}

// CanComment allows the task's creator and any assignee (legacy or multi) to comment.
func CanComment(u *model.User, t model.Task) bool {
	if u == nil || u.ID == 0 {
		return false
	}
	return t.CreatedBy == u.ID || t.IsAssignee(u.ID)
}
