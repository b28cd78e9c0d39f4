package cli

import (
	"strconv"
	"strings"

	"taskflow-cli/internal/model"
	"taskflow-cli/internal/statusutil"
	"taskflow-cli/internal/views"
)

// Named slices give list payloads a table rendering; their JSON is unchanged.

type taskTable []model.Task

func (t taskTable) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(t))
	for _, x := range t {
		deadline := "-"
		if x.Deadline != nil {
			deadline = x.Deadline.Local().Format("2006-01-02 15:04")
		}
		flag := ""
		if x.IsOverdue {
			flag = "overdue"
		}
		names := make([]string, 0, len(x.AssigneeUsers()))
		for _, u := range x.AssigneeUsers() {
			names = append(names, u.Username)
		}
		rows = append(rows, []string{
			strconv.Itoa(x.ID),
			views.Truncate(x.Title, 48),
			statusutil.StatusLabel(x.Status),
			statusutil.PriorityLabel(x.Priority),
			deadline,
			strings.Join(names, ", "),
			flag,
		})
	}
	return []string{"ID", "TITLE", "STATUS", "PRIORITY", "DEADLINE", "ASSIGNEES", ""}, rows
}

type userTable []model.User

func (t userTable) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(t))
	for _, u := range t {
		role := "-"
		if u.RoleDetail != nil {
			role = u.RoleDetail.Name
		}
		rows = append(rows, []string{strconv.Itoa(u.ID), u.Username, u.DisplayName(), u.Email, role, strconv.FormatBool(u.IsActive)})
	}
	return []string{"ID", "USERNAME", "NAME", "EMAIL", "ROLE", "ACTIVE"}, rows
}

type minimalUserTable []model.UserMinimal

func (t minimalUserTable) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(t))
	for _, u := range t {
		rows = append(rows, []string{strconv.Itoa(u.ID), u.Username, u.Email})
	}
	return []string{"ID", "USERNAME", "EMAIL"}, rows
}

type channelRow struct {
	model.Channel
	DisplayName string `json:"display_name"`
	Subtitle    string `json:"subtitle"`
}

type channelTable []channelRow

func (t channelTable) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(t))
	for _, c := range t {
		rows = append(rows, []string{strconv.Itoa(c.ID), c.DisplayName, string(c.ChannelType), c.Subtitle})
	}
	return []string{"ID", "NAME", "TYPE", "LAST MESSAGE"}, rows
}

type notificationTable []model.Notification

func (t notificationTable) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(t))
	for _, n := range t {
		read := ""
		if !n.Read {
			read = "•"
		}
		rows = append(rows, []string{strconv.Itoa(n.ID), read, n.NotificationType, n.Title, views.Truncate(n.Message, 60)})
	}
	return []string{"ID", "", "TYPE", "TITLE", "MESSAGE"}, rows
}
