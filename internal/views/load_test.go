package views_test

import (
	"context"
	"testing"
	"time"

	"taskflow-cli/internal/api"
	"taskflow-cli/internal/apitest"
	"taskflow-cli/internal/model"
	"taskflow-cli/internal/session"
	"taskflow-cli/internal/views"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDashboard_OverdueMatchesBadge(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()
	sess := session.New(nil, nil)
	c, err := api.New(sess, api.Options{APIURL: srv.URL})
	require.NoError(t, err)
	access, refresh := srv.IssueTokens(apitest.AdaID)
	require.NoError(t, sess.SetAuth(ctx, access, refresh, &model.User{ID: apitest.AdaID, Username: "ada"}))

	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(72 * time.Hour)
	for i := 0; i < 3; i++ {
		srv.AddTask(model.Task{Title: "late", Deadline: &past, Assignees: model.IDList{apitest.AdaID}, CreatedBy: apitest.AdminID})
	}
	srv.AddTask(model.Task{Title: "soon", Deadline: &future, Assignees: model.IDList{apitest.AdaID}, CreatedBy: apitest.AdminID})
	srv.AddTask(model.Task{Title: "someone else", Deadline: &past, Assignees: model.IDList{apitest.GraceID}, CreatedBy: apitest.AdminID})

	sum, err := views.LoadDashboard(ctx, c.Tasks, 2, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, sum.MyTasks)
	assert.Len(t, sum.Overdue, 3)
	assert.Len(t, sum.Upcoming, 1)
	assert.Equal(t, 2, sum.Unread)

	mine, err := c.Tasks.List(ctx, api.TaskListParams{MyTasks: true})
	require.NoError(t, err)
	assert.Equal(t, "3", views.Badge(views.OverdueCount(mine.Results)))

	assert.Len(t, srv.Requests("GET /api/tasks/"), 3)
}
