package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"taskflow-cli/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A replay that is rejected again must surface as an APIError without a second refresh.
func TestDo_ReplayRejectedAgainIsNotRetried(t *testing.T) {
	var refreshes, hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh/":
			refreshes.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access":"fresh"}`))
		default:
			hits.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"nope"}`))
		}
	}))
	defer srv.Close()

	sess := session.New(nil, nil)
	expired := 0
	c, err := New(sess, Options{APIURL: srv.URL, OnSessionExpired: func() { expired++ }})
	require.NoError(t, err)
	require.NoError(t, sess.SetAuth(context.Background(), "stale", "r", nil))

	_, err = c.Notifications.List(context.Background())
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Equal(t, "nope", ae.Message())
	assert.EqualValues(t, 1, refreshes.Load())
	assert.EqualValues(t, 2, hits.Load())
	assert.Zero(t, expired)
	assert.Equal(t, "fresh", sess.AccessToken())
}

func TestNewAPIError_Shapes(t *testing.T) {
	e := newAPIError(400, []byte(`{"title":["This field may not be blank."],"detail":"ignored when fields exist","deadline":"Invalid date."}`))
	assert.Equal(t, "This field may not be blank. Invalid date.", e.Message())
	assert.Equal(t, []string{"Invalid date."}, e.Fields["deadline"])

	e = newAPIError(403, []byte(`{"detail":"You do not have permission to perform this action."}`))
	assert.Equal(t, "You do not have permission to perform this action.", e.Message())

	e = newAPIError(500, []byte(`<html>oops</html>`))
	assert.Equal(t, "request failed with status 500", e.Message())

	e = newAPIError(400, []byte(`["Channel already exists."]`))
	assert.Equal(t, "Channel already exists.", e.Message())
}
