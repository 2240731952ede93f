package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestComments_CreateListAndNotify(t *testing.T) {
	ts := newTestServer(t, false)
	_, owner := ts.register(t, "owner@example.com", "Owner")
	_, guest := ts.register(t, "guest@example.com", "Guest")
	postID := ts.createPost(t, owner, "hello")

	status, body := ts.doJSON(t, http.MethodPost, "/api/posts/"+postID+"/comments", guest, map[string]string{"text": "  first!  "})
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.Equal(t, "first!", gjson.GetBytes(body, "text").String())

	status, _ = ts.doJSON(t, http.MethodPost, "/api/posts/"+postID+"/comments", owner, map[string]string{"text": "thanks"})
	require.Equal(t, http.StatusCreated, status)

	status, body = ts.doJSON(t, http.MethodPost, "/api/posts/"+postID+"/comments", guest, map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", gjson.GetBytes(body, "code").String())

	status, _ = ts.doJSON(t, http.MethodPost, "/api/posts/missing/comments", guest, map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = ts.doJSON(t, http.MethodGet, "/api/posts/"+postID+"/comments", guest, nil)
	require.Equal(t, http.StatusOK, status)
	comments := gjson.ParseBytes(body).Array()
	require.Len(t, comments, 2)
	assert.Equal(t, "thanks", comments[0].Get("text").String())
	assert.Equal(t, "Owner", comments[0].Get("user.name").String())
	assert.Equal(t, "Guest", comments[1].Get("user.name").String())

	// Only the guest's comment reaches the owner's inbox.
	require.NoError(t, ts.srv.dispatcher.Shutdown(t.Context()))
	status, body = ts.doJSON(t, http.MethodGet, "/api/notifications", owner, nil)
	require.Equal(t, http.StatusOK, status)
	list := gjson.ParseBytes(body).Array()
	require.Len(t, list, 1)
	assert.Equal(t, "comment", list[0].Get("type").String())
	assert.Equal(t, "Guest", list[0].Get("from_user_name").String())

	status, _ = ts.doJSON(t, http.MethodGet, "/api/posts/missing/comments", guest, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMarkNotificationRead(t *testing.T) {
	ts := newTestServer(t, false)
	_, owner := ts.register(t, "owner@example.com", "Owner")
	_, fan := ts.register(t, "fan@example.com", "Fan")
	postID := ts.createPost(t, owner, "hello")

	status, _ := ts.doJSON(t, http.MethodPost, "/api/posts/"+postID+"/like", fan, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, ts.srv.dispatcher.Shutdown(t.Context()))

	status, body := ts.doJSON(t, http.MethodGet, "/api/notifications", owner, nil)
	require.Equal(t, http.StatusOK, status)
	id := gjson.GetBytes(body, "0.id").String()
	require.NotEmpty(t, id)
	assert.False(t, gjson.GetBytes(body, "0.is_read").Bool())
	assert.Equal(t, int64(1), ts.unreadCount(t, owner))

	for range 2 {
		status, body = ts.doJSON(t, http.MethodPut, "/api/notifications/"+id+"/read", owner, nil)
		require.Equal(t, http.StatusOK, status, string(body))
		assert.True(t, gjson.GetBytes(body, "is_read").Bool())
	}
	assert.Equal(t, int64(0), ts.unreadCount(t, owner))

	// The fan's inbox does not contain the owner's notification.
	status, _ = ts.doJSON(t, http.MethodPut, "/api/notifications/"+id+"/read", fan, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
