package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/forum/internal/model"
)

func TestClientNew(t *testing.T) {
	c := New("https://example.com")
	require.Equal(t, "https://example.com", c.BaseURL)
	require.NotNil(t, c.HTTPClient)
	require.False(t, c.IsAuthenticated())
}

func TestRegisterKeepsToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/users", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
		_ = json.NewEncoder(w).Encode(map[string]string{"username": "alice", "token": "tok"})
	}))
	defer ts.Close()

	c := New(ts.URL)
	u, err := c.Register("alice", "a@example.com", "password1")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, "tok", c.Token)
	require.True(t, c.IsAuthenticated())
}

func TestBearerAndPaths(t *testing.T) {
	var seen []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.EscapedPath())
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = fmt.Fprint(w, `{"count":3}`)
	}))
	defer ts.Close()

	c := New(ts.URL)
	c.Token = "tok"
	n, err := c.VoteComment("hello-world", model.CommentID(71))
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	_, err = c.UnvoteThread("a b")
	require.NoError(t, err)

	require.Equal(t, []string{
		"POST /api/threads/hello-world/comments/1z/vote",
		"DELETE /api/threads/a%20b/vote",
	}, seen)
}

func TestAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprintln(w, `{"error":"not found"}`)
	}))
	defer ts.Close()

	_, err := New(ts.URL).GetThread("missing")
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, StatusCode(err))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, `get thread failed (404): {"error":"not found"}`, apiErr.Error())

	require.Zero(t, StatusCode(errors.New("plain")))
}
