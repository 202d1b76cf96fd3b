package httpapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/forum/internal/auth"
	"github.com/alphabot-ai/forum/internal/client"
	"github.com/alphabot-ai/forum/internal/config"
	"github.com/alphabot-ai/forum/internal/store"
	"github.com/alphabot-ai/forum/internal/store/sqlite"
)

var testSecret = []byte("test-secret")

type testClient struct {
	server *httptest.Server
	client *http.Client
	api    *Server
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	return newTestClientWithConfig(t, config.Config{})
}

func newTestClientWithConfig(t *testing.T, cfg config.Config) *testClient {
	t.Helper()
	dsnName := strings.NewReplacer("/", "_").Replace(t.Name())
	st, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", dsnName))
	require.NoError(t, err, "open store")
	return newTestClientWithStore(t, cfg, st)
}

func newTestClientWithStore(t *testing.T, cfg config.Config, st store.Store) *testClient {
	t.Helper()
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = auth.DefaultTTL
	}
	server := NewServer(st, auth.NewService(testSecret, cfg.TokenTTL), cfg, nil)
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
		_ = st.Close()
	})
	return &testClient{server: ts, client: ts.Client(), api: server}
}

func (c *testClient) do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (c *testClient) user(t *testing.T, name string) *client.Client {
	t.Helper()
	cl, err := client.NewTestHelper(c.server.URL).CreateAuthenticatedClient(name)
	require.NoError(t, err)
	return cl
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeJSON[T any](t *testing.T, resp *http.Response, out *T) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func fieldErrors(t *testing.T, resp *http.Response) map[string][]string {
	t.Helper()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	decodeJSON(t, resp, &body)
	return body.Errors
}

func TestThreadVoteScenario(t *testing.T) {
	tc := newTestClient(t)
	alice := tc.user(t, "alice")
	anon := client.New(tc.server.URL)

	thread, err := alice.CreateThread("Hello, World!", "first post")
	require.NoError(t, err)
	require.Equal(t, "hello-world", thread.Slug)
	require.Equal(t, "alice", thread.Username)

	got, err := anon.GetThread("hello-world")
	require.NoError(t, err)
	require.False(t, got.IsVoted)
	require.Zero(t, got.VoteCount)

	count, err := alice.VoteThread("hello-world")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	got, err = alice.GetThread("hello-world")
	require.NoError(t, err)
	require.True(t, got.IsVoted)
	require.EqualValues(t, 1, got.VoteCount)

	got, err = anon.GetThread("hello-world")
	require.NoError(t, err)
	require.False(t, got.IsVoted)
	require.EqualValues(t, 1, got.VoteCount)

	count, err = alice.VoteThread("hello-world")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, err = anon.ThreadVotes("hello-world")
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	count, err = alice.UnvoteThread("hello-world")
	require.NoError(t, err)
	require.Zero(t, count)
	count, err = alice.UnvoteThread("hello-world")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCommentTreeScenario(t *testing.T) {
	tc := newTestClient(t)
	alice := tc.user(t, "alice")
	bob := tc.user(t, "bob")

	_, err := alice.CreateThread("Trees", "")
	require.NoError(t, err)

	c1, err := alice.PostComment("trees", "root")
	require.NoError(t, err)
	require.Nil(t, c1.ParentID)

	c2, err := bob.Reply("trees", c1.ID, "reply")
	require.NoError(t, err)
	require.NotNil(t, c2.ParentID)
	require.Equal(t, c1.ID, *c2.ParentID)

	children, err := alice.ListChildren("trees", c1.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	require.Equal(t, c2.ID, children[0].ID)
	require.Equal(t, "bob", children[0].Username)

	top, err := alice.ListComments("trees")
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.Equal(t, c1.ID, top[0].ID)

	count, err := alice.VoteComment("trees", c2.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	got, err := alice.GetComment("trees", c2.ID)
	require.NoError(t, err)
	require.True(t, got.IsVoted)
	got, err = bob.GetComment("trees", c2.ID)
	require.NoError(t, err)
	require.False(t, got.IsVoted)
	require.EqualValues(t, 1, got.VoteCount)

	count, err = alice.UnvoteComment("trees", c2.ID)
	require.NoError(t, err)
	require.Zero(t, count)

	// The wire form of ids is base 36.
	resp := tc.do(t, http.MethodGet, "/api/threads/trees/comments/"+c1.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var raw map[string]any
	decodeJSON(t, resp, &raw)
	require.Equal(t, c1.ID.String(), raw["id"])
	require.Nil(t, raw["parent_id"])
}

func TestCrossThreadReplyNotFound(t *testing.T) {
	tc := newTestClient(t)
	alice := tc.user(t, "alice")
	_, err := alice.CreateThread("One", "")
	require.NoError(t, err)
	_, err = alice.CreateThread("Two", "")
	require.NoError(t, err)

	c, err := alice.PostComment("one", "x")
	require.NoError(t, err)

	_, err = alice.Reply("two", c.ID, "y")
	require.Equal(t, http.StatusNotFound, client.StatusCode(err))
	_, err = alice.VoteComment("two", c.ID)
	require.Equal(t, http.StatusNotFound, client.StatusCode(err))
	_, err = alice.PostComment("missing", "x")
	require.Equal(t, http.StatusNotFound, client.StatusCode(err))
}

func TestAuthRequiredForWrites(t *testing.T) {
	tc := newTestClient(t)
	alice := tc.user(t, "alice")
	_, err := alice.CreateThread("Guarded", "")
	require.NoError(t, err)
	c, err := alice.PostComment("guarded", "x")
	require.NoError(t, err)
	commentPath := "/api/threads/guarded/comments/" + c.ID.String()

	writes := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/users", nil},
		{http.MethodPost, "/api/threads", map[string]string{"title": "t", "content": "c"}},
		{http.MethodPost, "/api/threads/guarded/vote", nil},
		{http.MethodDelete, "/api/threads/guarded/vote", nil},
		{http.MethodPost, "/api/threads/guarded/comments", map[string]string{"content": "c"}},
		{http.MethodPost, commentPath + "/children", map[string]string{"content": "c"}},
		{http.MethodPost, commentPath + "/vote", nil},
		{http.MethodDelete, commentPath + "/vote", nil},
		{http.MethodPost, "/api/profiles/alice/follow", nil},
		{http.MethodDelete, "/api/profiles/alice/follow", nil},
	}
	headers := map[string]map[string]string{
		"missing":      nil,
		"wrong scheme": {"Authorization": "Token " + alice.Token},
		"bad token":    bearer("garbage"),
		"foreign key":  bearer(mustForeignToken(t)),
	}
	for name, h := range headers {
		for _, w := range writes {
			resp := tc.do(t, w.method, w.path, w.body, h)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s with %s", w.method, w.path, name)
			var body map[string]string
			decodeJSON(t, resp, &body)
			require.Equal(t, "unauthorized", body["error"])
		}
	}
}

func mustForeignToken(t *testing.T) string {
	t.Helper()
	token, err := auth.NewService([]byte("another-secret"), time.Hour).Issue(1)
	require.NoError(t, err)
	return token
}

func TestExpiredTokenRejected(t *testing.T) {
	tc := newTestClient(t)
	alice := tc.user(t, "alice")
	me, err := alice.CurrentUser()
	require.NoError(t, err)
	require.Equal(t, "alice", me.Username)

	past := time.Now().Add(-15 * 24 * time.Hour)
	stale, err := auth.NewService(testSecret, auth.DefaultTTL, auth.WithClock(func() time.Time { return past })).Issue(1)
	require.NoError(t, err)

	resp := tc.do(t, http.MethodGet, "/api/users", nil, bearer(stale))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Reads degrade to anonymous instead of failing.
	resp = tc.do(t, http.MethodGet, "/api/threads", nil, bearer(stale))
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOptionalAuthDegrades(t *testing.T) {
	tc := newTestClient(t)
	alice := tc.user(t, "alice")
	_, err := alice.CreateThread("Open", "")
	require.NoError(t, err)
	_, err = alice.VoteThread("open")
	require.NoError(t, err)

	for _, h := range []map[string]string{
		nil,
		bearer("garbage"),
		{"Authorization": "Basic abc"},
		{"Authorization": "Bearer \xff"},
	} {
		resp := tc.do(t, http.MethodGet, "/api/threads/open", nil, h)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var thread map[string]any
		decodeJSON(t, resp, &thread)
		require.Equal(t, false, thread["is_voted"])
		require.EqualValues(t, 1, thread["vote_count"])
	}
}

func TestUserValidation(t *testing.T) {
	tc := newTestClient(t)
	tc.user(t, "alice")

	resp := tc.do(t, http.MethodPost, "/api/users", map[string]string{
		"username": "alice", "email": "new@example.test", "password": "long-enough",
	}, nil)
	require.Contains(t, fieldErrors(t, resp), "username")

	resp = tc.do(t, http.MethodPost, "/api/users", map[string]string{
		"username": "alice2", "email": "alice@example.test", "password": "long-enough",
	}, nil)
	require.Contains(t, fieldErrors(t, resp), "email")

	resp = tc.do(t, http.MethodPost, "/api/users", map[string]string{
		"username": " ", "email": "", "password": "short",
	}, nil)
	errs := fieldErrors(t, resp)
	require.Contains(t, errs, "username")
	require.Contains(t, errs, "password")

	resp = tc.do(t, http.MethodPost, "/api/users/login", map[string]string{
		"username": "nobody", "password": "whatever1",
	}, nil)
	require.Equal(t, []string{"does not exist"}, fieldErrors(t, resp)["username"])

	resp = tc.do(t, http.MethodPost, "/api/users/login", map[string]string{
		"username": "alice", "password": "wrong-password",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cl := client.New(tc.server.URL)
	u, err := cl.Login("alice", client.TestPassword("alice"))
	require.NoError(t, err)
	require.NotEmpty(t, u.Token)
	me, err := cl.CurrentUser()
	require.NoError(t, err)
	require.Equal(t, "alice@example.test", me.Email)
}

func TestThreadValidation(t *testing.T) {
	tc := newTestClient(t)
	alice := tc.user(t, "alice")

	_, err := alice.CreateThread("Hello, World!", "")
	require.NoError(t, err)

	resp := tc.do(t, http.MethodPost, "/api/threads", map[string]string{"title": "hello world", "content": "dup"}, bearer(alice.Token))
	require.Equal(t, []string{"duplicate thread slug: hello-world"}, fieldErrors(t, resp)["slug"])

	resp = tc.do(t, http.MethodPost, "/api/threads", map[string]string{"title": "!!!", "content": ""}, bearer(alice.Token))
	require.Contains(t, fieldErrors(t, resp), "title")

	threads, err := alice.ListThreads()
	require.NoError(t, err)
	require.Len(t, threads, 1)

	resp = tc.do(t, http.MethodPost, "/api/threads/hello-world/comments", map[string]string{"content": "  "}, bearer(alice.Token))
	require.Contains(t, fieldErrors(t, resp), "content")
}

func TestBadRequests(t *testing.T) {
	tc := newTestClient(t)
	alice := tc.user(t, "alice")
	_, err := alice.CreateThread("Thread", "")
	require.NoError(t, err)

	resp := tc.do(t, http.MethodPost, "/api/threads", "{not json", bearer(alice.Token))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = tc.do(t, http.MethodPost, "/api/threads", map[string]string{"title": "x", "tags": "y"}, bearer(alice.Token))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = tc.do(t, http.MethodGet, "/api/threads/thread/comments/-1", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = tc.do(t, http.MethodGet, "/api/threads/thread/comments/zz", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFollowGraph(t *testing.T) {
	tc := newTestClient(t)
	alice := tc.user(t, "alice")
	bob := tc.user(t, "bob")

	_, err := alice.Follow("alice")
	require.Equal(t, http.StatusForbidden, client.StatusCode(err))
	_, err = alice.Follow("nobody")
	require.Equal(t, http.StatusNotFound, client.StatusCode(err))

	p, err := alice.Follow("bob")
	require.NoError(t, err)
	require.True(t, p.Following)
	require.Zero(t, p.Score)

	p, err = alice.GetProfile("bob")
	require.NoError(t, err)
	require.True(t, p.Following)
	p, err = client.New(tc.server.URL).GetProfile("bob")
	require.NoError(t, err)
	require.False(t, p.Following)

	_, err = bob.CreateThread("Bob one", "")
	require.NoError(t, err)
	_, err = bob.CreateThread("Bob two", "")
	require.NoError(t, err)
	_, err = alice.VoteThread("bob-one")
	require.NoError(t, err)
	_, err = alice.VoteThread("bob-two")
	require.NoError(t, err)
	_, err = bob.VoteThread("bob-two")
	require.NoError(t, err)

	p, err = alice.Unfollow("bob")
	require.NoError(t, err)
	require.False(t, p.Following)
	require.EqualValues(t, 3, p.Score)

	_, err = alice.Unfollow("bob")
	require.NoError(t, err)

	threads, err := alice.ProfileThreads("bob")
	require.NoError(t, err)
	require.Len(t, threads, 2)
	require.Equal(t, "bob-two", threads[0].Slug)
	require.True(t, threads[0].IsVoted)

	_, err = alice.ProfileThreads("nobody")
	require.Equal(t, http.StatusNotFound, client.StatusCode(err))
}

func TestNotFound(t *testing.T) {
	tc := newTestClient(t)
	for _, path := range []string{"/api/threads/missing", "/api/profiles/missing", "/api/nothing-here", "/api/threads/missing/comments"} {
		resp := tc.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		var body map[string]string
		decodeJSON(t, resp, &body)
		require.Equal(t, "not found", body["error"])
	}

	for _, req := range [][2]string{
		{http.MethodPut, "/api/threads"},
		{http.MethodDelete, "/api/threads/missing"},
		{http.MethodPut, "/api/profiles/alice/follow"},
	} {
		resp := tc.do(t, req[0], req[1], nil, nil)
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode, req[1])
		var body map[string]string
		decodeJSON(t, resp, &body)
		require.Equal(t, "method not allowed", body["error"])
	}
}

func TestMetricsAndRequestID(t *testing.T) {
	tc := newTestClient(t)
	alice := tc.user(t, "alice")
	_, err := alice.CreateThread("Counted", "")
	require.NoError(t, err)
	_, err = alice.VoteThread("counted")
	require.NoError(t, err)
	_, err = alice.Follow("alice")
	require.Error(t, err)

	resp := tc.do(t, http.MethodGet, "/api/threads", nil, map[string]string{"X-Request-ID": "req-123"})
	require.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
	resp = tc.do(t, http.MethodGet, "/api/threads", nil, nil)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp = tc.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(raw)
	require.Contains(t, text, `forum_http_requests_total{code="200",route="/api/threads"} 3`)
	require.Contains(t, text, `forum_http_requests_total{code="403",route="/api/profiles/{username}/follow"} 1`)
	require.Contains(t, text, `forum_votes_total{action="cast",kind="thread"} 1`)
	require.NotContains(t, text, `forum_follows_total{action="follow"}`)
}

func TestCORS(t *testing.T) {
	tc := newTestClientWithConfig(t, config.Config{CORSOrigin: "https://forum.example"})

	resp := tc.do(t, http.MethodOptions, "/api/threads", nil, map[string]string{
		"Origin":                        "https://forum.example",
		"Access-Control-Request-Method": "POST",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "https://forum.example", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = tc.do(t, http.MethodOptions, "/api/threads/x/vote", nil, map[string]string{
		"Origin":                         "https://forum.example",
		"Access-Control-Request-Method":  "DELETE",
		"Access-Control-Request-Headers": "Authorization, Content-Type",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "Authorization,Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))

	resp = tc.do(t, http.MethodOptions, "/api/threads", nil, map[string]string{
		"Origin":                        "https://forum.example",
		"Access-Control-Request-Method": "PATCH",
	})
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp = tc.do(t, http.MethodGet, "/api/threads", nil, map[string]string{"Origin": "https://forum.example"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://forum.example", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = tc.do(t, http.MethodGet, "/api/threads", nil, map[string]string{"Origin": "https://evil.example"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestOpenAPI(t *testing.T) {
	tc := newTestClient(t)
	resp := tc.do(t, http.MethodGet, "/api/openapi.json", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	decodeJSON(t, resp, &doc)
	require.Equal(t, "Forum API", doc.Info.Title)
	require.Contains(t, doc.Paths, "/api/threads/{slug}/comments/{id}/children")
}
