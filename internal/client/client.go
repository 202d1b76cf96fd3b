// Package client provides a Go client for the forum API.
package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alphabot-ai/forum/internal/model"
)

// Client is a forum API client. Token, once set by Register or Login, is
// sent on every request.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
}

// User is the account payload returned by register, login and current user.
type User struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Op, e.StatusCode, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an
// *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// New creates a new forum client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// IsAuthenticated returns true if the client holds a token.
func (c *Client) IsAuthenticated() bool {
	return c.Token != ""
}

// doRequest performs an HTTP request, authenticated when a token is set.
func (c *Client) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTPClient.Do(req)
}

// call runs a request and decodes a 200 answer into out.
func (c *Client) call(op, method, path string, body, out any) error {
	resp, err := c.doRequest(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Register creates an account and keeps its token.
func (c *Client) Register(username, email, password string) (*User, error) {
	var u User
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.call("register", http.MethodPost, "/api/users", body, &u); err != nil {
		return nil, err
	}
	c.Token = u.Token
	return &u, nil
}

// Login exchanges credentials for a token and keeps it.
func (c *Client) Login(username, password string) (*User, error) {
	var u User
	body := map[string]string{"username": username, "password": password}
	if err := c.call("login", http.MethodPost, "/api/users/login", body, &u); err != nil {
		return nil, err
	}
	c.Token = u.Token
	return &u, nil
}

func (c *Client) CurrentUser() (*User, error) {
	var u User
	if err := c.call("current user", http.MethodGet, "/api/users", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateThread(title, content string) (*model.Thread, error) {
	var t model.Thread
	body := map[string]string{"title": title, "content": content}
	if err := c.call("create thread", http.MethodPost, "/api/threads", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) ListThreads() ([]model.Thread, error) {
	var threads []model.Thread
	if err := c.call("list threads", http.MethodGet, "/api/threads", nil, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

func (c *Client) GetThread(slug string) (*model.Thread, error) {
	var t model.Thread
	if err := c.call("get thread", http.MethodGet, threadPath(slug), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) ThreadVotes(slug string) (int64, error) {
	return c.voteCall("thread votes", http.MethodGet, threadPath(slug)+"/vote")
}

func (c *Client) VoteThread(slug string) (int64, error) {
	return c.voteCall("vote thread", http.MethodPost, threadPath(slug)+"/vote")
}

func (c *Client) UnvoteThread(slug string) (int64, error) {
	return c.voteCall("unvote thread", http.MethodDelete, threadPath(slug)+"/vote")
}

// PostComment adds a root comment to a thread.
func (c *Client) PostComment(slug, content string) (*model.Comment, error) {
	var cm model.Comment
	body := map[string]string{"content": content}
	if err := c.call("post comment", http.MethodPost, threadPath(slug)+"/comments", body, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

// Reply answers parent inside the same thread.
func (c *Client) Reply(slug string, parent model.CommentID, content string) (*model.Comment, error) {
	var cm model.Comment
	body := map[string]string{"content": content}
	if err := c.call("reply", http.MethodPost, commentPath(slug, parent)+"/children", body, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

func (c *Client) GetComment(slug string, id model.CommentID) (*model.Comment, error) {
	var cm model.Comment
	if err := c.call("get comment", http.MethodGet, commentPath(slug, id), nil, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

// ListComments fetches the root comments of a thread.
func (c *Client) ListComments(slug string) ([]model.Comment, error) {
	var comments []model.Comment
	if err := c.call("list comments", http.MethodGet, threadPath(slug)+"/comments", nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// ListChildren fetches the direct replies to a comment.
func (c *Client) ListChildren(slug string, parent model.CommentID) ([]model.Comment, error) {
	var comments []model.Comment
	if err := c.call("list children", http.MethodGet, commentPath(slug, parent)+"/children", nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) VoteComment(slug string, id model.CommentID) (int64, error) {
	return c.voteCall("vote comment", http.MethodPost, commentPath(slug, id)+"/vote")
}

func (c *Client) UnvoteComment(slug string, id model.CommentID) (int64, error) {
	return c.voteCall("unvote comment", http.MethodDelete, commentPath(slug, id)+"/vote")
}

func (c *Client) GetProfile(username string) (*model.Profile, error) {
	return c.profileCall("get profile", http.MethodGet, profilePath(username))
}

func (c *Client) Follow(username string) (*model.Profile, error) {
	return c.profileCall("follow", http.MethodPost, profilePath(username)+"/follow")
}

func (c *Client) Unfollow(username string) (*model.Profile, error) {
	return c.profileCall("unfollow", http.MethodDelete, profilePath(username)+"/follow")
}

func (c *Client) ProfileThreads(username string) ([]model.Thread, error) {
	var threads []model.Thread
	if err := c.call("profile threads", http.MethodGet, profilePath(username)+"/threads", nil, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

func (c *Client) voteCall(op, method, path string) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	if err := c.call(op, method, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) profileCall(op, method, path string) (*model.Profile, error) {
	var p model.Profile
	if err := c.call(op, method, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func threadPath(slug string) string {
	return "/api/threads/" + url.PathEscape(slug)
}

func commentPath(slug string, id model.CommentID) string {
	return threadPath(slug) + "/comments/" + id.String()
}

func profilePath(username string) string {
	return "/api/profiles/" + url.PathEscape(username)
}

// TestHelper provides utilities for creating authenticated clients in tests.
type TestHelper struct {
	BaseURL string
}

// NewTestHelper creates a new test helper for the given base URL.
func NewTestHelper(baseURL string) *TestHelper {
	return &TestHelper{BaseURL: baseURL}
}

// CreateAuthenticatedClient registers name with a derived email and
// password and returns a client holding its token.
func (h *TestHelper) CreateAuthenticatedClient(name string) (*Client, error) {
	c := New(h.BaseURL)
	if _, err := c.Register(name, name+"@example.test", TestPassword(name)); err != nil {
		return nil, err
	}
	return c, nil
}

// GetToken registers name and returns its token.
func (h *TestHelper) GetToken(name string) (string, error) {
	c, err := h.CreateAuthenticatedClient(name)
	if err != nil {
		return "", err
	}
	return c.Token, nil
}

// TestPassword is the password CreateAuthenticatedClient registers name with.
func TestPassword(name string) string {
	return "password-" + name
}
