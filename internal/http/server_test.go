package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/alphabot-ai/forum/internal/auth"
	"github.com/alphabot-ai/forum/internal/config"
	"github.com/alphabot-ai/forum/internal/model"
	"github.com/alphabot-ai/forum/internal/store"
)

// brokenStore fails every thread listing with an error the server has no
// mapping for.
type brokenStore struct {
	store.Store
}

func (brokenStore) ListThreads(context.Context, store.Viewer) ([]model.Thread, error) {
	return nil, errors.New("disk on fire")
}

func (brokenStore) Close() error { return nil }

func TestIndex(t *testing.T) {
	server := NewServer(brokenStore{}, auth.NewService(testSecret, time.Hour), config.Config{}, nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "/swagger/")
}

func TestInternalErrorIsOpaque(t *testing.T) {
	log, hook := test.NewNullLogger()
	server := NewServer(brokenStore{}, auth.NewService(testSecret, time.Hour), config.Config{}, log)

	req := httptest.NewRequest(http.MethodGet, "/api/threads", nil)
	req.Header.Set("X-Request-ID", "trace-me")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "disk")

	var failed *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "request failed" {
			failed = e
		}
	}
	require.NotNil(t, failed, "internal errors are logged")
	require.Equal(t, logrus.ErrorLevel, failed.Level)
	require.Equal(t, "trace-me", failed.Data["request_id"])
	require.EqualError(t, failed.Data[logrus.ErrorKey].(error), "disk on fire")

	last := hook.LastEntry()
	require.Equal(t, "request", last.Message)
	require.Equal(t, 500, last.Data["status"])
	require.Equal(t, "/api/threads", last.Data["route"])
}

func TestWriteErrMapping(t *testing.T) {
	server := NewServer(brokenStore{}, auth.NewService(testSecret, time.Hour), config.Config{}, nil)

	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"unauthorized", fmt.Errorf("%w: %w", auth.ErrUnauthorized, auth.ErrExpiredToken), http.StatusUnauthorized, `{"error":"unauthorized"}`},
		{"forbidden", store.ErrForbidden, http.StatusForbidden, `{"error":"forbidden"}`},
		{"not found", fmt.Errorf("lookup: %w", store.ErrNotFound), http.StatusNotFound, `{"error":"not found"}`},
		{"validation", store.Invalid("slug", "duplicate thread slug: x"), http.StatusUnprocessableEntity, `{"errors":{"slug":["duplicate thread slug: x"]}}`},
		{"bad request", badRequest(errors.New("unexpected EOF")), http.StatusBadRequest, `{"error":"bad request: unexpected EOF"}`},
		{"other", errors.New("boom"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			server.writeErr(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			require.Equal(t, tc.status, rec.Code)
			require.JSONEq(t, tc.body, rec.Body.String())
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestReadJSONRejectsUnknownFields(t *testing.T) {
	var dest struct {
		Content string `json:"content"`
	}
	body := func(s string) *nopCloser { return &nopCloser{strings.NewReader(s)} }

	require.NoError(t, readJSON(body(`{"content":"hi"}`), &dest))
	require.Equal(t, "hi", dest.Content)

	err := readJSON(body(`{"content":"hi","extra":1}`), &dest)
	require.ErrorIs(t, err, errBadRequest)
	err = readJSON(body(`[`), &dest)
	require.ErrorIs(t, err, errBadRequest)
}

type nopCloser struct {
	*strings.Reader
}

func (nopCloser) Close() error { return nil }

func TestMetricsRegistryPerServer(t *testing.T) {
	// Two servers in one process must not collide on registration.
	a := NewServer(brokenStore{}, auth.NewService(testSecret, time.Hour), config.Config{}, nil)
	b := NewServer(brokenStore{}, auth.NewService(testSecret, time.Hour), config.Config{}, nil)

	a.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	scrape := func(s *Server) string {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Body.String()
	}
	require.Contains(t, scrape(a), `forum_http_requests_total{code="200",route="/"} 1`)
	require.NotContains(t, scrape(b), `route="/"`)
	require.Contains(t, scrape(b), "go_goroutines")
}

func TestOpenAPIDocParses(t *testing.T) {
	server := NewServer(brokenStore{}, auth.NewService(testSecret, time.Hour), config.Config{}, nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Contains(t, doc, "securityDefinitions")
}
