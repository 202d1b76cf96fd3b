package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/alphabot-ai/forum/internal/auth"
	"github.com/alphabot-ai/forum/internal/config"
	"github.com/alphabot-ai/forum/internal/model"
	"github.com/alphabot-ai/forum/internal/store"

	_ "github.com/alphabot-ai/forum/docs" // swagger docs

	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

var errBadRequest = errors.New("bad request")

type Server struct {
	store   store.Store
	auth    *auth.Service
	cfg     config.Config
	log     *logrus.Logger
	metrics *Metrics
	router  *mux.Router
	handler http.Handler
}

// NewServer wires the API routes. A nil logger discards output.
func NewServer(st store.Store, authSvc *auth.Service, cfg config.Config, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	s := &Server{
		store:   st,
		auth:    authSvc,
		cfg:     cfg,
		log:     log,
		metrics: NewMetrics(),
	}
	s.router = s.routes()
	s.handler = s.router
	if cfg.CORSOrigin != "" {
		s.handler = handlers.CORS(
			handlers.AllowedOrigins([]string{cfg.CORSOrigin}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
			handlers.OptionStatusCode(http.StatusNoContent),
		)(s.router)
	}
	return s
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)
	notFound := s.instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, store.ErrNotFound)
	}))
	methodNotAllowed := s.instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	}))
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = methodNotAllowed

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/openapi.json", s.serveOpenAPIJSON).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	// A subrouter falls back to its own handlers, not the parent's.
	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed

	api.HandleFunc("/users", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/users", s.handleCurrentUser).Methods(http.MethodGet)
	api.HandleFunc("/users/login", s.handleLogin).Methods(http.MethodPost)

	api.HandleFunc("/profiles/{username}", s.handleGetProfile).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{username}/threads", s.handleProfileThreads).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{username}/follow", s.handleFollow).Methods(http.MethodPost)
	api.HandleFunc("/profiles/{username}/follow", s.handleUnfollow).Methods(http.MethodDelete)

	api.HandleFunc("/threads", s.handleCreateThread).Methods(http.MethodPost)
	api.HandleFunc("/threads", s.handleListThreads).Methods(http.MethodGet)
	api.HandleFunc("/threads/{slug}", s.handleGetThread).Methods(http.MethodGet)
	api.HandleFunc("/threads/{slug}/vote", s.handleThreadVotes).Methods(http.MethodGet)
	api.HandleFunc("/threads/{slug}/vote", s.handleVoteThread).Methods(http.MethodPost)
	api.HandleFunc("/threads/{slug}/vote", s.handleUnvoteThread).Methods(http.MethodDelete)

	api.HandleFunc("/threads/{slug}/comments", s.handleCreateComment).Methods(http.MethodPost)
	api.HandleFunc("/threads/{slug}/comments", s.handleListComments).Methods(http.MethodGet)
	api.HandleFunc("/threads/{slug}/comments/{id}", s.handleGetComment).Methods(http.MethodGet)
	api.HandleFunc("/threads/{slug}/comments/{id}/children", s.handleListChildren).Methods(http.MethodGet)
	api.HandleFunc("/threads/{slug}/comments/{id}/children", s.handleCreateReply).Methods(http.MethodPost)
	api.HandleFunc("/threads/{slug}/comments/{id}/vote", s.handleVoteComment).Methods(http.MethodPost)
	api.HandleFunc("/threads/{slug}/comments/{id}/vote", s.handleUnvoteComment).Methods(http.MethodDelete)

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "forum api; see /swagger/index.html\n")
}

func (s *Server) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

// requireAuth writes a 401 and returns false when the request carries no
// valid bearer token.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := s.auth.Require(r.Header.Get("Authorization"))
	if err != nil {
		s.writeErr(w, r, err)
		return 0, false
	}
	return id, true
}

func (s *Server) optionalAuth(r *http.Request) store.Viewer {
	return s.auth.Optional(r.Header.Get("Authorization"))
}

// writeErr is the one place errors become status codes. Anything not
// recognized is logged and reported as an opaque 500.
func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := store.AsValidation(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": ve.Fields})
		return
	}
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		s.logger(r).WithError(err).Debug("authentication failed")
		writeError(w, http.StatusUnauthorized, auth.ErrUnauthorized)
	case errors.Is(err, store.ErrForbidden):
		writeError(w, http.StatusForbidden, store.ErrForbidden)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, store.ErrNotFound)
	case errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.logger(r).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func (s *Server) logger(r *http.Request) *logrus.Entry {
	return s.log.WithField("request_id", requestID(r.Context()))
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return badRequest(err)
	}
	return nil
}

func commentIDVar(r *http.Request) (model.CommentID, error) {
	id, err := model.ParseCommentID(mux.Vars(r)["id"])
	if err != nil {
		return 0, badRequest(err)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
