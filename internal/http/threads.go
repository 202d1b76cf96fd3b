package httpapp

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/alphabot-ai/forum/internal/model"
	"github.com/alphabot-ai/forum/internal/slug"
	"github.com/alphabot-ai/forum/internal/store"
)

// VoteCount is the total number of votes on a thread or comment.
type VoteCount struct {
	Count int64 `json:"count"`
}

// handleCreateThread godoc
//
//	@Summary		Create a thread
//	@Description	Start a thread. The slug is derived from the title and must be unused. Requires authentication.
//	@Tags			Threads
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			thread	body		object{title=string,content=string}	true	"Thread data"
//	@Success		200		{object}	model.Thread
//	@Failure		401		{object}	map[string]string	"Authentication required"
//	@Failure		422		{object}	map[string]interface{}	"Empty slug or duplicate slug"
//	@Router			/api/threads [post]
func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}

	title := strings.TrimSpace(req.Title)
	threadSlug := slug.Make(title)
	if threadSlug == "" {
		s.writeErr(w, r, store.Invalid("title", "must contain at least one letter or digit"))
		return
	}
	thread, err := s.store.CreateThread(r.Context(), &model.Thread{
		AuthorID:  userID,
		Slug:      threadSlug,
		Title:     title,
		Content:   req.Content,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

// handleListThreads godoc
//
//	@Summary		List threads
//	@Description	All threads, newest first. With a token, is_voted reflects the caller's votes.
//	@Tags			Threads
//	@Produce		json
//	@Success		200	{array}	model.Thread
//	@Router			/api/threads [get]
func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.store.ListThreads(r.Context(), s.optionalAuth(r))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

// handleGetThread godoc
//
//	@Summary		Get a thread
//	@Tags			Threads
//	@Produce		json
//	@Param			slug	path		string	true	"Thread slug"
//	@Success		200		{object}	model.Thread
//	@Failure		404		{object}	map[string]string	"Thread not found"
//	@Router			/api/threads/{slug} [get]
func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.store.GetThread(r.Context(), mux.Vars(r)["slug"], s.optionalAuth(r))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

// handleThreadVotes godoc
//
//	@Summary		Count thread votes
//	@Tags			Votes
//	@Produce		json
//	@Param			slug	path		string	true	"Thread slug"
//	@Success		200		{object}	VoteCount
//	@Failure		404		{object}	map[string]string	"Thread not found"
//	@Router			/api/threads/{slug}/vote [get]
func (s *Server) handleThreadVotes(w http.ResponseWriter, r *http.Request) {
	threadID, err := s.store.ThreadID(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	count, err := s.store.CountVotes(r.Context(), model.VoteThread, threadID)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VoteCount{Count: count})
}

// handleVoteThread godoc
//
//	@Summary		Vote on a thread
//	@Description	Casting twice counts once. Requires authentication.
//	@Tags			Votes
//	@Produce		json
//	@Security		BearerAuth
//	@Param			slug	path		string	true	"Thread slug"
//	@Success		200		{object}	VoteCount
//	@Failure		401		{object}	map[string]string	"Authentication required"
//	@Failure		404		{object}	map[string]string	"Thread not found"
//	@Router			/api/threads/{slug}/vote [post]
func (s *Server) handleVoteThread(w http.ResponseWriter, r *http.Request) {
	s.voteThread(w, r, true)
}

// handleUnvoteThread godoc
//
//	@Summary		Remove a thread vote
//	@Description	Removing a vote that was never cast is not an error. Requires authentication.
//	@Tags			Votes
//	@Produce		json
//	@Security		BearerAuth
//	@Param			slug	path		string	true	"Thread slug"
//	@Success		200		{object}	VoteCount
//	@Failure		401		{object}	map[string]string	"Authentication required"
//	@Failure		404		{object}	map[string]string	"Thread not found"
//	@Router			/api/threads/{slug}/vote [delete]
func (s *Server) handleUnvoteThread(w http.ResponseWriter, r *http.Request) {
	s.voteThread(w, r, false)
}

func (s *Server) voteThread(w http.ResponseWriter, r *http.Request, cast bool) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	threadID, err := s.store.ThreadID(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.applyVote(w, r, model.VoteThread, threadID, userID, cast)
}

// applyVote casts or uncasts and answers with the fresh count.
func (s *Server) applyVote(w http.ResponseWriter, r *http.Request, kind model.VoteKind, targetID, userID int64, cast bool) {
	var (
		count  int64
		err    error
		action = "cast"
	)
	if cast {
		count, err = s.store.CastVote(r.Context(), kind, targetID, userID)
	} else {
		action = "uncast"
		count, err = s.store.UncastVote(r.Context(), kind, targetID, userID)
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.metrics.Votes.WithLabelValues(string(kind), action).Inc()
	writeJSON(w, http.StatusOK, VoteCount{Count: count})
}
