package httpapp

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/alphabot-ai/forum/internal/model"
	"github.com/alphabot-ai/forum/internal/store"
)

type commentRequest struct {
	Content string `json:"content"`
}

func readComment(r *http.Request) (string, error) {
	var req commentRequest
	if err := readJSON(r.Body, &req); err != nil {
		return "", err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return "", store.Invalid("content", "can't be blank")
	}
	return content, nil
}

// handleCreateComment godoc
//
//	@Summary		Post a root comment
//	@Description	Add a top-level comment to a thread. Requires authentication.
//	@Tags			Comments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			slug	path		string					true	"Thread slug"
//	@Param			comment	body		object{content=string}	true	"Comment body"
//	@Success		200		{object}	model.Comment
//	@Failure		401		{object}	map[string]string	"Authentication required"
//	@Failure		404		{object}	map[string]string	"Thread not found"
//	@Router			/api/threads/{slug}/comments [post]
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	content, err := readComment(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	comment, err := s.store.CreateRootComment(r.Context(), mux.Vars(r)["slug"], userID, content)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// handleListComments godoc
//
//	@Summary		List top-level comments
//	@Description	Root comments of a thread, newest first. Replies are fetched per level through /children.
//	@Tags			Comments
//	@Produce		json
//	@Param			slug	path	string	true	"Thread slug"
//	@Success		200		{array}	model.Comment
//	@Failure		404		{object}	map[string]string	"Thread not found"
//	@Router			/api/threads/{slug}/comments [get]
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := s.store.ListTopLevelComments(r.Context(), mux.Vars(r)["slug"], s.optionalAuth(r))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// handleGetComment godoc
//
//	@Summary		Get a comment
//	@Tags			Comments
//	@Produce		json
//	@Param			slug	path		string	true	"Thread slug"
//	@Param			id		path		string	true	"Comment id (base 36)"
//	@Success		200		{object}	model.Comment
//	@Failure		400		{object}	map[string]string	"Malformed id"
//	@Failure		404		{object}	map[string]string	"Thread or comment not found"
//	@Router			/api/threads/{slug}/comments/{id} [get]
func (s *Server) handleGetComment(w http.ResponseWriter, r *http.Request) {
	id, err := commentIDVar(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	comment, err := s.store.GetComment(r.Context(), mux.Vars(r)["slug"], id, s.optionalAuth(r))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// handleListChildren godoc
//
//	@Summary		List replies
//	@Description	Direct replies to a comment only, newest first.
//	@Tags			Comments
//	@Produce		json
//	@Param			slug	path	string	true	"Thread slug"
//	@Param			id		path	string	true	"Parent comment id (base 36)"
//	@Success		200		{array}	model.Comment
//	@Failure		404		{object}	map[string]string	"Thread or comment not found"
//	@Router			/api/threads/{slug}/comments/{id}/children [get]
func (s *Server) handleListChildren(w http.ResponseWriter, r *http.Request) {
	id, err := commentIDVar(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	comments, err := s.store.ListChildComments(r.Context(), mux.Vars(r)["slug"], id, s.optionalAuth(r))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// handleCreateReply godoc
//
//	@Summary		Reply to a comment
//	@Description	The parent must belong to the thread in the path. Requires authentication.
//	@Tags			Comments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			slug	path		string					true	"Thread slug"
//	@Param			id		path		string					true	"Parent comment id (base 36)"
//	@Param			comment	body		object{content=string}	true	"Reply body"
//	@Success		200		{object}	model.Comment
//	@Failure		401		{object}	map[string]string	"Authentication required"
//	@Failure		404		{object}	map[string]string	"Thread or parent not found"
//	@Router			/api/threads/{slug}/comments/{id}/children [post]
func (s *Server) handleCreateReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	parent, err := commentIDVar(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	content, err := readComment(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	comment, err := s.store.CreateReply(r.Context(), mux.Vars(r)["slug"], parent, userID, content)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

// handleVoteComment godoc
//
//	@Summary		Vote on a comment
//	@Tags			Votes
//	@Produce		json
//	@Security		BearerAuth
//	@Param			slug	path		string	true	"Thread slug"
//	@Param			id		path		string	true	"Comment id (base 36)"
//	@Success		200		{object}	VoteCount
//	@Failure		401		{object}	map[string]string	"Authentication required"
//	@Failure		404		{object}	map[string]string	"Thread or comment not found"
//	@Router			/api/threads/{slug}/comments/{id}/vote [post]
func (s *Server) handleVoteComment(w http.ResponseWriter, r *http.Request) {
	s.voteComment(w, r, true)
}

// handleUnvoteComment godoc
//
//	@Summary		Remove a comment vote
//	@Tags			Votes
//	@Produce		json
//	@Security		BearerAuth
//	@Param			slug	path		string	true	"Thread slug"
//	@Param			id		path		string	true	"Comment id (base 36)"
//	@Success		200		{object}	VoteCount
//	@Failure		401		{object}	map[string]string	"Authentication required"
//	@Failure		404		{object}	map[string]string	"Thread or comment not found"
//	@Router			/api/threads/{slug}/comments/{id}/vote [delete]
func (s *Server) handleUnvoteComment(w http.ResponseWriter, r *http.Request) {
	s.voteComment(w, r, false)
}

func (s *Server) voteComment(w http.ResponseWriter, r *http.Request, cast bool) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	id, err := commentIDVar(r)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	target, err := s.store.CommentID(r.Context(), mux.Vars(r)["slug"], id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.applyVote(w, r, model.VoteComment, target, userID, cast)
}
