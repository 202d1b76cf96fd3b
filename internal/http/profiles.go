package httpapp

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleGetProfile godoc
//
//	@Summary		Get a profile
//	@Description	Score is the number of votes on all of the user's threads. following is only true for a caller who follows the user.
//	@Tags			Profiles
//	@Produce		json
//	@Param			username	path		string	true	"Username"
//	@Success		200			{object}	model.Profile
//	@Failure		404			{object}	map[string]string	"User not found"
//	@Router			/api/profiles/{username} [get]
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.store.GetProfile(r.Context(), mux.Vars(r)["username"], s.optionalAuth(r))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleProfileThreads godoc
//
//	@Summary		List a user's threads
//	@Tags			Profiles
//	@Produce		json
//	@Param			username	path	string	true	"Username"
//	@Success		200			{array}	model.Thread
//	@Failure		404			{object}	map[string]string	"User not found"
//	@Router			/api/profiles/{username}/threads [get]
func (s *Server) handleProfileThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.store.ListThreadsByAuthor(r.Context(), mux.Vars(r)["username"], s.optionalAuth(r))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

// handleFollow godoc
//
//	@Summary		Follow a user
//	@Description	Following twice is a no-op. Following yourself is forbidden. Requires authentication.
//	@Tags			Profiles
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	path		string	true	"Username"
//	@Success		200			{object}	model.Profile
//	@Failure		401			{object}	map[string]string	"Authentication required"
//	@Failure		403			{object}	map[string]string	"Self-follow"
//	@Failure		404			{object}	map[string]string	"User not found"
//	@Router			/api/profiles/{username}/follow [post]
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	profile, err := s.store.Follow(r.Context(), userID, mux.Vars(r)["username"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.metrics.Follows.WithLabelValues("follow").Inc()
	writeJSON(w, http.StatusOK, profile)
}

// handleUnfollow godoc
//
//	@Summary		Unfollow a user
//	@Tags			Profiles
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	path		string	true	"Username"
//	@Success		200			{object}	model.Profile
//	@Failure		401			{object}	map[string]string	"Authentication required"
//	@Failure		404			{object}	map[string]string	"User not found"
//	@Router			/api/profiles/{username}/follow [delete]
func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	profile, err := s.store.Unfollow(r.Context(), userID, mux.Vars(r)["username"])
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.metrics.Follows.WithLabelValues("unfollow").Inc()
	writeJSON(w, http.StatusOK, profile)
}
