package httpapp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alphabot-ai/forum/internal/auth"
	"github.com/alphabot-ai/forum/internal/model"
	"github.com/alphabot-ai/forum/internal/store"
)

const minPasswordLen = 8

// UserResponse is a user together with a freshly issued session token.
type UserResponse struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) userResponse(u model.User) (UserResponse, error) {
	token, err := s.auth.Issue(u.ID)
	if err != nil {
		return UserResponse{}, err
	}
	return UserResponse{
		Username:  u.Username,
		Email:     u.Email,
		Token:     token,
		CreatedAt: u.CreatedAt,
	}, nil
}

// handleRegister godoc
//
//	@Summary		Register a new user
//	@Description	Create a user and return it with a session token. Usernames and emails are unique.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			user	body		object{username=string,email=string,password=string}	true	"New user"
//	@Success		200		{object}	UserResponse
//	@Failure		400		{object}	map[string]string	"Malformed body"
//	@Failure		422		{object}	map[string]interface{}	"Validation errors by field"
//	@Router			/api/users [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	var invalid *store.ValidationError
	if req.Username == "" {
		invalid = store.Invalid("username", "can't be blank")
	}
	if len(req.Password) < minPasswordLen {
		msg := fmt.Sprintf("must be at least %d characters", minPasswordLen)
		if invalid == nil {
			invalid = store.Invalid("password", msg)
		} else {
			invalid.Add("password", msg)
		}
	}
	if invalid != nil {
		s.writeErr(w, r, invalid)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	user, err := s.store.CreateUser(r.Context(), &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	resp, err := s.userResponse(user)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchange a username and password for a session token.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body		object{username=string,password=string}	true	"Credentials"
//	@Success		200			{object}	UserResponse
//	@Failure		401			{object}	map[string]string	"Wrong password"
//	@Failure		422			{object}	map[string]interface{}	"Unknown username"
//	@Router			/api/users/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if errors.Is(err, store.ErrNotFound) {
		s.writeErr(w, r, store.Invalid("username", "does not exist"))
		return
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		s.writeErr(w, r, err)
		return
	}
	resp, err := s.userResponse(user)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCurrentUser godoc
//
//	@Summary		Current user
//	@Description	Return the authenticated user with a fresh token.
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	UserResponse
//	@Failure		401	{object}	map[string]string	"Authentication required"
//	@Router			/api/users [get]
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	user, err := s.store.GetUser(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		// The token outlived its user.
		s.writeErr(w, r, fmt.Errorf("%w: user %d no longer exists", auth.ErrUnauthorized, userID))
		return
	}
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	resp, err := s.userResponse(user)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
