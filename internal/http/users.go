package httpapp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alphabot-ai/ysocial/internal/model"
	"github.com/alphabot-ai/ysocial/internal/posts"
)

// handleListUsers godoc
//
//	@Summary		List profiles
//	@Description	Every profile with its posts, follow edges and notifications.
//	@Tags			Users
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}	"Profiles"
//	@Failure		500	{object}	map[string]string		"Social data unreadable"
//	@Router			/users [get]
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.posts.Profiles(r.Context())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": profiles})
}

// handleNotifications godoc
//
//	@Summary		Your notifications
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}	"Notifications"
//	@Failure		404	{object}	map[string]string		"User not found"
//	@Router			/notifications [get]
func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	notes, err := s.posts.Notifications(r.Context(), username)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notes})
}

// handleFollow godoc
//
//	@Summary		Follow a user
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	path		string	true	"User to follow"
//	@Success		200			{object}	map[string]string	"Following"
//	@Failure		400			{object}	map[string]string	"Cannot follow yourself"
//	@Failure		404			{object}	map[string]string	"User not found"
//	@Router			/users/{username}/follow [post]
func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	target := chi.URLParam(r, "username")
	if err := s.posts.Follow(r.Context(), username, target); err != nil {
		s.writeFollowFailure(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Now following "+target)
}

// handleUnfollow godoc
//
//	@Summary		Unfollow a user
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	path		string	true	"User to unfollow"
//	@Success		200			{object}	map[string]string	"Unfollowed"
//	@Failure		404			{object}	map[string]string	"User not found"
//	@Router			/users/{username}/follow [delete]
func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	target := chi.URLParam(r, "username")
	if err := s.posts.Unfollow(r.Context(), username, target); err != nil {
		s.writeFollowFailure(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Unfollowed "+target)
}

func (s *Server) writeFollowFailure(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, posts.ErrSelfFollow) {
		writeMessage(w, http.StatusBadRequest, "Cannot follow yourself")
		return
	}
	s.writeFailure(w, r, err)
}

// handleAdminRole godoc
//
//	@Summary		Set a user's role
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			X-Admin-Secret	header		string								true	"Admin secret"
//	@Param			request			body		object{username=string,role=string}	true	"Role assignment"
//	@Success		200				{object}	map[string]string	"Role updated"
//	@Failure		400				{object}	map[string]string	"Invalid role"
//	@Failure		401				{object}	map[string]string	"Unauthorized"
//	@Failure		404				{object}	map[string]string	"User not found"
//	@Router			/admin/role [post]
func (s *Server) handleAdminRole(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdminSecret(w, r) {
		return
	}
	var req struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	role := model.Role(strings.TrimSpace(req.Role))
	if err := s.posts.SetRole(r.Context(), strings.TrimSpace(req.Username), role); err != nil {
		if errors.Is(err, posts.ErrInvalidRole) {
			writeMessage(w, http.StatusBadRequest, "Role must be User or Admin")
			return
		}
		s.writeFailure(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Role updated")
}
