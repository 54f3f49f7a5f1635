package httpapp

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/alphabot-ai/ysocial/internal/model"
	"github.com/alphabot-ai/ysocial/internal/posts"
)

const msgPostCreated = "Post created successfully"

// handleCreatePost godoc
//
//	@Summary		Create a post
//	@Description	Publish a message with hashtags. Messages containing a backslash or characters outside printable ASCII are rejected and a notification is added to the author's profile.
//	@Tags			Posts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			post	body		object{message=string,hashtags=[]string}	true	"Post"
//	@Success		201		{object}	map[string]interface{}	"Post created"
//	@Failure		401		{object}	map[string]string		"Missing or invalid token"
//	@Failure		404		{object}	map[string]string		"User not found"
//	@Failure		422		{object}	map[string]string		"Post rejected by the content filter"
//	@Failure		429		{object}	map[string]interface{}	"Rate limited"
//	@Failure		500		{object}	map[string]string		"Social data unreadable"
//	@Router			/post [post]
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	if !s.allowRateLimit(w, r, "post", s.cfg.RateLimits.PostPerMinute) {
		return
	}
	var req struct {
		Message  string   `json:"message"`
		Hashtags []string `json:"hashtags"`
	}
	if err := readJSONLoose(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	out, err := s.posts.CreatePost(r.Context(), username, req.Message, req.Hashtags)
	if err != nil {
		if errors.Is(err, posts.ErrUserNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found in social data")
			return
		}
		s.writeFailure(w, r, err)
		return
	}

	if s.cfg.Compat.SilentRejection {
		writeMessage(w, http.StatusCreated, msgPostCreated)
		return
	}
	if out.Status == posts.Rejected {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Post rejected",
			"reason":  out.Reason,
		})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": msgPostCreated,
		"post":    out.Post,
	})
}

// handleListPosts godoc
//
//	@Summary		Get the feed
//	@Description	Posts from every user, ordered newest first or randomly sampled depending on server configuration.
//	@Tags			Posts
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}	"Feed"
//	@Failure		500	{object}	map[string]interface{}	"Social data unreadable"
//	@Router			/posts [get]
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	feed, err := s.posts.GetFeed(r.Context())
	if err != nil {
		s.logger.Error("feed failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"posts": []model.PostView{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": feed})
}

// handleDeletePost godoc
//
//	@Summary		Delete a post
//	@Description	Remove a post by id from your own posts. Admins remove it from every user.
//	@Tags			Posts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			postId	path		int	true	"Post ID"
//	@Success		200		{object}	map[string]interface{}	"Deleted"
//	@Failure		400		{object}	map[string]string		"Invalid post id"
//	@Failure		401		{object}	map[string]string		"Missing or invalid token"
//	@Failure		404		{object}	map[string]string		"User not found"
//	@Router			/posts/{postId} [delete]
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	postID, err := strconv.ParseInt(chi.URLParam(r, "postId"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid post id")
		return
	}
	removed, err := s.posts.DeletePost(r.Context(), username, postID)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Post deleted successfully",
		"removed": removed,
	})
}
