package httpapp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alphabot-ai/ysocial/internal/auth"
	"github.com/alphabot-ai/ysocial/internal/store"
)

// handleRegister godoc
//
//	@Summary		Register
//	@Description	Create an account and its empty social profile.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			account	body		object{username=string,email=string,password=string}	true	"Account"
//	@Success		201		{object}	map[string]string	"User created"
//	@Failure		400		{object}	map[string]string	"Missing fields, weak password or duplicate username/email"
//	@Failure		500		{object}	map[string]string	"Profile could not be created"
//	@Router			/register [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSONLoose(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	_, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		writeMessage(w, http.StatusCreated, "User created successfully")
	case errors.Is(err, store.ErrDuplicateName):
		writeMessage(w, http.StatusBadRequest, "Username already exists")
	case errors.Is(err, store.ErrDuplicateEmail):
		writeMessage(w, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, auth.ErrMissingField), errors.Is(err, auth.ErrWeakPassword):
		writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		s.writeFailure(w, r, err)
	}
}

// handleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchange username and password for a bearer token.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body		object{username=string,password=string}	true	"Credentials"
//	@Success		200			{object}	map[string]interface{}	"Access token"
//	@Failure		401			{object}	map[string]string		"Invalid username or password"
//	@Failure		429			{object}	map[string]interface{}	"Rate limited"
//	@Router			/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRateLimit(w, r, "login", s.cfg.RateLimits.LoginPerMinute) {
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSONLoose(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token.Value,
		"expires_at":   token.ExpiresAt,
	})
}

// handleProtected godoc
//
//	@Summary		Who am I
//	@Tags			Accounts
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]string	"Greeting with role"
//	@Failure		401	{object}	map[string]string	"Missing or invalid token"
//	@Failure		404	{object}	map[string]string	"User not found"
//	@Router			/protected [get]
func (s *Server) handleProtected(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	p, err := s.posts.Profile(r.Context(), username)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	role := p.Role
	if role == "" {
		role = "User"
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("You have logged in, %s, Role: %s", username, role))
}

// handleAuthChallenge godoc
//
//	@Summary		Get a key-login challenge
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		object{alg=string}	true	"Signature algorithm"
//	@Success		200		{object}	map[string]interface{}	"Challenge and expiry"
//	@Failure		400		{object}	map[string]string		"Missing or unsupported alg"
//	@Router			/auth/challenge [post]
func (s *Server) handleAuthChallenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Alg string `json:"alg"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	alg := strings.TrimSpace(req.Alg)
	if !auth.SupportedAlg(alg) {
		writeMessage(w, http.StatusBadRequest, "Unsupported alg")
		return
	}
	challenge, err := s.auth.CreateChallenge(r.Context(), alg)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"challenge":  challenge.Challenge,
		"expires_at": challenge.ExpiresAt,
	})
}

// handleAuthVerify godoc
//
//	@Summary		Verify a signed challenge
//	@Description	Exchange a challenge signed with an enrolled key for a bearer token.
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			request	body		object{alg=string,public_key=string,challenge=string,signature=string}	true	"Signed challenge"
//	@Success		200		{object}	map[string]interface{}	"Access token"
//	@Failure		400		{object}	map[string]string		"Missing fields"
//	@Failure		401		{object}	map[string]string		"Invalid signature, unknown or revoked key"
//	@Router			/auth/verify [post]
func (s *Server) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Alg       string `json:"alg"`
		PublicKey string `json:"public_key"`
		Challenge string `json:"challenge"`
		Signature string `json:"signature"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Alg == "" || req.PublicKey == "" || req.Challenge == "" || req.Signature == "" {
		writeMessage(w, http.StatusBadRequest, "Missing fields")
		return
	}
	token, err := s.auth.VerifyAndIssue(r.Context(),
		strings.TrimSpace(req.Alg),
		strings.TrimSpace(req.PublicKey),
		strings.TrimSpace(req.Challenge),
		strings.TrimSpace(req.Signature),
	)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token.Value,
		"expires_at":   token.ExpiresAt,
		"username":     token.Username,
	})
}

// handleAddKey godoc
//
//	@Summary		Enroll a public key
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			key	body		object{alg=string,public_key=string}	true	"Key"
//	@Success		201	{object}	map[string]interface{}	"Key id"
//	@Failure		400	{object}	map[string]string		"Unsupported alg"
//	@Failure		409	{object}	map[string]string		"Key already enrolled"
//	@Router			/auth/keys [post]
func (s *Server) handleAddKey(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	var req struct {
		Alg       string `json:"alg"`
		PublicKey string `json:"public_key"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !auth.SupportedAlg(strings.TrimSpace(req.Alg)) || strings.TrimSpace(req.PublicKey) == "" {
		writeMessage(w, http.StatusBadRequest, "alg and public_key are required")
		return
	}
	key, err := s.auth.AddKey(r.Context(), username, strings.TrimSpace(req.Alg), strings.TrimSpace(req.PublicKey))
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			writeMessage(w, http.StatusConflict, "Key already enrolled")
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"key_id": key.ID})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	keys, err := s.auth.Keys(r.Context(), username)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	out := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, map[string]any{
			"id":         k.ID,
			"alg":        k.Alg,
			"public_key": k.PublicKey,
			"created_at": k.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": out})
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	username, ok := s.requireAuth(w, r)
	if !ok {
		return
	}
	keyID, err := strconv.ParseInt(chi.URLParam(r, "keyId"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid key id")
		return
	}
	if err := s.auth.RevokeKey(r.Context(), username, keyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Key not found")
			return
		}
		s.writeFailure(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Key revoked")
}
