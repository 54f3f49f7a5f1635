package httpapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"

	_ "github.com/alphabot-ai/ysocial/docs" // swagger docs
	"github.com/alphabot-ai/ysocial/internal/auth"
	"github.com/alphabot-ai/ysocial/internal/config"
	"github.com/alphabot-ai/ysocial/internal/metrics"
	"github.com/alphabot-ai/ysocial/internal/posts"
	"github.com/alphabot-ai/ysocial/internal/rate"
	"github.com/alphabot-ai/ysocial/internal/store"
)

const (
	msgStoreUnreadable = "Error reading social data"
	msgInternal        = "Internal server error"
)

type Server struct {
	posts   *posts.Service
	auth    *auth.Service
	limiter rate.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger
	cfg     config.Config
	router  chi.Router
}

func NewServer(postSvc *posts.Service, authSvc *auth.Service, limiter rate.Limiter, m *metrics.Metrics, logger *slog.Logger, cfg config.Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		posts:   postSvc,
		auth:    authSvc,
		limiter: limiter,
		metrics: m,
		logger:  logger,
		cfg:     cfg,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Get("/protected", s.handleProtected)

	r.Post("/post", s.handleCreatePost)
	r.Get("/posts", s.handleListPosts)
	r.Delete("/posts/{postId}", s.handleDeletePost)

	r.Get("/users", s.handleListUsers)
	r.Post("/users/{username}/follow", s.handleFollow)
	r.Delete("/users/{username}/follow", s.handleUnfollow)
	r.Get("/notifications", s.handleNotifications)
	r.Post("/admin/role", s.handleAdminRole)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/challenge", s.handleAuthChallenge)
		r.Post("/verify", s.handleAuthVerify)
		r.Get("/keys", s.handleListKeys)
		r.Post("/keys", s.handleAddKey)
		r.Delete("/keys/{keyId}", s.handleRevokeKey)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", s.metrics.Handler())
	r.Get("/openapi.json", s.serveOpenAPIJSON)
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	return r
}

// unmatchedRoute labels requests no route matched, keeping the histogram's
// route label bounded.
const unmatchedRoute = "unmatched"

// accessLog logs one line per request and feeds the latency histogram,
// labelled by route pattern rather than raw path.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveHTTP(r.Method, route, status, elapsed)
		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", elapsed),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

// writeFailure maps service errors onto the wire. Anything unrecognised is
// logged and answered with a generic 500.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, posts.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, store.ErrStoreUnreadable):
		s.logger.Error("social document unreadable", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgStoreUnreadable)
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

func (s *Server) allowRateLimit(w http.ResponseWriter, r *http.Request, action string, limit int) bool {
	if limit <= 0 || s.limiter == nil {
		return true
	}
	key := fmt.Sprintf("%s:ip:%s", action, s.clientIP(r))
	if ok, retry := s.limiter.Allow(key, limit, time.Minute); !ok {
		writeRateLimit(w, retry)
		return false
	}
	return true
}

// requireAuth resolves the bearer token to a username, answering 401 itself
// when it cannot.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		writeMessage(w, http.StatusUnauthorized, "Missing bearer token")
		return "", false
	}
	bearer := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	username, err := s.auth.Authenticate(r.Context(), bearer)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid or expired token")
		return "", false
	}
	return username, true
}

func (s *Server) requireAdminSecret(w http.ResponseWriter, r *http.Request) bool {
	if s.cfg.AdminSecret == "" || r.Header.Get("X-Admin-Secret") != s.cfg.AdminSecret {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	return true
}

func (s *Server) clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

// readJSONLoose decodes without rejecting unknown keys. /register, /login and
// /post accept extra fields from existing clients.
func readJSONLoose(body io.ReadCloser, dest any) error {
	defer body.Close()
	return json.NewDecoder(body).Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"message": message})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	secs := int(math.Ceil(retry.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"message":     "Rate limit exceeded",
		"retry_after": secs,
	})
}
