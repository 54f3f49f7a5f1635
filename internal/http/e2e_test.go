package httpapp_test

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/alphabot-ai/ysocial/internal/auth"
	"github.com/alphabot-ai/ysocial/internal/client"
	"github.com/alphabot-ai/ysocial/internal/config"
	httpapp "github.com/alphabot-ai/ysocial/internal/http"
	"github.com/alphabot-ai/ysocial/internal/metrics"
	"github.com/alphabot-ai/ysocial/internal/posts"
	"github.com/alphabot-ai/ysocial/internal/rate"
	"github.com/alphabot-ai/ysocial/internal/store/docfile"
	"github.com/alphabot-ai/ysocial/internal/store/sqlite"
)

func TestEndToEndServer(t *testing.T) {
	accounts, err := sqlite.Open("file:e2e_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer accounts.Close()
	docs, err := docfile.Open(filepath.Join(t.TempDir(), "social_data.json"))
	if err != nil {
		t.Fatalf("open document: %v", err)
	}

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.RateLimits = config.RateLimits{PostPerMinute: 1000, LoginPerMinute: 1000}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	postSvc := posts.NewService(docs, posts.Options{Strategy: posts.RankByRecency{Limit: 30}, Metrics: m, Logger: logger})
	authSvc := auth.NewService(accounts, postSvc, auth.Config{
		Secret:       []byte("e2e-secret"),
		TokenTTL:     time.Hour,
		ChallengeTTL: time.Minute,
		Logger:       logger,
	})
	server := httpapp.NewServer(postSvc, authSvc, rate.NewMemory(), m, logger, cfg)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	httpServer := &http.Server{Handler: server}
	go func() {
		_ = httpServer.Serve(listener)
	}()
	defer httpServer.Close()

	baseURL := "http://" + listener.Addr().String()
	helper := client.NewTestHelper(baseURL)

	alice, err := helper.CreateAuthenticatedClient("alice")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := helper.CreateAuthenticatedClient("bob")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}

	first, err := alice.CreatePost("first", []string{"#hello"})
	if err != nil {
		t.Fatalf("alice post: %v", err)
	}
	if _, err := bob.CreatePost("second", nil); err != nil {
		t.Fatalf("bob post: %v", err)
	}
	if _, err := alice.CreatePost(`bad\path`, nil); !errors.Is(err, client.ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}

	feed, err := alice.Feed()
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(feed) != 2 || feed[0].Username != "bob" || feed[1].Username != "alice" {
		t.Fatalf("unexpected feed %+v", feed)
	}

	notes, err := alice.Notifications()
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected one rejection notice, got %d", len(notes))
	}

	if err := bob.Follow("alice"); err != nil {
		t.Fatalf("follow: %v", err)
	}

	removed, err := bob.DeletePost(first.Post.ID)
	if err != nil {
		t.Fatalf("bob delete: %v", err)
	}
	if removed != 0 {
		t.Fatalf("bob must not delete alice's post")
	}
	removed, err = alice.DeletePost(first.Post.ID)
	if err != nil || removed != 1 {
		t.Fatalf("alice delete: removed=%d err=%v", removed, err)
	}

	greeting, err := alice.Whoami()
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if greeting != "You have logged in, alice, Role: User" {
		t.Fatalf("unexpected greeting %q", greeting)
	}

	creds, err := client.GenerateCredentials("alice")
	if err != nil {
		t.Fatalf("generate credentials: %v", err)
	}
	if err := alice.EnrollKey(creds); err != nil {
		t.Fatalf("enroll key: %v", err)
	}
	keyClient := client.New(baseURL)
	if err := keyClient.AuthenticateWithKey(creds); err != nil {
		t.Fatalf("key login: %v", err)
	}
	if !keyClient.IsAuthenticated() {
		t.Fatalf("expected a stored token after key login")
	}
}
