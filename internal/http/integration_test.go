package httpapp

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alphabot-ai/ysocial/internal/auth"
	"github.com/alphabot-ai/ysocial/internal/config"
	"github.com/alphabot-ai/ysocial/internal/metrics"
	"github.com/alphabot-ai/ysocial/internal/model"
	"github.com/alphabot-ai/ysocial/internal/posts"
	"github.com/alphabot-ai/ysocial/internal/rate"
	"github.com/alphabot-ai/ysocial/internal/store/docfile"
	"github.com/alphabot-ai/ysocial/internal/store/sqlite"
)

type testClient struct {
	server  *httptest.Server
	client  *http.Client
	auth    *auth.Service
	docPath string
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.AdminSecret = "admin"
	cfg.RateLimits = config.RateLimits{PostPerMinute: 1000, LoginPerMinute: 1000}
	return cfg
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	return newTestClientWithConfig(t, testConfig())
}

func newTestClientWithConfig(t *testing.T, cfg config.Config) *testClient {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dsnName := strings.NewReplacer("/", "_").Replace(t.Name())
	accounts, err := sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", dsnName))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	docPath := filepath.Join(t.TempDir(), "social_data.json")
	docs, err := docfile.Open(docPath)
	if err != nil {
		t.Fatalf("open document: %v", err)
	}
	strategy, err := posts.StrategyByName(cfg.Feed.Strategy, cfg.Feed.RecencyLimit, cfg.Feed.SampleLimit)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	m := metrics.New()
	postSvc := posts.NewService(docs, posts.Options{Strategy: strategy, Metrics: m, Logger: logger})
	authSvc := auth.NewService(accounts, postSvc, auth.Config{
		Secret:       []byte("test-secret"),
		TokenTTL:     time.Hour,
		ChallengeTTL: time.Minute,
		Logger:       logger,
	})
	server := NewServer(postSvc, authSvc, rate.NewMemory(), m, logger, cfg)
	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
		_ = accounts.Close()
	})
	return &testClient{server: ts, client: ts.Client(), auth: authSvc, docPath: docPath}
}

func (c *testClient) do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func (c *testClient) postJSON(t *testing.T, path string, body any, headers map[string]string) *http.Response {
	t.Helper()
	return c.do(t, http.MethodPost, path, body, headers)
}

func (c *testClient) get(t *testing.T, path string, headers map[string]string) *http.Response {
	t.Helper()
	return c.do(t, http.MethodGet, path, nil, headers)
}

func decodeJSON[T any](t *testing.T, resp *http.Response, out *T) {
	t.Helper()
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("json decode: %v (body %s)", err, string(body))
	}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// createTestAccount registers name and returns a valid access token.
func createTestAccount(t *testing.T, tc *testClient, name string) string {
	t.Helper()
	resp := tc.postJSON(t, "/register", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "password-" + name,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("register %s: %d %s", name, resp.StatusCode, body)
	}
	resp.Body.Close()

	resp = tc.postJSON(t, "/login", map[string]string{
		"username": name,
		"password": "password-" + name,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: %d", name, resp.StatusCode)
	}
	var login struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, resp, &login)
	if login.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	return login.AccessToken
}

func createPost(t *testing.T, tc *testClient, token, message string, hashtags ...string) *http.Response {
	t.Helper()
	if hashtags == nil {
		hashtags = []string{}
	}
	return tc.postJSON(t, "/post", map[string]any{"message": message, "hashtags": hashtags}, bearer(token))
}

func feed(t *testing.T, tc *testClient) []model.PostView {
	t.Helper()
	resp := tc.get(t, "/posts", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feed: %d", resp.StatusCode)
	}
	var out struct {
		Posts []model.PostView `json:"posts"`
	}
	decodeJSON(t, resp, &out)
	return out.Posts
}

func TestRegisterLoginProtected(t *testing.T) {
	tc := newTestClient(t)
	token := createTestAccount(t, tc, "alice")

	resp := tc.get(t, "/protected", bearer(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("protected: %d", resp.StatusCode)
	}
	var out map[string]string
	decodeJSON(t, resp, &out)
	if out["message"] != "You have logged in, alice, Role: User" {
		t.Fatalf("unexpected greeting %q", out["message"])
	}

	resp = tc.get(t, "/protected", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegisterDuplicateUsername(t *testing.T) {
	tc := newTestClient(t)
	createTestAccount(t, tc, "alice")

	resp := tc.postJSON(t, "/register", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "secret1",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var out map[string]string
	decodeJSON(t, resp, &out)
	if out["message"] != "Username already exists" {
		t.Fatalf("unexpected message %q", out["message"])
	}
}

func TestLoginWrongPassword(t *testing.T) {
	tc := newTestClient(t)
	createTestAccount(t, tc, "alice")

	resp := tc.postJSON(t, "/login", map[string]string{"username": "alice", "password": "nope-nope"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var out map[string]string
	decodeJSON(t, resp, &out)
	if out["message"] != "Invalid username or password" {
		t.Fatalf("unexpected message %q", out["message"])
	}
}

func TestCreatePostAppearsInFeed(t *testing.T) {
	tc := newTestClient(t)
	token := createTestAccount(t, tc, "alice")

	resp := createPost(t, tc, token, "hello", "#x")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create post: %d", resp.StatusCode)
	}
	var created struct {
		Message string     `json:"message"`
		Post    model.Post `json:"post"`
	}
	decodeJSON(t, resp, &created)
	if created.Message != "Post created successfully" || created.Post.ID == 0 {
		t.Fatalf("unexpected response %+v", created)
	}

	items := feed(t, tc)
	if len(items) != 1 {
		t.Fatalf("expected 1 post, got %d", len(items))
	}
	got := items[0]
	if got.Username != "alice" || got.Message != "hello" || len(got.Hashtags) != 1 || got.Hashtags[0] != "#x" {
		t.Fatalf("unexpected feed entry %+v", got)
	}
}

func TestFeedNewestFirst(t *testing.T) {
	tc := newTestClient(t)
	alice := createTestAccount(t, tc, "alice")
	bob := createTestAccount(t, tc, "bob")

	for i, token := range []string{alice, bob, alice} {
		resp := createPost(t, tc, token, fmt.Sprintf("post %d", i))
		resp.Body.Close()
	}
	items := feed(t, tc)
	if len(items) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].ID < items[i].ID {
			t.Fatalf("feed not sorted by id: %+v", items)
		}
	}
	if items[0].Message != "post 2" {
		t.Fatalf("expected newest post first, got %q", items[0].Message)
	}
}

func TestRejectedPostReturns422AndNotifies(t *testing.T) {
	tc := newTestClient(t)
	token := createTestAccount(t, tc, "alice")

	resp := createPost(t, tc, token, `C:\Windows`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var out map[string]string
	decodeJSON(t, resp, &out)
	if out["reason"] == "" {
		t.Fatalf("expected a reason")
	}

	if items := feed(t, tc); len(items) != 0 {
		t.Fatalf("rejected post should not be in the feed: %+v", items)
	}

	resp = tc.get(t, "/notifications", bearer(token))
	var notes struct {
		Notifications []model.Notification `json:"notifications"`
	}
	decodeJSON(t, resp, &notes)
	if len(notes.Notifications) != 1 || !strings.Contains(notes.Notifications[0].Message, "backslash") {
		t.Fatalf("expected one backslash notification, got %+v", notes.Notifications)
	}
}

func TestSilentRejectionCompat(t *testing.T) {
	cfg := testConfig()
	cfg.Compat.SilentRejection = true
	tc := newTestClientWithConfig(t, cfg)
	token := createTestAccount(t, tc, "alice")

	resp := createPost(t, tc, token, "tab\there")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 in compat mode, got %d", resp.StatusCode)
	}
	var out map[string]any
	decodeJSON(t, resp, &out)
	if out["message"] != "Post created successfully" || len(out) != 1 {
		t.Fatalf("expected the bare success body, got %v", out)
	}
	if items := feed(t, tc); len(items) != 0 {
		t.Fatalf("rejected post should not be in the feed")
	}
}

func TestCreatePostWithoutProfile(t *testing.T) {
	tc := newTestClient(t)
	token, err := tc.auth.Issue("ghost")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	resp := createPost(t, tc, token.Value, "hello")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var out map[string]string
	decodeJSON(t, resp, &out)
	if out["message"] != "User not found in social data" {
		t.Fatalf("unexpected message %q", out["message"])
	}
}

func TestUnreadableDocument(t *testing.T) {
	tc := newTestClient(t)
	token := createTestAccount(t, tc, "alice")
	if err := os.WriteFile(tc.docPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt document: %v", err)
	}

	resp := tc.get(t, "/posts", nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var out struct {
		Posts []model.PostView `json:"posts"`
	}
	decodeJSON(t, resp, &out)
	if out.Posts == nil || len(out.Posts) != 0 {
		t.Fatalf("expected empty posts array, got %v", out.Posts)
	}

	resp = createPost(t, tc, token, "hello")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 on create, got %d", resp.StatusCode)
	}
	var msg map[string]string
	decodeJSON(t, resp, &msg)
	if msg["message"] != "Error reading social data" {
		t.Fatalf("unexpected message %q", msg["message"])
	}
}

func TestDeletePostOwnOnly(t *testing.T) {
	tc := newTestClient(t)
	alice := createTestAccount(t, tc, "alice")
	bob := createTestAccount(t, tc, "bob")

	resp := createPost(t, tc, bob, "bob's post")
	var created struct {
		Post model.Post `json:"post"`
	}
	decodeJSON(t, resp, &created)

	resp = tc.do(t, http.MethodDelete, fmt.Sprintf("/posts/%d", created.Post.ID), nil, bearer(alice))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	var out struct {
		Removed int `json:"removed"`
	}
	decodeJSON(t, resp, &out)
	if out.Removed != 0 {
		t.Fatalf("non-admin removed another user's post")
	}
	if len(feed(t, tc)) != 1 {
		t.Fatalf("bob's post should survive")
	}

	resp = tc.do(t, http.MethodDelete, fmt.Sprintf("/posts/%d", created.Post.ID), nil, bearer(bob))
	decodeJSON(t, resp, &out)
	if out.Removed != 1 || len(feed(t, tc)) != 0 {
		t.Fatalf("owner should be able to delete, removed=%d", out.Removed)
	}
}

func TestAdminDeletesAnyPost(t *testing.T) {
	tc := newTestClient(t)
	root := createTestAccount(t, tc, "root")
	alice := createTestAccount(t, tc, "alice")

	resp := tc.postJSON(t, "/admin/role", map[string]string{"username": "root", "role": "Admin"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin secret, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = tc.postJSON(t, "/admin/role", map[string]string{"username": "root", "role": "Admin"},
		map[string]string{"X-Admin-Secret": "admin"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set role: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = createPost(t, tc, alice, "alice's post")
	var created struct {
		Post model.Post `json:"post"`
	}
	decodeJSON(t, resp, &created)

	resp = tc.do(t, http.MethodDelete, fmt.Sprintf("/posts/%d", created.Post.ID), nil, bearer(root))
	var out struct {
		Removed int `json:"removed"`
	}
	decodeJSON(t, resp, &out)
	if out.Removed != 1 {
		t.Fatalf("admin should remove the post, removed=%d", out.Removed)
	}
}

func TestDeletePostInvalidID(t *testing.T) {
	tc := newTestClient(t)
	token := createTestAccount(t, tc, "alice")
	resp := tc.do(t, http.MethodDelete, "/posts/abc", nil, bearer(token))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestFollowEndpoints(t *testing.T) {
	tc := newTestClient(t)
	alice := createTestAccount(t, tc, "alice")
	createTestAccount(t, tc, "bob")

	resp := tc.postJSON(t, "/users/bob/follow", nil, bearer(alice))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("follow: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = tc.postJSON(t, "/users/alice/follow", nil, bearer(alice))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on self-follow, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = tc.postJSON(t, "/users/zed/follow", nil, bearer(alice))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = tc.get(t, "/users", nil)
	var users struct {
		Users []model.Profile `json:"users"`
	}
	decodeJSON(t, resp, &users)
	byName := map[string]model.Profile{}
	for _, u := range users.Users {
		byName[u.Username] = u
	}
	if got := byName["alice"].Following; len(got) != 1 || got[0] != "bob" {
		t.Fatalf("alice.following = %v", got)
	}
	if got := byName["bob"].Followers; len(got) != 1 || got[0] != "alice" {
		t.Fatalf("bob.followers = %v", got)
	}

	resp = tc.do(t, http.MethodDelete, "/users/bob/follow", nil, bearer(alice))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unfollow: %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPostRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimits.PostPerMinute = 2
	tc := newTestClientWithConfig(t, cfg)
	token := createTestAccount(t, tc, "alice")

	for i := 0; i < 2; i++ {
		resp := createPost(t, tc, token, fmt.Sprintf("post %d", i))
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("post %d: %d", i, resp.StatusCode)
		}
		resp.Body.Close()
	}
	resp := createPost(t, tc, token, "one too many")
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	resp.Body.Close()
}

func TestKeyLogin(t *testing.T) {
	tc := newTestClient(t)
	token := createTestAccount(t, tc, "bot")

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pubStr := base64.StdEncoding.EncodeToString(pub)
	resp := tc.postJSON(t, "/auth/keys", map[string]string{"alg": "ed25519", "public_key": pubStr}, bearer(token))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("enroll key: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = tc.postJSON(t, "/auth/challenge", map[string]string{"alg": "ed25519"}, nil)
	var ch struct {
		Challenge string `json:"challenge"`
	}
	decodeJSON(t, resp, &ch)

	sig := ed25519.Sign(priv, []byte(ch.Challenge))
	resp = tc.postJSON(t, "/auth/verify", map[string]string{
		"alg":        "ed25519",
		"public_key": pubStr,
		"challenge":  ch.Challenge,
		"signature":  base64.StdEncoding.EncodeToString(sig),
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify: %d", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		Username    string `json:"username"`
	}
	decodeJSON(t, resp, &out)
	if out.Username != "bot" {
		t.Fatalf("expected token for bot, got %q", out.Username)
	}
	username, err := tc.auth.Authenticate(context.Background(), out.AccessToken)
	if err != nil || username != "bot" {
		t.Fatalf("key-login token invalid: %v %q", err, username)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	tc := newTestClient(t)
	token := createTestAccount(t, tc, "alice")
	createPost(t, tc, token, "count me").Body.Close()

	resp := tc.get(t, "/healthz", nil)
	var health map[string]bool
	decodeJSON(t, resp, &health)
	if !health["ok"] {
		t.Fatalf("healthz not ok")
	}

	resp = tc.get(t, "/metrics", nil)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "ysocial_posts_created_total 1") {
		t.Fatalf("metrics missing post counter:\n%s", body)
	}
	if !strings.Contains(string(body), `ysocial_http_request_duration_seconds_count{method="POST",route="/post",status="201"}`) {
		t.Fatalf("metrics missing route histogram")
	}

	resp = tc.get(t, "/openapi.json", nil)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ysocial API") {
		t.Fatalf("openapi doc: %d", resp.StatusCode)
	}
}

func TestCreatePostIgnoresExtraFields(t *testing.T) {
	tc := newTestClient(t)
	token := createTestAccount(t, tc, "alice")

	resp := tc.postJSON(t, "/post", map[string]any{
		"message":  "hello",
		"hashtags": []string{},
		"username": "alice",
	}, bearer(token))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 with an extra field, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
