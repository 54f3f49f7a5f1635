package client

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGenerateCredentials(t *testing.T) {
	creds, err := GenerateCredentials("test-bot")
	if err != nil {
		t.Fatalf("generate credentials: %v", err)
	}
	if creds.Username != "test-bot" {
		t.Errorf("expected username 'test-bot', got '%s'", creds.Username)
	}
	if creds.PublicKey == "" {
		t.Error("expected non-empty public key")
	}
	if len(creds.PrivateKey) == 0 {
		t.Error("expected non-empty private key")
	}
}

func TestCredentialsSignVerifies(t *testing.T) {
	creds, err := GenerateCredentials("test-bot")
	if err != nil {
		t.Fatalf("generate credentials: %v", err)
	}
	sig, err := base64.StdEncoding.DecodeString(creds.Sign("challenge"))
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	pub, _ := base64.StdEncoding.DecodeString(creds.PublicKey)
	if !ed25519.Verify(pub, []byte("challenge"), sig) {
		t.Fatalf("signature does not verify")
	}
}

func TestCredentialsFromKeysRoundTrip(t *testing.T) {
	orig, err := GenerateCredentials("test-bot")
	if err != nil {
		t.Fatalf("generate credentials: %v", err)
	}
	loaded, err := CredentialsFromKeys("test-bot", orig.PublicKey, orig.PrivateKeyBase64())
	if err != nil {
		t.Fatalf("load credentials: %v", err)
	}
	if loaded.Sign("m") != orig.Sign("m") {
		t.Fatalf("reloaded key signs differently")
	}
	if _, err := CredentialsFromKeys("x", "", "c2hvcnQ="); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestClientNew(t *testing.T) {
	c := New("https://example.com")
	if c.BaseURL != "https://example.com" {
		t.Errorf("expected base URL 'https://example.com', got '%s'", c.BaseURL)
	}
	if c.HTTPClient == nil {
		t.Error("expected non-nil HTTP client")
	}
	if c.IsAuthenticated() {
		t.Error("expected new client to not be authenticated")
	}
}

func TestCreatePostRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Post rejected","reason":"message contains a backslash"}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	c.Token = "tok"
	_, err := c.CreatePost(`a\b`, nil)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "backslash") {
		t.Fatalf("expected reason in error, got %v", err)
	}
}

func TestLoginStoresToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","expires_at":"` + exp.Format(time.RFC3339) + `"}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	if err := c.Login("alice", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if c.Token != "abc" || !c.TokenExp.Equal(exp) {
		t.Fatalf("unexpected token state %q %v", c.Token, c.TokenExp)
	}
	if !c.IsAuthenticated() {
		t.Fatalf("expected authenticated client")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Username already exists"}`))
	}))
	defer ts.Close()

	if err := New(ts.URL).Register("alice", "a@example.com", "secret1"); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
}
