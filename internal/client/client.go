// Package client provides a Go client for the ysocial API.
package client

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alphabot-ai/ysocial/internal/model"
)

var (
	ErrAlreadyRegistered = errors.New("already registered")
	ErrRejected          = errors.New("post rejected")
)

// Client is a ysocial API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	TokenExp   time.Time
}

// Credentials holds an ed25519 keypair used for key login.
type Credentials struct {
	Username   string
	PublicKey  string
	PrivateKey ed25519.PrivateKey
}

// PostResult is the server's answer to CreatePost. Post is nil when the
// server runs in silent-rejection mode.
type PostResult struct {
	Message string      `json:"message"`
	Reason  string      `json:"reason,omitempty"`
	Post    *model.Post `json:"post,omitempty"`
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GenerateCredentials creates a new ed25519 keypair.
func GenerateCredentials(username string) (*Credentials, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		Username:   username,
		PublicKey:  base64.StdEncoding.EncodeToString(pub),
		PrivateKey: priv,
	}, nil
}

// CredentialsFromKeys rebuilds credentials from a stored base64 private key.
func CredentialsFromKeys(username, pubKeyB64, privKeyB64 string) (*Credentials, error) {
	privBytes, err := base64.StdEncoding.DecodeString(privKeyB64)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(privBytes) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid private key length")
	}
	return &Credentials{
		Username:   username,
		PublicKey:  pubKeyB64,
		PrivateKey: ed25519.PrivateKey(privBytes),
	}, nil
}

func (creds *Credentials) PrivateKeyBase64() string {
	return base64.StdEncoding.EncodeToString(creds.PrivateKey)
}

func (creds *Credentials) Sign(message string) string {
	sig := ed25519.Sign(creds.PrivateKey, []byte(message))
	return base64.StdEncoding.EncodeToString(sig)
}

func (c *Client) Register(username, email, password string) error {
	resp, err := c.doRequest(http.MethodPost, "/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		return nil
	}
	msg := readMessage(resp.Body)
	if resp.StatusCode == http.StatusBadRequest && (msg == "Username already exists" || msg == "Email already exists") {
		return ErrAlreadyRegistered
	}
	return fmt.Errorf("register failed (%d): %s", resp.StatusCode, msg)
}

// Login stores the returned bearer token on the client.
func (c *Client) Login(username, password string) error {
	resp, err := c.doRequest(http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.storeToken(resp, "login")
}

// RegisterAndLogin registers (if needed) and logs in.
func (c *Client) RegisterAndLogin(username, email, password string) error {
	if err := c.Register(username, email, password); err != nil && !errors.Is(err, ErrAlreadyRegistered) {
		return fmt.Errorf("register: %w", err)
	}
	return c.Login(username, password)
}

func (c *Client) IsAuthenticated() bool {
	return c.Token != "" && time.Now().Before(c.TokenExp)
}

// Whoami returns the greeting from /protected.
func (c *Client) Whoami() (string, error) {
	resp, err := c.doRequest(http.MethodGet, "/protected", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	msg := readMessage(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whoami failed (%d): %s", resp.StatusCode, msg)
	}
	return msg, nil
}

// CreatePost returns ErrRejected, wrapped with the reason, when the content
// filter refuses the message.
func (c *Client) CreatePost(message string, hashtags []string) (*PostResult, error) {
	if hashtags == nil {
		hashtags = []string{}
	}
	resp, err := c.doRequest(http.MethodPost, "/post", map[string]any{
		"message":  message,
		"hashtags": hashtags,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var result PostResult
	_ = json.Unmarshal(body, &result)
	switch resp.StatusCode {
	case http.StatusCreated:
		return &result, nil
	case http.StatusUnprocessableEntity:
		return &result, fmt.Errorf("%w: %s", ErrRejected, result.Reason)
	default:
		return nil, fmt.Errorf("create post failed (%d): %s", resp.StatusCode, result.Message)
	}
}

func (c *Client) Feed() ([]model.PostView, error) {
	resp, err := c.doRequest(http.MethodGet, "/posts", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed failed (%d)", resp.StatusCode)
	}
	var result struct {
		Posts []model.PostView `json:"posts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Posts, nil
}

// DeletePost returns how many posts the server removed.
func (c *Client) DeletePost(id int64) (int, error) {
	resp, err := c.doRequest(http.MethodDelete, fmt.Sprintf("/posts/%d", id), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("delete post failed (%d): %s", resp.StatusCode, readMessage(resp.Body))
	}
	var result struct {
		Removed int `json:"removed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, err
	}
	return result.Removed, nil
}

func (c *Client) Follow(username string) error {
	return c.simple(http.MethodPost, "/users/"+username+"/follow", "follow")
}

func (c *Client) Unfollow(username string) error {
	return c.simple(http.MethodDelete, "/users/"+username+"/follow", "unfollow")
}

func (c *Client) Notifications() ([]model.Notification, error) {
	resp, err := c.doRequest(http.MethodGet, "/notifications", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("notifications failed (%d): %s", resp.StatusCode, readMessage(resp.Body))
	}
	var result struct {
		Notifications []model.Notification `json:"notifications"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Notifications, nil
}

func (c *Client) Users() ([]model.Profile, error) {
	resp, err := c.doRequest(http.MethodGet, "/users", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("users failed (%d): %s", resp.StatusCode, readMessage(resp.Body))
	}
	var result struct {
		Users []model.Profile `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

// GetChallenge requests a key-login challenge.
func (c *Client) GetChallenge(alg string) (string, error) {
	resp, err := c.doRequest(http.MethodPost, "/auth/challenge", map[string]string{"alg": alg})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var result struct {
		Challenge string `json:"challenge"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("challenge failed (%d): %s", resp.StatusCode, result.Message)
	}
	return result.Challenge, nil
}

// EnrollKey registers creds' public key with the logged-in account.
func (c *Client) EnrollKey(creds *Credentials) error {
	resp, err := c.doRequest(http.MethodPost, "/auth/keys", map[string]string{
		"alg":        "ed25519",
		"public_key": creds.PublicKey,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("enroll key failed (%d): %s", resp.StatusCode, readMessage(resp.Body))
	}
	return nil
}

// AuthenticateWithKey signs a fresh challenge and stores the bearer token.
func (c *Client) AuthenticateWithKey(creds *Credentials) error {
	challenge, err := c.GetChallenge("ed25519")
	if err != nil {
		return fmt.Errorf("get challenge: %w", err)
	}
	resp, err := c.doRequest(http.MethodPost, "/auth/verify", map[string]string{
		"alg":        "ed25519",
		"public_key": creds.PublicKey,
		"challenge":  challenge,
		"signature":  creds.Sign(challenge),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.storeToken(resp, "auth")
}

func (c *Client) storeToken(resp *http.Response, op string) error {
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed (%d): %s", op, resp.StatusCode, readMessage(resp.Body))
	}
	var result struct {
		AccessToken string    `json:"access_token"`
		ExpiresAt   time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	c.Token = result.AccessToken
	c.TokenExp = result.ExpiresAt
	return nil
}

func (c *Client) simple(method, path, op string) error {
	resp, err := c.doRequest(method, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed (%d): %s", op, resp.StatusCode, readMessage(resp.Body))
	}
	return nil
}

// doRequest performs an HTTP request, attaching the bearer token when set.
func (c *Client) doRequest(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.HTTPClient.Do(req)
}

func readMessage(r io.Reader) string {
	body, _ := io.ReadAll(r)
	var result struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.Message == "" {
		return string(bytes.TrimSpace(body))
	}
	return result.Message
}

// TestHelper provides utilities for creating authenticated clients in tests.
type TestHelper struct {
	BaseURL string
}

func NewTestHelper(baseURL string) *TestHelper {
	return &TestHelper{BaseURL: baseURL}
}

// CreateAuthenticatedClient registers name with a derived email and password
// and returns a logged-in client.
func (h *TestHelper) CreateAuthenticatedClient(name string) (*Client, error) {
	c := New(h.BaseURL)
	if err := c.RegisterAndLogin(name, name+"@example.test", "password-"+name); err != nil {
		return nil, err
	}
	return c, nil
}

// GetToken creates an account (if needed) and returns an access token.
func (h *TestHelper) GetToken(name string) (string, error) {
	c, err := h.CreateAuthenticatedClient(name)
	if err != nil {
		return "", err
	}
	return c.Token, nil
}
