// Package auth owns the identity side: password accounts, signed session
// tokens and the public-key challenge login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/alphabot-ai/ysocial/internal/model"
	"github.com/alphabot-ai/ysocial/internal/store"
)

const MinPasswordLength = 6

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrMissingField       = errors.New("username, email and password are required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrChallengeExpired   = errors.New("challenge expired")
	ErrAlgMismatch        = errors.New("challenge alg mismatch")
	ErrUnknownKey         = errors.New("key is not enrolled")
	ErrKeyRevoked         = errors.New("key revoked")
)

// ProfileCreator creates the social profile that pairs with a new account.
type ProfileCreator interface {
	CreateProfile(ctx context.Context, accountID int64, username string) error
}

type Config struct {
	Secret       []byte
	TokenTTL     time.Duration
	ChallengeTTL time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
}

type Service struct {
	accounts     store.AccountStore
	profiles     ProfileCreator
	secret       []byte
	tokenTTL     time.Duration
	challengeTTL time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// Token is a signed session token and its expiry.
type Token struct {
	Value     string
	Username  string
	ExpiresAt time.Time
}

func NewService(accounts store.AccountStore, profiles ProfileCreator, cfg Config) *Service {
	s := &Service{
		accounts:     accounts,
		profiles:     profiles,
		secret:       cfg.Secret,
		tokenTTL:     cfg.TokenTTL,
		challengeTTL: cfg.ChallengeTTL,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Register creates the account row and then its profile. When the profile
// step fails the account row is deleted again, so a failed registration
// leaves neither store changed.
func (s *Service) Register(ctx context.Context, username, email, password string) (model.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return model.Account{}, ErrMissingField
	}
	if len(password) < MinPasswordLength {
		return model.Account{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.Account{}, fmt.Errorf("hash password: %w", err)
	}
	account := model.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	id, err := s.accounts.CreateAccount(ctx, &account)
	if err != nil {
		return model.Account{}, err
	}
	account.ID = id

	if err := s.profiles.CreateProfile(ctx, id, username); err != nil {
		if derr := s.accounts.DeleteAccount(context.WithoutCancel(ctx), id); derr != nil {
			s.logger.Error("registration compensation failed",
				"username", username, "account_id", id, "error", derr)
			return model.Account{}, errors.Join(fmt.Errorf("create profile: %w", err), derr)
		}
		return model.Account{}, fmt.Errorf("create profile: %w", err)
	}
	s.logger.Info("account registered", "username", username, "account_id", id)
	return account, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (Token, error) {
	account, err := s.accounts.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Token{}, ErrInvalidCredentials
	}
	return s.Issue(account.Username)
}

// Issue signs an HS256 token whose subject is username.
func (s *Service) Issue(username string) (Token, error) {
	now := s.now()
	exp := now.Add(s.tokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, Username: username, ExpiresAt: exp}, nil
}

// Authenticate validates a bearer token and returns its username.
func (s *Service) Authenticate(ctx context.Context, bearer string) (string, error) {
	if bearer == "" {
		return "", ErrUnauthenticated
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(bearer, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return "", ErrUnauthenticated
	}
	return claims.Subject, nil
}

func (s *Service) CreateChallenge(ctx context.Context, alg string) (model.Challenge, error) {
	if !SupportedAlg(alg) {
		return model.Challenge{}, fmt.Errorf("unsupported alg: %s", alg)
	}
	challenge, err := randomToken(32)
	if err != nil {
		return model.Challenge{}, err
	}
	c := model.Challenge{
		Challenge: challenge,
		Alg:       strings.ToLower(alg),
		ExpiresAt: s.now().Add(s.challengeTTL),
	}
	if err := s.accounts.CreateChallenge(ctx, c); err != nil {
		return model.Challenge{}, err
	}
	return c, nil
}

// VerifyAndIssue consumes challenge, checks the signature over it and issues
// a session token for the account that enrolled publicKey.
func (s *Service) VerifyAndIssue(ctx context.Context, alg, publicKey, challenge, signature string) (Token, error) {
	c, err := s.accounts.ConsumeChallenge(ctx, challenge)
	if err != nil {
		return Token{}, err
	}
	if s.now().After(c.ExpiresAt) {
		return Token{}, ErrChallengeExpired
	}
	alg = strings.ToLower(alg)
	if c.Alg != alg {
		return Token{}, ErrAlgMismatch
	}
	if err := VerifySignature(alg, publicKey, challenge, signature); err != nil {
		return Token{}, err
	}

	key, account, err := s.accounts.FindAccountKey(ctx, alg, publicKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Token{}, ErrUnknownKey
		}
		return Token{}, err
	}
	if key.RevokedAt != nil {
		return Token{}, ErrKeyRevoked
	}
	if account == nil {
		return Token{}, ErrUnknownKey
	}
	return s.Issue(account.Username)
}

// AddKey enrolls publicKey for username's account.
func (s *Service) AddKey(ctx context.Context, username, alg, publicKey string) (model.AccountKey, error) {
	alg = strings.ToLower(alg)
	if !SupportedAlg(alg) {
		return model.AccountKey{}, fmt.Errorf("unsupported alg: %s", alg)
	}
	if strings.TrimSpace(publicKey) == "" {
		return model.AccountKey{}, errors.New("public_key is required")
	}
	account, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		return model.AccountKey{}, err
	}
	key := model.AccountKey{
		AccountID: account.ID,
		Alg:       alg,
		PublicKey: publicKey,
		CreatedAt: s.now(),
	}
	id, err := s.accounts.AddAccountKey(ctx, account.ID, &key)
	if err != nil {
		return model.AccountKey{}, err
	}
	key.ID = id
	return key, nil
}

func (s *Service) Keys(ctx context.Context, username string) ([]model.AccountKey, error) {
	account, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.accounts.GetAccountKeys(ctx, account.ID)
}

func (s *Service) RevokeKey(ctx context.Context, username string, keyID int64) error {
	account, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.accounts.RevokeAccountKey(ctx, account.ID, keyID, s.now())
}
