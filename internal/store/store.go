package store

import (
	"context"
	"errors"
	"time"

	"github.com/alphabot-ai/ysocial/internal/model"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateName   = errors.New("duplicate name")
	ErrDuplicateEmail  = errors.New("duplicate email")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrStoreUnreadable = errors.New("social data is unreadable")
)

// AccountStore is the relational identity store: accounts, their enrolled
// public keys and outstanding login challenges.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) (int64, error)
	GetAccount(ctx context.Context, id int64) (model.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (model.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
	CountAccounts(ctx context.Context) (int64, error)

	AddAccountKey(ctx context.Context, accountID int64, key *model.AccountKey) (int64, error)
	GetAccountKeys(ctx context.Context, accountID int64) ([]model.AccountKey, error)
	RevokeAccountKey(ctx context.Context, accountID, keyID int64, revokedAt time.Time) error
	FindAccountKey(ctx context.Context, alg, publicKey string) (model.AccountKey, *model.Account, error)

	CreateChallenge(ctx context.Context, c model.Challenge) error
	ConsumeChallenge(ctx context.Context, challenge string) (model.Challenge, error)

	Close() error
}

// DocumentStore persists the whole social document. Load returns an empty
// document when nothing has been saved yet and ErrStoreUnreadable when the
// stored bytes cannot be decoded.
type DocumentStore interface {
	Load(ctx context.Context) (model.Document, error)
	Save(ctx context.Context, doc model.Document) error
	Close() error
}
