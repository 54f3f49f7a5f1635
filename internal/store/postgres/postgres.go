// Package postgres implements the identity store on Postgres through a pgx
// connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alphabot-ai/ysocial/internal/model"
	"github.com/alphabot-ai/ysocial/internal/store"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

var _ store.AccountStore = (*Store)(nil)

// Open connects to dsn and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse identity dsn: %w", err)
	}
	cfg.MaxConns = 20
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect identity store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping identity store: %w", err)
	}
	if err := applySchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS accounts (
	id BIGSERIAL PRIMARY KEY,
	username TEXT NOT NULL CONSTRAINT accounts_username_key UNIQUE,
	email TEXT NOT NULL CONSTRAINT accounts_email_key UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`,
	`
CREATE TABLE IF NOT EXISTS account_keys (
	id BIGSERIAL PRIMARY KEY,
	account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	alg TEXT NOT NULL,
	public_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	revoked_at TIMESTAMPTZ,
	UNIQUE (alg, public_key)
);
CREATE TABLE IF NOT EXISTS auth_challenges (
	challenge TEXT PRIMARY KEY,
	alg TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`,
}

func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}
	var current int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return err
	}
	for i := current; i < len(migrations); i++ {
		if _, err := pool.Exec(ctx, migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, account *model.Account) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO accounts (username, email, password_hash, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id
`, account.Username, account.Email, account.PasswordHash, account.CreatedAt).Scan(&id)
	if err != nil {
		return 0, uniqueError(err)
	}
	return id, nil
}

func (s *Store) GetAccount(ctx context.Context, id int64) (model.Account, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, username, email, password_hash, created_at FROM accounts WHERE id = $1
`, id)
	return scanAccount(row)
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (model.Account, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, username, email, password_hash, created_at FROM accounts WHERE username = $1
`, username)
	return scanAccount(row)
}

func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}

func (s *Store) AddAccountKey(ctx context.Context, accountID int64, key *model.AccountKey) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
INSERT INTO account_keys (account_id, alg, public_key, created_at)
VALUES ($1, $2, $3, $4)
RETURNING id
`, accountID, key.Alg, key.PublicKey, key.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, store.ErrDuplicateKey
		}
		return 0, err
	}
	return id, nil
}

func (s *Store) GetAccountKeys(ctx context.Context, accountID int64) ([]model.AccountKey, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, account_id, alg, public_key, created_at, revoked_at
FROM account_keys
WHERE account_id = $1 AND revoked_at IS NULL
ORDER BY created_at ASC
`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []model.AccountKey
	for rows.Next() {
		var k model.AccountKey
		if err := rows.Scan(&k.ID, &k.AccountID, &k.Alg, &k.PublicKey, &k.CreatedAt, &k.RevokedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) RevokeAccountKey(ctx context.Context, accountID, keyID int64, revokedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE account_keys SET revoked_at = $1 WHERE id = $2 AND account_id = $3
`, revokedAt, keyID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) FindAccountKey(ctx context.Context, alg, publicKey string) (model.AccountKey, *model.Account, error) {
	row := s.pool.QueryRow(ctx, `
SELECT k.id, k.account_id, k.alg, k.public_key, k.created_at, k.revoked_at,
	a.id, a.username, a.email, a.password_hash, a.created_at
FROM account_keys k
LEFT JOIN accounts a ON a.id = k.account_id
WHERE k.alg = $1 AND k.public_key = $2
LIMIT 1
`, alg, publicKey)
	var k model.AccountKey
	var accID *int64
	var username, email, hash *string
	var accCreated *time.Time
	if err := row.Scan(&k.ID, &k.AccountID, &k.Alg, &k.PublicKey, &k.CreatedAt, &k.RevokedAt, &accID, &username, &email, &hash, &accCreated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AccountKey{}, nil, store.ErrNotFound
		}
		return model.AccountKey{}, nil, err
	}
	if accID == nil {
		return k, nil, nil
	}
	a := model.Account{ID: *accID}
	if username != nil {
		a.Username = *username
	}
	if email != nil {
		a.Email = *email
	}
	if hash != nil {
		a.PasswordHash = *hash
	}
	if accCreated != nil {
		a.CreatedAt = *accCreated
	}
	return k, &a, nil
}

func (s *Store) CreateChallenge(ctx context.Context, c model.Challenge) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO auth_challenges (challenge, alg, expires_at) VALUES ($1, $2, $3)
`, c.Challenge, c.Alg, c.ExpiresAt)
	return err
}

func (s *Store) ConsumeChallenge(ctx context.Context, challenge string) (model.Challenge, error) {
	var c model.Challenge
	err := s.pool.QueryRow(ctx, `
DELETE FROM auth_challenges WHERE challenge = $1
RETURNING challenge, alg, expires_at
`, challenge).Scan(&c.Challenge, &c.Alg, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Challenge{}, store.ErrNotFound
		}
		return model.Challenge{}, err
	}
	return c, nil
}

func scanAccount(row pgx.Row) (model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, store.ErrNotFound
		}
		return model.Account{}, err
	}
	return a, nil
}

func uniqueError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "accounts_username_key":
		return store.ErrDuplicateName
	case "accounts_email_key":
		return store.ErrDuplicateEmail
	}
	return err
}
