package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alphabot-ai/ysocial/internal/model"
	"github.com/alphabot-ai/ysocial/internal/store"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

var _ store.AccountStore = (*Store)(nil)

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: accounts
	`
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);
`,
	// Migration 2: key login
	`
CREATE TABLE IF NOT EXISTS account_keys (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	account_id INTEGER NOT NULL,
	alg TEXT NOT NULL,
	public_key TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	revoked_at INTEGER,
	FOREIGN KEY(account_id) REFERENCES accounts(id) ON DELETE CASCADE
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_account_keys_unique ON account_keys(alg, public_key);

CREATE TABLE IF NOT EXISTS auth_challenges (
	challenge TEXT PRIMARY KEY,
	alg TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

func (s *Store) CreateAccount(ctx context.Context, account *model.Account) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO accounts (username, email, password_hash, created_at)
VALUES (?, ?, ?, ?)
`, account.Username, account.Email, account.PasswordHash, account.CreatedAt.Unix())
	if err != nil {
		return 0, uniqueError(err)
	}
	return res.LastInsertId()
}

func (s *Store) GetAccount(ctx context.Context, id int64) (model.Account, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, username, email, password_hash, created_at
FROM accounts
WHERE id = ?
`, id)
	return scanAccount(row)
}

func (s *Store) GetAccountByUsername(ctx context.Context, username string) (model.Account, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, username, email, password_hash, created_at
FROM accounts
WHERE username = ?
`, username)
	return scanAccount(row)
}

func (s *Store) DeleteAccount(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM account_keys WHERE account_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		err = store.ErrNotFound
		return err
	}
	return tx.Commit()
}

func (s *Store) CountAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}

func (s *Store) AddAccountKey(ctx context.Context, accountID int64, key *model.AccountKey) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO account_keys (account_id, alg, public_key, created_at, revoked_at)
VALUES (?, ?, ?, ?, NULL)
`, accountID, key.Alg, key.PublicKey, key.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, store.ErrDuplicateKey
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetAccountKeys(ctx context.Context, accountID int64) ([]model.AccountKey, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, account_id, alg, public_key, created_at, revoked_at
FROM account_keys
WHERE account_id = ? AND revoked_at IS NULL
ORDER BY created_at ASC
`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []model.AccountKey
	for rows.Next() {
		var k model.AccountKey
		var created int64
		var revoked sql.NullInt64
		if err := rows.Scan(&k.ID, &k.AccountID, &k.Alg, &k.PublicKey, &created, &revoked); err != nil {
			return nil, err
		}
		k.CreatedAt = time.Unix(created, 0)
		if revoked.Valid {
			t := time.Unix(revoked.Int64, 0)
			k.RevokedAt = &t
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) RevokeAccountKey(ctx context.Context, accountID, keyID int64, revokedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE account_keys SET revoked_at = ? WHERE id = ? AND account_id = ?
`, revokedAt.Unix(), keyID, accountID)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) FindAccountKey(ctx context.Context, alg, publicKey string) (model.AccountKey, *model.Account, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT k.id, k.account_id, k.alg, k.public_key, k.created_at, k.revoked_at,
	a.id, a.username, a.email, a.password_hash, a.created_at
FROM account_keys k
LEFT JOIN accounts a ON a.id = k.account_id
WHERE k.alg = ? AND k.public_key = ?
LIMIT 1
`, alg, publicKey)
	var k model.AccountKey
	var created int64
	var revoked sql.NullInt64
	var accID sql.NullInt64
	var username, email, hash sql.NullString
	var accCreated sql.NullInt64
	if err := row.Scan(&k.ID, &k.AccountID, &k.Alg, &k.PublicKey, &created, &revoked, &accID, &username, &email, &hash, &accCreated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AccountKey{}, nil, store.ErrNotFound
		}
		return model.AccountKey{}, nil, err
	}
	k.CreatedAt = time.Unix(created, 0)
	if revoked.Valid {
		t := time.Unix(revoked.Int64, 0)
		k.RevokedAt = &t
	}
	if !accID.Valid {
		return k, nil, nil
	}
	a := model.Account{
		ID:           accID.Int64,
		Username:     username.String,
		Email:        email.String,
		PasswordHash: hash.String,
		CreatedAt:    time.Unix(accCreated.Int64, 0),
	}
	return k, &a, nil
}

func (s *Store) CreateChallenge(ctx context.Context, c model.Challenge) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO auth_challenges (challenge, alg, expires_at, created_at)
VALUES (?, ?, ?, ?)
`, c.Challenge, c.Alg, c.ExpiresAt.Unix(), time.Now().Unix())
	return err
}

// ConsumeChallenge returns the challenge and deletes it so it cannot be
// replayed.
func (s *Store) ConsumeChallenge(ctx context.Context, challenge string) (model.Challenge, error) {
	row := s.db.QueryRowContext(ctx, `
DELETE FROM auth_challenges
WHERE challenge = ?
RETURNING challenge, alg, expires_at
`, challenge)
	var c model.Challenge
	var expires int64
	if err := row.Scan(&c.Challenge, &c.Alg, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Challenge{}, store.ErrNotFound
		}
		return model.Challenge{}, err
	}
	c.ExpiresAt = time.Unix(expires, 0)
	return c, nil
}

func scanAccount(scanner interface{ Scan(dest ...any) error }) (model.Account, error) {
	var a model.Account
	var created int64
	if err := scanner.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, store.ErrNotFound
		}
		return model.Account{}, err
	}
	a.CreatedAt = time.Unix(created, 0)
	return a, nil
}

func uniqueError(err error) error {
	if !isUniqueViolation(err) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "accounts.username"):
		return store.ErrDuplicateName
	case strings.Contains(msg, "accounts.email"):
		return store.ErrDuplicateEmail
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
