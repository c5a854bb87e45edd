package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerkeeper/ledgerkeeper/internal/auth"
	"github.com/ledgerkeeper/ledgerkeeper/internal/common"
	"github.com/ledgerkeeper/ledgerkeeper/internal/dbx"
)

const uniqueViolation = "23505"

// Accounts is the owner account registry backing register/login. It lives
// in the same database as the documents.
type Accounts struct {
	db       dbx.DBTX
	secret   []byte
	tokenTTL time.Duration
}

func NewAccounts(db dbx.DBTX, secret []byte, tokenTTL time.Duration) *Accounts {
	return &Accounts{db: db, secret: secret, tokenTTL: tokenTTL}
}

// Register creates an account and returns its owner id.
func (a *Accounts) Register(ctx context.Context, username, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.NewString()
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash) VALUES ($1, $2, $3)`,
		id, username, hash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", common.ErrLoginAlreadyExists
		}
		return "", fmt.Errorf("failed to create account: %w", err)
	}
	return id, nil
}

// Login verifies the credentials and returns a signed session token plus
// the owner id.
func (a *Accounts) Login(ctx context.Context, username, password string) (token, ownerID string, err error) {
	var hash []byte
	err = a.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE username=$1`, username).
		Scan(&ownerID, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", common.ErrInvalidLoginPassword
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", "", common.ErrInvalidLoginPassword
	}

	token, err = auth.GenerateToken(ownerID, a.secret, a.tokenTTL)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, ownerID, nil
}
