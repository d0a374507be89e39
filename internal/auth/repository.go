package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	accessTokenTable  = "user_access_tokens"
	refreshTokenTable = "user_refresh_tokens"
)

const pgUniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateUser(ctx context.Context, username, passwordHash, passwordSalt string) (User, error) {
	now := time.Now().UTC()

	user := User{
		Username:     username,
		PasswordHash: passwordHash,
		PasswordSalt: passwordSalt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, password_salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING user_id
	`, username, passwordHash, passwordSalt, now).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return User{}, ErrUsernameTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, username, password_hash, password_salt, created_at, updated_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.PasswordSalt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("query user by username: %w", err)
	}

	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, userID int64) (User, error) {
	var user User
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, username, password_hash, password_salt, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`, userID).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.PasswordSalt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("query user by id: %w", err)
	}

	return user, nil
}

// CreateTokenPair inserts one access and one refresh row in a single
// transaction and returns the generated row IDs used as jti claims.
func (r *Repository) CreateTokenPair(ctx context.Context, userID int64, accessKey, refreshKey string, issuedAt, accessExpiresAt, refreshExpiresAt time.Time) (string, string, error) {
	accessID, err := uuid.NewV7()
	if err != nil {
		return "", "", fmt.Errorf("generate access token id: %w", err)
	}
	refreshID, err := uuid.NewV7()
	if err != nil {
		return "", "", fmt.Errorf("generate refresh token id: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("begin token pair tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO `+accessTokenTable+` (id, user_id, token_key, issued_at, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`, accessID.String(), userID, accessKey, issuedAt.UTC(), accessExpiresAt.UTC())
	if err != nil {
		return "", "", fmt.Errorf("insert access token: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO `+refreshTokenTable+` (id, user_id, token_key, issued_at, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`, refreshID.String(), userID, refreshKey, issuedAt.UTC(), refreshExpiresAt.UTC())
	if err != nil {
		return "", "", fmt.Errorf("insert refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", "", fmt.Errorf("commit token pair tx: %w", err)
	}

	return accessID.String(), refreshID.String(), nil
}

func (r *Repository) GetAccessToken(ctx context.Context, tokenID string) (TokenRecord, error) {
	return r.getToken(ctx, accessTokenTable, tokenID)
}

func (r *Repository) GetRefreshToken(ctx context.Context, tokenID string) (TokenRecord, error) {
	return r.getToken(ctx, refreshTokenTable, tokenID)
}

func (r *Repository) getToken(ctx context.Context, table, tokenID string) (TokenRecord, error) {
	var record TokenRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_key, issued_at, expires_at, active
		FROM `+table+`
		WHERE id = $1
	`, tokenID).Scan(&record.ID, &record.UserID, &record.TokenKey, &record.IssuedAt, &record.ExpiresAt, &record.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenRecord{}, ErrTokenNotFound
		}
		return TokenRecord{}, fmt.Errorf("query token from %s: %w", table, err)
	}

	record.IssuedAt = record.IssuedAt.UTC()
	record.ExpiresAt = record.ExpiresAt.UTC()

	return record, nil
}

// RevokeAccessToken flips a single access row inactive. The update is
// conditional on the row still being active, so a concurrent revoke of the
// same row observes "already inactive" instead of a lost update. Revoking an
// already-inactive row is a no-op success reported as false.
func (r *Repository) RevokeAccessToken(ctx context.Context, tokenID string) (bool, error) {
	return r.revokeToken(ctx, r.db, accessTokenTable, tokenID)
}

func (r *Repository) RevokeRefreshToken(ctx context.Context, tokenID string) (bool, error) {
	return r.revokeToken(ctx, r.db, refreshTokenTable, tokenID)
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repository) revokeToken(ctx context.Context, db execQuerier, table, tokenID string) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE `+table+`
		SET active = FALSE
		WHERE id = $1 AND active
	`, tokenID)
	if err != nil {
		return false, fmt.Errorf("revoke token in %s: %w", table, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke token rows affected: %w", err)
	}
	if affected == 1 {
		return true, nil
	}

	var exists bool
	err = db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)
	`, tokenID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token existence in %s: %w", table, err)
	}
	if !exists {
		return false, ErrTokenNotFound
	}

	return false, nil
}

// RevokePair atomically retires both rows of a token pair. If either row is
// already inactive or missing the whole transaction fails with
// ErrInvalidSession: that is the replay signal for an already-rotated pair.
func (r *Repository) RevokePair(ctx context.Context, accessID, refreshID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revoke pair tx: %w", err)
	}
	defer tx.Rollback()

	accessRevoked, err := r.revokeToken(ctx, tx, accessTokenTable, accessID)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return err
	}
	refreshRevoked, err := r.revokeToken(ctx, tx, refreshTokenTable, refreshID)
	if err != nil && !errors.Is(err, ErrTokenNotFound) {
		return err
	}

	if !accessRevoked || !refreshRevoked {
		return ErrInvalidSession
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revoke pair tx: %w", err)
	}

	return nil
}

// TokenStoreStats reports audit counts over both token tables. The stores are
// append-only, so revoked and expired rows remain countable indefinitely.
func (r *Repository) TokenStoreStats(ctx context.Context) ([]TokenStats, error) {
	stats := make([]TokenStats, 0, 2)
	for _, table := range []string{accessTokenTable, refreshTokenTable} {
		var s TokenStats
		s.Kind = table
		err := r.db.QueryRowContext(ctx, `
			SELECT
				COUNT(*),
				COUNT(*) FILTER (WHERE active AND expires_at > NOW()),
				COUNT(*) FILTER (WHERE NOT active),
				COUNT(*) FILTER (WHERE active AND expires_at <= NOW())
			FROM `+table+`
		`).Scan(&s.Total, &s.Active, &s.Revoked, &s.Expired)
		if err != nil {
			return nil, fmt.Errorf("count tokens in %s: %w", table, err)
		}
		stats = append(stats, s)
	}

	return stats, nil
}

var (
	ErrUsernameTaken  = errors.New("username is already taken")
	ErrTokenNotFound  = errors.New("token not found")
	ErrInvalidSession = errors.New("invalid session")
)
