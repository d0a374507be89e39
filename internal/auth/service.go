package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// Store is the persistence surface the lifecycle service depends on. It is
// implemented by *Repository; tests substitute an in-memory fake.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash, passwordSalt string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, userID int64) (User, error)

	CreateTokenPair(ctx context.Context, userID int64, accessKey, refreshKey string, issuedAt, accessExpiresAt, refreshExpiresAt time.Time) (string, string, error)
	GetAccessToken(ctx context.Context, tokenID string) (TokenRecord, error)
	RevokeAccessToken(ctx context.Context, tokenID string) (bool, error)
	RevokeRefreshToken(ctx context.Context, tokenID string) (bool, error)
	RevokePair(ctx context.Context, accessID, refreshID string) error
}

// Service orchestrates the access/refresh token lifecycle: issuance,
// validation, rotation and revocation. It holds only immutable configuration
// and is safe for concurrent use.
type Service struct {
	store         Store
	jwtSecret     []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewService(store Store, jwtSecret, jwtRefreshSecret string) *Service {
	return &Service{
		store:         store,
		jwtSecret:     []byte(jwtSecret),
		refreshSecret: []byte(jwtRefreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
	}
}

func (s *Service) WithTokenTTLs(accessTTL, refreshTTL time.Duration) {
	if accessTTL > 0 {
		s.accessTTL = accessTTL
	}
	if refreshTTL > 0 {
		s.refreshTTL = refreshTTL
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(strings.ToLower(username))

	digest, salt, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}

	return s.store.CreateUser(ctx, username, digest, salt)
}

// Login verifies credentials and issues a fresh token pair. Unknown username
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	password = strings.TrimSpace(password)

	if username == "" || password == "" {
		return TokenPair{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}

	if !verifyPassword(password, user.PasswordHash, user.PasswordSalt) {
		return TokenPair{}, ErrInvalidCredentials
	}

	return s.Issue(ctx, user.ID)
}

// Issue mints, persists and encodes a new access/refresh pair for a user.
// Both rows and both wire forms share the same issuance instant, so the
// signed exp claims always match the stored expiries.
func (s *Service) Issue(ctx context.Context, userID int64) (TokenPair, error) {
	accessKey, err := randomKey(accessKeyLength)
	if err != nil {
		return TokenPair{}, err
	}
	refreshKey, err := randomKey(refreshKeyLength)
	if err != nil {
		return TokenPair{}, err
	}

	now := time.Now().UTC()
	accessExpiresAt := now.Add(s.accessTTL)
	refreshExpiresAt := now.Add(s.refreshTTL)

	accessID, refreshID, err := s.store.CreateTokenPair(ctx, userID, accessKey, refreshKey, now, accessExpiresAt, refreshExpiresAt)
	if err != nil {
		return TokenPair{}, err
	}

	accessToken, err := encodeToken(newClaims(userID, accessID, tokenTypeAccess, now, accessExpiresAt), s.jwtSecret)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := encodeToken(newClaims(userID, refreshID, tokenTypeRefresh, now, refreshExpiresAt), s.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenType:        "bearer",
		ExpiresIn:        int64(s.accessTTL.Seconds()),
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Validate resolves a wire-form access token to a user ID. Beyond the signed
// expiry it re-checks the store row, so a forged-but-correctly-signed exp
// claim or a revoked token is still rejected.
func (s *Service) Validate(ctx context.Context, rawAccess string) (int64, error) {
	claims, err := decodeToken(rawAccess, s.jwtSecret)
	if err != nil {
		return 0, err
	}
	if claims.TokenType != tokenTypeAccess {
		return 0, ErrTokenMalformed
	}

	userID, err := claims.userID()
	if err != nil {
		return 0, err
	}

	record, err := s.store.GetAccessToken(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return 0, ErrInvalidSession
		}
		return 0, err
	}
	if !record.Active || record.UserID != userID {
		return 0, ErrInvalidSession
	}
	if !time.Now().UTC().Before(record.ExpiresAt) {
		return 0, ErrTokenExpired
	}

	return userID, nil
}

// Rotate retires a token pair and issues its replacement in one step. The
// revocation of both rows is atomic and conditional on them still being
// active, so a replayed pair fails with ErrInvalidSession instead of
// minting a second lineage. The access token may already be expired; its
// signature must still verify.
func (s *Service) Rotate(ctx context.Context, rawAccess, rawRefresh string) (TokenPair, error) {
	accessClaims, err := decodeTokenAllowExpired(rawAccess, s.jwtSecret)
	if err != nil {
		return TokenPair{}, err
	}
	refreshClaims, err := decodeToken(rawRefresh, s.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}

	if accessClaims.TokenType != tokenTypeAccess || refreshClaims.TokenType != tokenTypeRefresh {
		return TokenPair{}, ErrTokenMalformed
	}

	userID, err := refreshClaims.userID()
	if err != nil {
		return TokenPair{}, err
	}
	accessUserID, err := accessClaims.userID()
	if err != nil {
		return TokenPair{}, err
	}
	if userID != accessUserID {
		return TokenPair{}, ErrInvalidSession
	}

	if err := s.store.RevokePair(ctx, accessClaims.ID, refreshClaims.ID); err != nil {
		return TokenPair{}, err
	}

	return s.Issue(ctx, userID)
}

// Logout revokes both rows of a pair. Revocation is idempotent and expired
// tokens are accepted: logging out a stale session is still a success.
func (s *Service) Logout(ctx context.Context, rawAccess, rawRefresh string) error {
	accessClaims, err := decodeTokenAllowExpired(rawAccess, s.jwtSecret)
	if err != nil {
		return err
	}
	refreshClaims, err := decodeTokenAllowExpired(rawRefresh, s.refreshSecret)
	if err != nil {
		return err
	}

	if _, err := s.store.RevokeAccessToken(ctx, accessClaims.ID); err != nil && !errors.Is(err, ErrTokenNotFound) {
		return err
	}
	if _, err := s.store.RevokeRefreshToken(ctx, refreshClaims.ID); err != nil && !errors.Is(err, ErrTokenNotFound) {
		return err
	}

	return nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (User, error) {
	return s.store.GetUserByID(ctx, userID)
}

func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

var ErrInvalidCredentials = errors.New("invalid credentials")
