package auth

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// fakeStore is an in-memory Store used by service, middleware and handler
// tests. It mirrors the repository contract, including the conditional
// revoke semantics RevokePair relies on.
type fakeStore struct {
	mu         sync.Mutex
	nextUserID int64
	nextToken  int
	users      map[int64]User
	access     map[string]*TokenRecord
	refresh    map[string]*TokenRecord

	failNextCreatePair error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   make(map[int64]User),
		access:  make(map[string]*TokenRecord),
		refresh: make(map[string]*TokenRecord),
	}
}

func (f *fakeStore) CreateUser(ctx context.Context, username, passwordHash, passwordSalt string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == username {
			return User{}, ErrUsernameTaken
		}
	}

	f.nextUserID++
	now := time.Now().UTC()
	user := User{
		ID:           f.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		PasswordSalt: passwordSalt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.users[user.ID] = user

	return user, nil
}

func (f *fakeStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, sql.ErrNoRows
}

func (f *fakeStore) GetUserByID(ctx context.Context, userID int64) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[userID]
	if !ok {
		return User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeStore) CreateTokenPair(ctx context.Context, userID int64, accessKey, refreshKey string, issuedAt, accessExpiresAt, refreshExpiresAt time.Time) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNextCreatePair != nil {
		err := f.failNextCreatePair
		f.failNextCreatePair = nil
		return "", "", err
	}

	f.nextToken++
	accessID := fmt.Sprintf("access-%d", f.nextToken)
	refreshID := fmt.Sprintf("refresh-%d", f.nextToken)

	f.access[accessID] = &TokenRecord{
		ID: accessID, UserID: userID, TokenKey: accessKey,
		IssuedAt: issuedAt, ExpiresAt: accessExpiresAt, Active: true,
	}
	f.refresh[refreshID] = &TokenRecord{
		ID: refreshID, UserID: userID, TokenKey: refreshKey,
		IssuedAt: issuedAt, ExpiresAt: refreshExpiresAt, Active: true,
	}

	return accessID, refreshID, nil
}

func (f *fakeStore) GetAccessToken(ctx context.Context, tokenID string) (TokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.access[tokenID]
	if !ok {
		return TokenRecord{}, ErrTokenNotFound
	}
	return *record, nil
}

func (f *fakeStore) RevokeAccessToken(ctx context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return revokeFake(f.access, tokenID)
}

func (f *fakeStore) RevokeRefreshToken(ctx context.Context, tokenID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return revokeFake(f.refresh, tokenID)
}

func (f *fakeStore) RevokePair(ctx context.Context, accessID, refreshID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	accessRevoked, err := revokeFake(f.access, accessID)
	if err != nil && err != ErrTokenNotFound {
		return err
	}
	refreshRevoked, err := revokeFake(f.refresh, refreshID)
	if err != nil && err != ErrTokenNotFound {
		return err
	}

	if !accessRevoked || !refreshRevoked {
		return ErrInvalidSession
	}
	return nil
}

func revokeFake(records map[string]*TokenRecord, tokenID string) (bool, error) {
	record, ok := records[tokenID]
	if !ok {
		return false, ErrTokenNotFound
	}
	if !record.Active {
		return false, nil
	}
	record.Active = false
	return true, nil
}

func (f *fakeStore) accessRecord(tokenID string) *TokenRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access[tokenID]
}

func (f *fakeStore) refreshRecord(tokenID string) *TokenRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh[tokenID]
}
