package auth

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	PasswordSalt string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenPair is the wire form of one issued access/refresh credential pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`

	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// TokenRecord is one row of the access or refresh token store. Rows are an
// append-only audit log: they are never deleted, only flipped inactive.
type TokenRecord struct {
	ID        string
	UserID    int64
	TokenKey  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Active    bool
}

type TokenStats struct {
	Kind    string `json:"kind"`
	Total   int64  `json:"total"`
	Active  int64  `json:"active"`
	Revoked int64  `json:"revoked"`
	Expired int64  `json:"expired"`
}
