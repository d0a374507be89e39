package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	accessKeyLength  = 50
	refreshKeyLength = 100
)

// Claims is the signed payload of a wire-form token. The jti carries the
// token store row ID so revocation can be checked server side.
type Claims struct {
	jwt.RegisteredClaims
	TokenType string `json:"type"`
}

func newClaims(userID int64, tokenID, tokenType string, issuedAt, expiresAt time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenType: tokenType,
	}
}

func (c Claims) userID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrTokenMalformed
	}
	return id, nil
}

func encodeToken(claims Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	encoded, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return encoded, nil
}

// pinnedKeyfunc rejects any signing algorithm other than HS256 before the
// secret is handed to the verifier. The alg header is never trusted.
func pinnedKeyfunc(secret []byte) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrUnexpectedSigningMethod
		}
		return secret, nil
	}
}

// decodeToken verifies the signature and expiry of a wire-form token.
func decodeToken(raw string, secret []byte) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, pinnedKeyfunc(secret))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnexpectedSigningMethod):
			return Claims{}, ErrUnexpectedSigningMethod
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		default:
			return Claims{}, ErrTokenMalformed
		}
	}
	if !token.Valid {
		return Claims{}, ErrTokenMalformed
	}

	return claims, nil
}

// decodeTokenAllowExpired verifies the signature but tolerates a past exp
// claim. Used on rotation and logout, where an expired access token still
// identifies store rows that must be retired.
func decodeTokenAllowExpired(raw string, secret []byte) (Claims, error) {
	claims, err := decodeToken(raw, secret)
	if errors.Is(err, ErrTokenExpired) {
		var expired Claims
		_, parseErr := jwt.ParseWithClaims(raw, &expired, pinnedKeyfunc(secret), jwt.WithoutClaimsValidation())
		if parseErr != nil {
			return Claims{}, ErrTokenMalformed
		}
		return expired, nil
	}
	return claims, err
}

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randomKey returns a crypto-random alphanumeric string used as per-token
// key material in the store rows.
func randomKey(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate token key: %w", err)
		}
		out[i] = keyAlphabet[n.Int64()]
	}
	return string(out), nil
}

var (
	ErrTokenExpired            = errors.New("token has expired")
	ErrTokenMalformed          = errors.New("token is malformed")
	ErrUnexpectedSigningMethod = errors.New("unexpected token signing method")
)
