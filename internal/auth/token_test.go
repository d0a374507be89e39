package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	secret := []byte("codec-secret")
	now := time.Now().UTC().Truncate(time.Second)
	claims := newClaims(42, "0192f7a1-aaaa-bbbb-cccc-000000000001", tokenTypeAccess, now, now.Add(30*time.Minute))

	encoded, err := encodeToken(claims, secret)
	require.NoError(t, err)

	decoded, err := decodeToken(encoded, secret)
	require.NoError(t, err)

	assert.Equal(t, claims.Subject, decoded.Subject)
	assert.Equal(t, claims.ID, decoded.ID)
	assert.Equal(t, claims.TokenType, decoded.TokenType)
	assert.Equal(t, claims.IssuedAt.Unix(), decoded.IssuedAt.Unix())
	assert.Equal(t, claims.ExpiresAt.Unix(), decoded.ExpiresAt.Unix())

	userID, err := decoded.userID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestDecodeToken_WrongSecret(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	claims := newClaims(1, "jti-1", tokenTypeAccess, now, now.Add(time.Hour))

	encoded, err := encodeToken(claims, []byte("right-secret"))
	require.NoError(t, err)

	_, err = decodeToken(encoded, []byte("wrong-secret"))
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestDecodeToken_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	secret := []byte("boundary-secret")
	now := time.Now().UTC()

	stillValid := newClaims(1, "jti-valid", tokenTypeAccess, now.Add(-time.Hour), now.Add(time.Second))
	encoded, err := encodeToken(stillValid, secret)
	require.NoError(t, err)
	_, err = decodeToken(encoded, secret)
	assert.NoError(t, err)

	justExpired := newClaims(1, "jti-expired", tokenTypeAccess, now.Add(-time.Hour), now.Add(-time.Second))
	encoded, err = encodeToken(justExpired, secret)
	require.NoError(t, err)
	_, err = decodeToken(encoded, secret)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestDecodeToken_Garbage(t *testing.T) {
	t.Parallel()

	_, err := decodeToken("not.a.jwt", []byte("secret"))
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, err = decodeToken("", []byte("secret"))
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestDecodeToken_AlgorithmSubstitution(t *testing.T) {
	t.Parallel()

	secret := []byte("pinned-secret")
	now := time.Now().UTC()
	claims := newClaims(7, "jti-alg", tokenTypeAccess, now, now.Add(time.Hour))

	substituted := jwt.NewWithClaims(jwt.SigningMethodHS384, claims)
	encoded, err := substituted.SignedString(secret)
	require.NoError(t, err)

	_, err = decodeToken(encoded, secret)
	assert.ErrorIs(t, err, ErrUnexpectedSigningMethod)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	encoded, err = unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = decodeToken(encoded, secret)
	assert.ErrorIs(t, err, ErrUnexpectedSigningMethod)
}

func TestDecodeTokenAllowExpired(t *testing.T) {
	t.Parallel()

	secret := []byte("expired-secret")
	now := time.Now().UTC()
	claims := newClaims(9, "jti-old", tokenTypeAccess, now.Add(-2*time.Hour), now.Add(-time.Hour))

	encoded, err := encodeToken(claims, secret)
	require.NoError(t, err)

	_, err = decodeToken(encoded, secret)
	require.ErrorIs(t, err, ErrTokenExpired)

	decoded, err := decodeTokenAllowExpired(encoded, secret)
	require.NoError(t, err)
	assert.Equal(t, "jti-old", decoded.ID)

	_, err = decodeTokenAllowExpired(encoded, []byte("other-secret"))
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestRandomKey(t *testing.T) {
	t.Parallel()

	key1, err := randomKey(accessKeyLength)
	require.NoError(t, err)
	key2, err := randomKey(accessKeyLength)
	require.NoError(t, err)

	assert.Len(t, key1, accessKeyLength)
	assert.NotEqual(t, key1, key2)

	for _, c := range key1 {
		assert.Contains(t, keyAlphabet, string(c))
	}
}
