package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 120000
	pbkdf2KeyLen     = 32
	saltLen          = 16
)

// hashPassword derives a PBKDF2-HMAC-SHA256 digest with a fresh random salt.
// Digest and salt are returned hex encoded for storage in separate columns.
func hashPassword(plain string) (string, string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", "", fmt.Errorf("generate password salt: %w", err)
	}

	digest := pbkdf2.Key([]byte(plain), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)

	return hex.EncodeToString(digest), hex.EncodeToString(salt), nil
}

// verifyPassword reports whether plain matches the stored digest. It never
// returns an error: undecodable stored values count as a failed verification.
func verifyPassword(plain, digestHex, saltHex string) bool {
	digest, err := hex.DecodeString(digestHex)
	if err != nil {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	candidate := pbkdf2.Key([]byte(plain), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)

	return subtle.ConstantTimeCompare(candidate, digest) == 1
}
