package persona

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialPrefix is the namespace prefix of every raw credential token.
const CredentialPrefix = "wrn_"

// hashCost is the bcrypt work factor for stored credential hashes.
const hashCost = 12

// GenerateCredential creates a new raw credential token and its hash.
// The raw token is shown once and never stored; only the hash persists.
func GenerateCredential() (rawKey, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate credential: %w", err)
	}
	rawKey = CredentialPrefix + hex.EncodeToString(buf)

	hash, err = HashCredential(rawKey)
	if err != nil {
		return "", "", err
	}
	return rawKey, hash, nil
}

// HashCredential hashes a raw credential for storage.
func HashCredential(rawKey string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(rawKey), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(h), nil
}
