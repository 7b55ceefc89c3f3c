// Package secrets hashes and verifies account and operator credentials.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "civicchain/pkg/domain-errors"
)

// Cost matches the work factor existing citizen hashes were created with.
const Cost = 10

// dummyHash is compared against when the account does not exist so that
// unknown and known emails take the same time to reject.
var dummyHash = mustHash("civicchain-dummy-credential")

func mustHash(s string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(s), Cost)
	if err != nil {
		panic(err)
	}
	return h
}

// Generate returns a random URL-safe secret, used for signing keys in dev mode.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeValidation, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "secret is too long")
		}
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether secret matches hash. Malformed hashes are errors.
func Verify(secret, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("could not verify secret: %w", err)
	}
}

// BurnCompare spends one bcrypt comparison and discards the result.
func BurnCompare(secret string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
}
