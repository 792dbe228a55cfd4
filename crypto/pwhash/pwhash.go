// Package pwhash implements the salted, iterated password hashing
// used for reviewer accounts. Hashes are self-describing strings of
// the form "salt$hash" (both hex), so the verifier needs no external
// parameters.
package pwhash

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	hashSize   = 32
	iterations = 100000
)

// Hash derives a salted, iterated hash of password with a fresh
// random salt.
func Hash(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	h := pbkdf2.Key([]byte(password), salt, iterations, hashSize, sha256.New)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(h), nil
}

// Verify reports whether password matches the encoded hash.
// A malformed encoding verifies as false, never as an error, so a
// corrupted account record cannot be used as an authentication oracle.
func Verify(password, encoded string) bool {
	parts := strings.SplitN(encoded, "$", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil || len(salt) != saltSize {
		return false
	}
	want, err := hex.DecodeString(parts[1])
	if err != nil || len(want) != hashSize {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, iterations, hashSize, sha256.New)
	return hmac.Equal(got, want)
}
