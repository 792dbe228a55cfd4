// Package vault implements the password-derived authenticated
// encryption used to keep approved bot code encrypted at rest.
//
// A symmetric key is derived from the owner's password and a per-item
// random salt with a deliberately slow KDF (PBKDF2-SHA256 with a high,
// fixed iteration count), and the plaintext is sealed with an
// authenticated cipher (NaCl secretbox). Opening a box with a wrong
// password or tampered ciphertext fails loudly instead of returning
// silently-corrupt plaintext.
package vault

import (
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the size in bytes of the per-item random salt.
	SaltSize = 16
	// KeySize is the size in bytes of the derived symmetric key.
	KeySize = 32
	// NonceSize is the size in bytes of the secretbox nonce prepended
	// to every ciphertext.
	NonceSize = 24
	// KDFIterations is the fixed PBKDF2 iteration count. It bounds the
	// CPU cost of a single key derivation and must not be lowered:
	// stored ciphertexts are only recoverable with the count they were
	// sealed under.
	KDFIterations = 100000
)

// MakeSalt generates a fresh random salt.
func MakeSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// DeriveKey derives the symmetric encryption key for the given
// password and salt.
func DeriveKey(password string, salt []byte) *[KeySize]byte {
	var key [KeySize]byte
	copy(key[:], pbkdf2.Key([]byte(password), salt, KDFIterations, KeySize, sha256.New))
	return &key
}

// Seal encrypts and authenticates plaintext under key.
// The returned ciphertext carries its random nonce as a prefix.
func Seal(key *[KeySize]byte, plaintext []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// Open authenticates and decrypts a ciphertext produced by Seal.
// The boolean result is false for a wrong key, a truncated message or
// any tampering; the two cases are indistinguishable to the caller.
func Open(key *[KeySize]byte, ciphertext []byte) ([]byte, bool) {
	if len(ciphertext) < NonceSize+secretbox.Overhead {
		return nil, false
	}
	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])
	return secretbox.Open(nil, ciphertext[NonceSize:], &nonce, key)
}
