package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	saltSize = 16
	keySize  = 32
)

// ErrCiphertextTooShort is returned by Open when the sealed blob cannot hold
// a salt and a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// DeriveKey stretches a caller supplied encryption key into a 256-bit AES key
// using argon2id.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, keySize)
}

// Seal encrypts plaintext with AES-GCM under a key derived from password.
//
// The result is laid out as salt | nonce | ciphertext, so it is
// self-contained: Open only needs the same password to reverse it.
// A fresh random salt and nonce are generated for every call.
//
// Parameters:
//   - plaintext: the payload to encrypt.
//   - password: the caller supplied encryption key (any length).
//
// Returns:
//   - the sealed blob.
//   - err: non-nil if the cipher cannot be initialised.
func Seal(plaintext, password []byte) ([]byte, error) {
	salt := common.GenerateRandByteArray(saltSize)

	key := DeriveKey(password, salt)
	defer common.WipeByteArray(key)
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())

	out := make([]byte, 0, saltSize+len(nonce)+len(plaintext)+aesgcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plaintext, nil), nil
}

// Open decrypts a blob produced by Seal.
func Open(sealed, password []byte) ([]byte, error) {
	if len(sealed) < saltSize {
		return nil, ErrCiphertextTooShort
	}
	salt := sealed[:saltSize]

	key := DeriveKey(password, salt)
	defer common.WipeByteArray(key)
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	rest := sealed[saltSize:]
	if len(rest) < aesgcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce, ciphertext := rest[:aesgcm.NonceSize()], rest[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
