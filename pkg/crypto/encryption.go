// Package crypto provides the encryption primitives used to protect stored
// controller credentials.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// AEADCipher provides authenticated encryption with associated data (AEAD)
// using AES-256-GCM.
type AEADCipher struct {
	aead cipher.AEAD
}

// NewAEADCipher creates a new AEAD cipher with the provided 32-byte key.
func NewAEADCipher(key []byte) (*AEADCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid key length: got %d, want 32", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AEADCipher{aead: aead}, nil
}

// Encrypt encrypts plaintext with optional associated data (aad).
// It returns nonce||ciphertext, where nonce is 12 random bytes.
func (a *AEADCipher) Encrypt(plaintext, aad []byte) ([]byte, error) {
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return a.aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Decrypt decrypts data produced by Encrypt. Input must be nonce||ciphertext.
func (a *AEADCipher) Decrypt(data, aad []byte) ([]byte, error) {
	if len(data) < a.aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := data[:a.aead.NonceSize()]
	ciphertext := data[a.aead.NonceSize():]
	return a.aead.Open(nil, nonce, ciphertext, aad)
}
