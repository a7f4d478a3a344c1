package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrMissingKey is returned by New when no master key is configured.
var ErrMissingKey = errors.New("vault: master key not configured")

// ErrDecrypt is returned when ciphertext is malformed or was produced
// under a different key. It is treated as corruption or tampering and
// must never be retried.
var ErrDecrypt = errors.New("vault: decryption failed")

// Vault encrypts and decrypts signing keys at rest with a single
// process-wide symmetric key.
type Vault struct {
	aead cipher.AEAD
}

// New derives an AES-256-GCM key from the master secret using
// HKDF-SHA256.
func New(masterKey string) (*Vault, error) {
	if masterKey == "" {
		return nil, ErrMissingKey
	}

	h := hkdf.New(sha256.New, []byte(masterKey), nil, []byte("signing-key-vault"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: init gcm: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64 ciphertext with the nonce
// prepended.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens base64 ciphertext produced by Encrypt. Any structural
// or authentication failure is reported as ErrDecrypt.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}

	ns := v.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrDecrypt
	}

	plain, err := v.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrDecrypt
	}

	return string(plain), nil
}
