package signer

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no signer matches the lookup.
var ErrNotFound = errors.New("signer: not found")

// Signer is an identity holding a key used to authorize ledger writes.
// EncryptedKey is vault ciphertext; it is only ever decrypted
// transiently inside the submission worker.
type Signer struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	WalletAddress string `json:"wallet_address"`
	EncryptedKey  string `json:"encrypted_key"`
	Scope         string `json:"scope"`
}

// Store is the read path for signer identity. The core never owns
// writes to the relational schema.
type Store interface {
	ByID(ctx context.Context, id string) (*Signer, error)
	ByEmail(ctx context.Context, email string) (*Signer, error)
}
