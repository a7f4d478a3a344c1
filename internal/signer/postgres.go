package signer

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore resolves signers from the relational store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const signerColumns = `id, email, wallet_address, encrypted_key, scope`

func (s *PostgresStore) ByID(ctx context.Context, id string) (*Signer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+signerColumns+`
		FROM signers
		WHERE id = $1
	`, id)
	return scanSigner(row)
}

func (s *PostgresStore) ByEmail(ctx context.Context, email string) (*Signer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+signerColumns+`
		FROM signers
		WHERE LOWER(email) = LOWER($1)
	`, email)
	return scanSigner(row)
}

func scanSigner(row *sql.Row) (*Signer, error) {
	var sg Signer
	err := row.Scan(&sg.ID, &sg.Email, &sg.WalletAddress, &sg.EncryptedKey, &sg.Scope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sg, nil
}
