package db

import (
	"context"
	"database/sql"
)

const signerMigration = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS signers (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    email text NOT NULL,
    wallet_address text NOT NULL,
    encrypted_key text NOT NULL,
    scope text NOT NULL DEFAULT 'admin',
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS signers_email_lower_unique
ON signers (LOWER(email));

CREATE UNIQUE INDEX IF NOT EXISTS signers_wallet_address_unique
ON signers (wallet_address);
`

func RunSignerMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, signerMigration)
	return err
}
