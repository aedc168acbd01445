package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/confly-app/apiserver/types"
)

// VerificationRepository handles persistence for pending email verification
// codes. One row per email; issuing a new code replaces the old one.
type VerificationRepository struct {
	db *sql.DB
}

func NewVerificationRepository(db *sql.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) Get(ctx context.Context, email string) (types.VerificationCode, error) {
	const query = `
		SELECT email, code_hash, attempts, expires_at, created_at
		FROM verification_codes
		WHERE email = $1`
	var code types.VerificationCode
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&code.Email,
		&code.CodeHash,
		&code.Attempts,
		&code.ExpiresAt,
		&code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.VerificationCode{}, ErrNotFound
		}
		return types.VerificationCode{}, err
	}
	return code, nil
}

// Upsert writes a pending code, overwriting any previous one for the email.
func (r *VerificationRepository) Upsert(ctx context.Context, code types.VerificationCode) error {
	const query = `
		INSERT INTO verification_codes (email, code_hash, attempts, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
			attempts = EXCLUDED.attempts,
			expires_at = EXCLUDED.expires_at,
			created_at = now()`
	_, err := r.db.ExecContext(ctx, query, code.Email, code.CodeHash, code.Attempts, code.ExpiresAt)
	return err
}

// UpdateAttempts bumps the failed-attempt counter without touching the code
// or its expiry.
func (r *VerificationRepository) UpdateAttempts(ctx context.Context, email string, attempts int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE verification_codes SET attempts = $2 WHERE email = $1`, email, attempts)
	return err
}

func (r *VerificationRepository) Delete(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE email = $1`, email)
	return err
}
