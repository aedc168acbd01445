package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/confly-app/apiserver/internal/names"
	"github.com/confly-app/apiserver/types"
)

const displayNameAttempts = 10

// UserRepository handles persistence for audience identities.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, COALESCE(email, ''), display_name, auth_token, COALESCE(fingerprint, ''), created_at`

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.AuthToken,
		&user.Fingerprint,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// GetByToken looks up a user by their opaque bearer token.
func (r *UserRepository) GetByToken(ctx context.Context, token string) (types.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE auth_token = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, token))
}

// GetByEmail looks up a user by their verified email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByFingerprint is the strict lookup variant: it never creates a user.
// Returns ErrNotFound for an unknown fingerprint.
func (r *UserRepository) GetByFingerprint(ctx context.Context, fingerprint string) (types.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE fingerprint = $1 ORDER BY id LIMIT 1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, fingerprint))
}

// Resolve maps an email and/or device fingerprint to a user, creating one if
// neither matches an existing row. The whole lookup/update/insert sequence
// runs in a single transaction so a failed insert never leaves a half-bound
// identity behind.
//
// Resolution order: a verified email wins over a fingerprint. When the email
// matches, a differing fingerprint follows the email (device binding). When
// only the fingerprint matches, a supplied email is attached provided the
// record has none yet.
func (r *UserRepository) Resolve(ctx context.Context, email, fingerprint string) (types.User, error) {
	if email == "" && fingerprint == "" {
		return types.User{}, errors.New("store: resolve requires an email or a fingerprint")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, err
	}
	defer tx.Rollback()

	user, err := r.resolveTx(ctx, tx, email, fingerprint)
	if err != nil {
		return types.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) resolveTx(ctx context.Context, tx *sql.Tx, email, fingerprint string) (types.User, error) {
	selectBy := func(column, value string) (types.User, error) {
		query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1 ORDER BY id LIMIT 1 FOR UPDATE`, userColumns, column)
		var user types.User
		err := tx.QueryRowContext(ctx, query, value).Scan(
			&user.ID,
			&user.Email,
			&user.DisplayName,
			&user.AuthToken,
			&user.Fingerprint,
			&user.CreatedAt,
		)
		return user, err
	}

	if email != "" {
		user, err := selectBy("email", email)
		switch {
		case err == nil:
			if fingerprint != "" && fingerprint != user.Fingerprint {
				if _, err := tx.ExecContext(ctx,
					`UPDATE users SET fingerprint = $1 WHERE id = $2`, fingerprint, user.ID); err != nil {
					return types.User{}, err
				}
				user.Fingerprint = fingerprint
			}
			return user, nil
		case !errors.Is(err, sql.ErrNoRows):
			return types.User{}, err
		}
	}

	if fingerprint != "" {
		user, err := selectBy("fingerprint", fingerprint)
		switch {
		case err == nil:
			if email != "" && user.Email == "" {
				if _, err := tx.ExecContext(ctx,
					`UPDATE users SET email = $1 WHERE id = $2`, email, user.ID); err != nil {
					return types.User{}, err
				}
				user.Email = email
			}
			return user, nil
		case !errors.Is(err, sql.ErrNoRows):
			return types.User{}, err
		}
	}

	return r.createTx(ctx, tx, email, fingerprint)
}

func (r *UserRepository) createTx(ctx context.Context, tx *sql.Tx, email, fingerprint string) (types.User, error) {
	displayName, err := pickDisplayName(ctx, tx)
	if err != nil {
		return types.User{}, err
	}

	token, err := newAuthToken()
	if err != nil {
		return types.User{}, err
	}

	user := types.User{
		Email:       email,
		DisplayName: displayName,
		AuthToken:   token,
		Fingerprint: fingerprint,
	}

	const query = `
		INSERT INTO users (email, display_name, auth_token, fingerprint)
		VALUES (NULLIF($1, ''), $2, $3, NULLIF($4, ''))
		RETURNING id, created_at`
	if err := tx.QueryRowContext(ctx, query, email, displayName, token, fingerprint).Scan(
		&user.ID, &user.CreatedAt,
	); err != nil {
		if isUniqueViolation(err, "") {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	return user, nil
}

// pickDisplayName finds a free auto-generated name, retrying a bounded number
// of times before falling back to a random numeric suffix. The availability
// check runs inside the caller's transaction; the unique index on
// display_name is the final backstop against a concurrent claim.
func pickDisplayName(ctx context.Context, tx *sql.Tx) (string, error) {
	candidate := names.Random()
	for i := 0; i < displayNameAttempts; i++ {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE display_name = $1)`, candidate).Scan(&exists)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = names.Random()
	}
	return names.WithSuffix(candidate), nil
}

func newAuthToken() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}

// UpdateDisplayName renames a user. Returns ErrConflict when the name is
// already held by another user and ErrNotFound for an unknown user id. The
// availability check and the write share one transaction; the unique index
// turns a concurrent rename race into ErrConflict instead of a double win.
func (r *UserRepository) UpdateDisplayName(ctx context.Context, userID int64, displayName string) (types.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, err
	}
	defer tx.Rollback()

	var takenBy int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE display_name = $1`, displayName).Scan(&takenBy)
	switch {
	case err == nil && takenBy != userID:
		return types.User{}, ErrConflict
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return types.User{}, err
	}

	query := fmt.Sprintf(`
		UPDATE users SET display_name = $1 WHERE id = $2
		RETURNING %s`, userColumns)
	var user types.User
	if err := tx.QueryRowContext(ctx, query, displayName, userID).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.AuthToken,
		&user.Fingerprint,
		&user.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		if isUniqueViolation(err, "users_display_name_key") {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.User{}, err
	}
	return user, nil
}
