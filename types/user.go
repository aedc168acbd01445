package types

import "time"

// User represents an audience member identity.
//
// Identities are minted lazily: the first time a client shows up with a
// device fingerprint or a verified email, a row is created for it. A user is
// always reachable by at least one of email, fingerprint, or auth token.
type User struct {
	// ID is the unique identifier of the user, assigned by the store.
	ID int64 `json:"id" db:"id"`

	// Email is the user's verified email address. Empty until the user
	// completes email verification. Unique when present.
	Email string `json:"email,omitempty" db:"email"`

	// DisplayName is the name shown next to the user's questions on the
	// audience screen. Auto-generated at creation, unique, and changeable
	// through the display-name endpoint.
	DisplayName string `json:"displayName" db:"display_name"`

	// AuthToken is the opaque bearer token identifying this user.
	// It is returned once from the auth endpoints and never included in
	// other API responses.
	AuthToken string `json:"-" db:"auth_token"`

	// Fingerprint is the client-generated device identifier used to
	// recognise a returning anonymous user. Never exposed in responses.
	Fingerprint string `json:"-" db:"fingerprint"`

	// CreatedAt is the timestamp when the identity was first resolved.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// VerificationCode is a pending email verification challenge. At most one
// exists per email; issuing a new code overwrites the previous one.
type VerificationCode struct {
	// Email the code was issued for. Primary key.
	Email string `json:"-" db:"email"`

	// CodeHash is the bcrypt hash of the 4-digit code. The plaintext code
	// only ever travels through the outbound email.
	CodeHash string `json:"-" db:"code_hash"`

	// Attempts counts failed verification attempts so far.
	Attempts int `json:"-" db:"attempts"`

	// ExpiresAt is when the code stops being accepted.
	ExpiresAt time.Time `json:"-" db:"expires_at"`

	// CreatedAt is when the code was issued.
	CreatedAt time.Time `json:"-" db:"created_at"`
}
