package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/confly-app/apiserver/types"
)

// ErrValidation marks a rejected request input. Handlers map it to 400.
var ErrValidation = errors.New("validation failed")

// UserRepository defines persistence operations for identities.
type UserRepository interface {
	Resolve(ctx context.Context, email, fingerprint string) (types.User, error)
	GetByToken(ctx context.Context, token string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (types.User, error)
	UpdateDisplayName(ctx context.Context, userID int64, displayName string) (types.User, error)
}

// IdentityService encapsulates identity resolution use-cases.
type IdentityService struct {
	repo   UserRepository
	events EventPublisher
	logger *slog.Logger
}

func NewIdentityService(repo UserRepository, events EventPublisher, logger *slog.Logger) *IdentityService {
	return &IdentityService{repo: repo, events: events, logger: logger}
}

// Resolve maps an email and/or fingerprint to a user, minting one when
// neither matches. Used after email verification, where creating a fresh
// identity is the intended outcome.
func (s *IdentityService) Resolve(ctx context.Context, email, fingerprint string) (types.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	fingerprint = strings.TrimSpace(fingerprint)
	if email == "" && fingerprint == "" {
		return types.User{}, errors.New("an email or a fingerprint is required")
	}
	return s.repo.Resolve(ctx, email, fingerprint)
}

// ResolveExisting looks up an identity without ever creating one. Endpoints
// that must not silently mint identities go through here; an unknown
// email/fingerprint surfaces as store.ErrNotFound.
func (s *IdentityService) ResolveExisting(ctx context.Context, email, fingerprint string) (types.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	fingerprint = strings.TrimSpace(fingerprint)
	switch {
	case email != "":
		return s.repo.GetByEmail(ctx, email)
	case fingerprint != "":
		return s.repo.GetByFingerprint(ctx, fingerprint)
	default:
		return types.User{}, errors.New("an email or a fingerprint is required")
	}
}

// FromToken identifies the caller behind a bearer token.
func (s *IdentityService) FromToken(ctx context.Context, token string) (types.User, error) {
	return s.repo.GetByToken(ctx, token)
}

// FromFingerprint identifies the caller behind a device fingerprint,
// strictly: unknown fingerprints fail instead of minting a user.
func (s *IdentityService) FromFingerprint(ctx context.Context, fingerprint string) (types.User, error) {
	return s.repo.GetByFingerprint(ctx, fingerprint)
}

// UpdateDisplayName renames a user and announces the rename to all connected
// clients so already-rendered author names update live.
func (s *IdentityService) UpdateDisplayName(ctx context.Context, userID int64, displayName string) (types.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return types.User{}, ErrValidation
	}

	user, err := s.repo.UpdateDisplayName(ctx, userID, displayName)
	if err != nil {
		return types.User{}, err
	}

	s.events.PublishAll(ctx, types.Event{
		Type: types.EventUserUpdated,
		Data: map[string]any{
			"id":          user.ID,
			"displayName": user.DisplayName,
		},
	})
	return user, nil
}
