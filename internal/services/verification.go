package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/confly-app/apiserver/internal/mailer"
	"github.com/confly-app/apiserver/internal/store"
	"github.com/confly-app/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// AttemptsNone is the sentinel returned by the attempt helpers when no
// verification is in progress for the email.
const AttemptsNone = -1

// VerificationRepository defines persistence operations for pending codes.
type VerificationRepository interface {
	Get(ctx context.Context, email string) (types.VerificationCode, error)
	Upsert(ctx context.Context, code types.VerificationCode) error
	UpdateAttempts(ctx context.Context, email string, attempts int) error
	Delete(ctx context.Context, email string) error
}

// VerificationService implements the email verification gate: one-time
// 4-digit codes with a fixed expiry and a bounded number of attempts.
//
// Every failure path (no code, expired, locked out, wrong code) reports the
// same false outcome; callers never learn which, so a probing client cannot
// distinguish state.
type VerificationService struct {
	repo        VerificationRepository
	sender      mailer.Sender
	maxAttempts int
	codeTTL     time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewVerificationService constructs the gate. maxAttempts must be >= 1.
func NewVerificationService(repo VerificationRepository, sender mailer.Sender, maxAttempts int, codeTTL time.Duration, logger *slog.Logger) (*VerificationService, error) {
	if maxAttempts < 1 {
		return nil, fmt.Errorf("verification: max attempts must be >= 1, got %d", maxAttempts)
	}
	return &VerificationService{
		repo:        repo,
		sender:      sender,
		maxAttempts: maxAttempts,
		codeTTL:     codeTTL,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// SendCode issues a fresh 4-digit code for the email, overwriting any
// pending one, and delivers it out-of-band. A delivery failure propagates:
// a code nobody received must not sit armed in the store unannounced.
func (s *VerificationService) SendCode(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: a valid email is required", ErrValidation)
	}

	code, err := newCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := s.repo.Upsert(ctx, types.VerificationCode{
		Email:     email,
		CodeHash:  string(hash),
		Attempts:  0,
		ExpiresAt: s.now().Add(s.codeTTL),
	}); err != nil {
		return err
	}

	subject := "Your verification code"
	text := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(s.codeTTL.Minutes()))
	html := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>. It expires in %d minutes.</p>",
		code, int(s.codeTTL.Minutes()))
	if err := s.sender.Send(ctx, email, subject, text, html); err != nil {
		s.logger.Error("verification code delivery failed", "email", email, "error", err)
		return err
	}
	return nil
}

// VerifyCode checks a submitted code. A correct code consumes the record
// (one-time use). A wrong code burns an attempt; reaching the maximum
// deletes the record, after which even the correct code is rejected.
func (s *VerificationService) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	pending, err := s.repo.Get(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if s.now().After(pending.ExpiresAt) {
		return false, s.repo.Delete(ctx, email)
	}
	if pending.Attempts >= s.maxAttempts {
		return false, s.repo.Delete(ctx, email)
	}

	pending.Attempts++

	if bcrypt.CompareHashAndPassword([]byte(pending.CodeHash), []byte(code)) == nil {
		return true, s.repo.Delete(ctx, email)
	}

	if pending.Attempts >= s.maxAttempts {
		return false, s.repo.Delete(ctx, email)
	}
	return false, s.repo.UpdateAttempts(ctx, email, pending.Attempts)
}

// AttemptsMade reports how many failed attempts the pending verification has
// burned, or AttemptsNone when nothing is pending.
func (s *VerificationService) AttemptsMade(ctx context.Context, email string) (int, error) {
	pending, err := s.repo.Get(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AttemptsNone, nil
		}
		return 0, err
	}
	return pending.Attempts, nil
}

// AttemptsRemaining reports how many attempts are left, or AttemptsNone when
// nothing is pending.
func (s *VerificationService) AttemptsRemaining(ctx context.Context, email string) (int, error) {
	made, err := s.AttemptsMade(ctx, email)
	if err != nil || made == AttemptsNone {
		return made, err
	}
	remaining := s.maxAttempts - made
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func newCode() (string, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", v.Int64()), nil
}
