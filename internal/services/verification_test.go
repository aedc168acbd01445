package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/confly-app/apiserver/internal/store"
	"github.com/confly-app/apiserver/types"
)

type fakeVerificationRepo struct {
	codes map[string]types.VerificationCode
}

func newFakeVerificationRepo() *fakeVerificationRepo {
	return &fakeVerificationRepo{codes: make(map[string]types.VerificationCode)}
}

func (f *fakeVerificationRepo) Get(ctx context.Context, email string) (types.VerificationCode, error) {
	code, ok := f.codes[email]
	if !ok {
		return types.VerificationCode{}, store.ErrNotFound
	}
	return code, nil
}

func (f *fakeVerificationRepo) Upsert(ctx context.Context, code types.VerificationCode) error {
	f.codes[code.Email] = code
	return nil
}

func (f *fakeVerificationRepo) UpdateAttempts(ctx context.Context, email string, attempts int) error {
	code, ok := f.codes[email]
	if !ok {
		return store.ErrNotFound
	}
	code.Attempts = attempts
	f.codes[email] = code
	return nil
}

func (f *fakeVerificationRepo) Delete(ctx context.Context, email string) error {
	delete(f.codes, email)
	return nil
}

type captureSender struct {
	to   string
	body string
	err  error
}

func (c *captureSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if c.err != nil {
		return c.err
	}
	c.to = to
	c.body = textBody
	return nil
}

// sentCode digs the 4-digit code out of the delivered message body.
func (c *captureSender) sentCode(t *testing.T) string {
	t.Helper()
	for _, word := range strings.Fields(c.body) {
		trimmed := strings.TrimSuffix(word, ".")
		if len(trimmed) == 4 && strings.IndexFunc(trimmed, func(r rune) bool { return r < '0' || r > '9' }) == -1 {
			return trimmed
		}
	}
	t.Fatalf("no code found in body %q", c.body)
	return ""
}

func newTestVerification(t *testing.T, repo VerificationRepository, sender *captureSender) *VerificationService {
	t.Helper()
	svc, err := NewVerificationService(repo, sender, 3, 15*time.Minute, testLogger())
	if err != nil {
		t.Fatalf("new verification service: %v", err)
	}
	return svc
}

func TestVerifyCorrectCodeConsumesRecord(t *testing.T) {
	repo := newFakeVerificationRepo()
	sender := &captureSender{}
	svc := newTestVerification(t, repo, sender)
	ctx := context.Background()

	if err := svc.SendCode(ctx, "Alice@Example.com"); err != nil {
		t.Fatalf("send code: %v", err)
	}
	if sender.to != "alice@example.com" {
		t.Fatalf("expected normalised recipient, got %q", sender.to)
	}

	code := sender.sentCode(t)
	ok, err := svc.VerifyCode(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected correct code to verify")
	}

	// One-time use: the same code must not verify twice.
	ok, err = svc.VerifyCode(ctx, "alice@example.com", code)
	if err != nil {
		t.Fatalf("verify again: %v", err)
	}
	if ok {
		t.Fatal("expected consumed code to be rejected")
	}
}

func TestVerifyWrongCodeBurnsAttempts(t *testing.T) {
	repo := newFakeVerificationRepo()
	sender := &captureSender{}
	svc := newTestVerification(t, repo, sender)
	ctx := context.Background()

	if err := svc.SendCode(ctx, "bob@example.com"); err != nil {
		t.Fatalf("send code: %v", err)
	}
	code := sender.sentCode(t)

	wrong := "0000"
	if wrong == code {
		wrong = "1111"
	}

	for i := 0; i < 3; i++ {
		ok, err := svc.VerifyCode(ctx, "bob@example.com", wrong)
		if err != nil {
			t.Fatalf("verify attempt %d: %v", i+1, err)
		}
		if ok {
			t.Fatalf("wrong code verified on attempt %d", i+1)
		}
	}

	// Three failures exhaust the allowance; even the real code is dead now.
	ok, err := svc.VerifyCode(ctx, "bob@example.com", code)
	if err != nil {
		t.Fatalf("verify after lockout: %v", err)
	}
	if ok {
		t.Fatal("expected lockout to reject the correct code")
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	repo := newFakeVerificationRepo()
	sender := &captureSender{}
	svc := newTestVerification(t, repo, sender)
	ctx := context.Background()

	if err := svc.SendCode(ctx, "carol@example.com"); err != nil {
		t.Fatalf("send code: %v", err)
	}
	code := sender.sentCode(t)

	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	ok, err := svc.VerifyCode(ctx, "carol@example.com", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected expired code to be rejected")
	}
	if _, found := repo.codes["carol@example.com"]; found {
		t.Fatal("expected expired record to be deleted")
	}
}

func TestVerifyUnknownEmailIsGenericFailure(t *testing.T) {
	svc := newTestVerification(t, newFakeVerificationRepo(), &captureSender{})

	ok, err := svc.VerifyCode(context.Background(), "nobody@example.com", "1234")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected unknown email to fail verification")
	}
}

func TestResendResetsAttempts(t *testing.T) {
	repo := newFakeVerificationRepo()
	sender := &captureSender{}
	svc := newTestVerification(t, repo, sender)
	ctx := context.Background()

	if err := svc.SendCode(ctx, "dave@example.com"); err != nil {
		t.Fatalf("send code: %v", err)
	}
	wrong := "9999"
	if wrong == sender.sentCode(t) {
		wrong = "8888"
	}
	if _, err := svc.VerifyCode(ctx, "dave@example.com", wrong); err != nil {
		t.Fatalf("verify: %v", err)
	}

	made, err := svc.AttemptsMade(ctx, "dave@example.com")
	if err != nil || made != 1 {
		t.Fatalf("expected 1 attempt made, got %d (err %v)", made, err)
	}

	if err := svc.SendCode(ctx, "dave@example.com"); err != nil {
		t.Fatalf("resend code: %v", err)
	}
	made, err = svc.AttemptsMade(ctx, "dave@example.com")
	if err != nil || made != 0 {
		t.Fatalf("expected attempts reset on resend, got %d (err %v)", made, err)
	}

	code := sender.sentCode(t)
	ok, err := svc.VerifyCode(ctx, "dave@example.com", code)
	if err != nil || !ok {
		t.Fatalf("expected fresh code to verify, got ok=%v err=%v", ok, err)
	}
}

func TestAttemptsSentinelWhenNothingPending(t *testing.T) {
	svc := newTestVerification(t, newFakeVerificationRepo(), &captureSender{})

	made, err := svc.AttemptsMade(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("attempts made: %v", err)
	}
	if made != AttemptsNone {
		t.Fatalf("expected AttemptsNone, got %d", made)
	}

	remaining, err := svc.AttemptsRemaining(context.Background(), "nobody@example.com")
	if err != nil {
		t.Fatalf("attempts remaining: %v", err)
	}
	if remaining != AttemptsNone {
		t.Fatalf("expected AttemptsNone, got %d", remaining)
	}
}

func TestSendCodeRejectsInvalidEmail(t *testing.T) {
	svc := newTestVerification(t, newFakeVerificationRepo(), &captureSender{})

	err := svc.SendCode(context.Background(), "not-an-email")
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewVerificationServiceRejectsZeroAttempts(t *testing.T) {
	_, err := NewVerificationService(newFakeVerificationRepo(), &captureSender{}, 0, 15*time.Minute, testLogger())
	if err == nil {
		t.Fatal("expected constructor to reject maxAttempts < 1")
	}
}
