package verification

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tendant/simple-auth/pkg/notification"
)

const (
	defaultCodeExpiry   = 5 * time.Minute
	defaultResendWindow = 60 * time.Second
	defaultMaxAttempts  = 5
)

// UserExistenceChecker answers whether an email already belongs to a
// registered user. Wired in by the caller to keep this package independent
// of account storage.
type UserExistenceChecker interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// VerificationService issues, checks and consumes email verification codes.
type VerificationService struct {
	repo                VerificationRepository
	notificationManager *notification.NotificationManager
	userChecker         UserExistenceChecker
	codeExpiry          time.Duration
	resendWindow        time.Duration
	maxAttempts         int
	now                 func() time.Time
}

type Option func(*VerificationService)

// WithCodeExpiry overrides how long an issued code stays valid.
func WithCodeExpiry(d time.Duration) Option {
	return func(s *VerificationService) {
		s.codeExpiry = d
	}
}

// WithResendWindow overrides the minimum interval between code requests
// for the same email.
func WithResendWindow(d time.Duration) Option {
	return func(s *VerificationService) {
		s.resendWindow = d
	}
}

// WithMaxAttempts overrides how many wrong guesses a code survives.
func WithMaxAttempts(n int) Option {
	return func(s *VerificationService) {
		s.maxAttempts = n
	}
}

// WithUserChecker makes RequestCode refuse emails that already belong to a
// registered user.
func WithUserChecker(c UserExistenceChecker) Option {
	return func(s *VerificationService) {
		s.userChecker = c
	}
}

// WithNow overrides the clock. Used in tests.
func WithNow(now func() time.Time) Option {
	return func(s *VerificationService) {
		s.now = now
	}
}

func NewVerificationService(repo VerificationRepository, nm *notification.NotificationManager, opts ...Option) *VerificationService {
	s := &VerificationService{
		repo:                repo,
		notificationManager: nm,
		codeExpiry:          defaultCodeExpiry,
		resendWindow:        defaultResendWindow,
		maxAttempts:         defaultMaxAttempts,
		now:                 func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CodeExpiry returns how long issued codes stay valid.
func (s *VerificationService) CodeExpiry() time.Duration {
	return s.codeExpiry
}

// RequestCode issues a fresh code for the email, persists it and sends it by
// email. It returns the code lifetime for the caller to report. A repeated
// request inside the resend window fails with RateLimitedError; a request
// for an already registered email fails with ErrEmailRegistered.
//
// The code is persisted before the email is sent. When delivery fails the
// code is deliberately left in place and ErrSendFailed is returned, so a
// copy that did reach the user remains usable.
func (s *VerificationService) RequestCode(ctx context.Context, email string) (time.Duration, error) {
	if !IsValidEmail(email) {
		return 0, ErrInvalidEmail
	}

	if s.userChecker != nil {
		exists, err := s.userChecker.EmailExists(ctx, email)
		if err != nil {
			return 0, fmt.Errorf("failed to check email registration: %w", err)
		}
		if exists {
			return 0, ErrEmailRegistered
		}
	}

	ttl, err := s.repo.GetResendLockTTL(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("failed to check resend lock: %w", err)
	}
	if ttl > 0 {
		return 0, &RateLimitedError{RetryAfter: ttl}
	}

	code, err := generateCode()
	if err != nil {
		return 0, err
	}

	now := s.now()
	if _, err := s.repo.CreateCode(ctx, email, code, now.Add(s.codeExpiry)); err != nil {
		return 0, fmt.Errorf("failed to store verification code: %w", err)
	}
	if err := s.repo.CreateResendLock(ctx, email, now.Add(s.resendWindow)); err != nil {
		return 0, fmt.Errorf("failed to store resend lock: %w", err)
	}

	data := notification.NotificationData{
		To: email,
		Data: map[string]string{
			"Code":          code,
			"ExpiryMinutes": strconv.Itoa(int(s.codeExpiry.Minutes())),
		},
	}
	if err := s.notificationManager.Send(notification.VerificationCodeNotice, notification.EmailSystem, data); err != nil {
		slog.Error("Failed to send verification code email", "email", email, "err", err)
		return 0, ErrSendFailed
	}

	return s.codeExpiry, nil
}

// CheckCode verifies a candidate code without consuming it. A correct code
// leaves the stored record untouched so a later signup can consume it. Wrong
// guesses count against the attempt limit; once the limit is used up the next
// call, correct code or not, invalidates the record and returns
// ErrTooManyAttempts.
func (s *VerificationService) CheckCode(ctx context.Context, email, code string) error {
	if !IsValidEmail(email) {
		return ErrInvalidEmail
	}
	if !IsValidCode(code) {
		return ErrInvalidCodeFormat
	}
	return s.verify(ctx, email, code)
}

// Consume re-validates the code and removes it on success, so it cannot be
// reused. Called during signup. Equality is re-checked against the stored
// record rather than trusting a prior CheckCode, but the attempt cap is not
// enforced a second time here.
func (s *VerificationService) Consume(ctx context.Context, email, code string) error {
	if !IsValidEmail(email) {
		return ErrInvalidEmail
	}
	if !IsValidCode(code) {
		return ErrInvalidCodeFormat
	}

	vc, err := s.repo.GetActiveCode(ctx, email)
	if err != nil {
		return err
	}
	if vc.Code != code {
		return ErrInvalidCode
	}

	if err := s.repo.DeleteCode(ctx, email); err != nil {
		return fmt.Errorf("failed to delete verification code: %w", err)
	}
	return nil
}

func (s *VerificationService) verify(ctx context.Context, email, code string) error {
	vc, err := s.repo.GetActiveCode(ctx, email)
	if err != nil {
		return err
	}

	if vc.Attempts >= s.maxAttempts {
		// irrecoverable, a fresh code must be requested
		if err := s.repo.DeleteCode(ctx, email); err != nil {
			slog.Error("Failed to invalidate exhausted verification code", "email", email, "err", err)
		}
		return ErrTooManyAttempts
	}

	if vc.Code != code {
		attempts, err := s.repo.IncrementAttempts(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to record verification attempt: %w", err)
		}
		return &InvalidCodeError{AttemptsRemaining: s.maxAttempts - attempts}
	}

	return nil
}

// InvalidateEmail drops any outstanding code and resend lock for the email.
// Called when the account owning the email is withdrawn.
func (s *VerificationService) InvalidateEmail(ctx context.Context, email string) error {
	if err := s.repo.DeleteCode(ctx, email); err != nil {
		return err
	}
	return s.repo.DeleteResendLock(ctx, email)
}

// RunCleanup purges expired codes and locks every interval until the context
// is cancelled.
func (s *VerificationService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.repo.DeleteExpired(ctx); err != nil {
				slog.Error("Failed to purge expired verification state", "err", err)
			}
		}
	}
}
