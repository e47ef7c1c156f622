// Package verification manages email verification codes for signup.
//
// A code is a random six digit number tied to one email address. At most one
// code is active per email; requesting a new one replaces the old. Codes
// expire after a configurable lifetime and survive a limited number of wrong
// guesses before they are invalidated.
//
// # Basic Usage
//
//	import "github.com/tendant/simple-auth/pkg/verification"
//
//	repo := verification.NewPgVerificationRepository(pool)
//	service := verification.NewVerificationService(
//		repo,
//		notificationManager,
//		verification.WithCodeExpiry(5*time.Minute),
//		verification.WithMaxAttempts(5),
//		verification.WithUserChecker(userRepo),
//	)
//
//	// Issue and email a code
//	expiresIn, err := service.RequestCode(ctx, "user@example.com")
//
//	// Non-destructive check, the code stays valid for signup
//	err = service.CheckCode(ctx, "user@example.com", "123456")
//
//	// Consume during signup, the code cannot be reused afterwards
//	err = service.Consume(ctx, "user@example.com", "123456")
//
// # Error Handling
//
// Failures are sentinel errors (ErrCodeNotFound, ErrInvalidCode,
// ErrTooManyAttempts, ...) plus two wrapping types that carry extra detail:
// RateLimitedError with the remaining wait, and InvalidCodeError with the
// remaining attempt budget. Both unwrap to their sentinel, so errors.Is
// works either way.
//
// # Storage
//
// VerificationRepository has two implementations: PgVerificationRepository
// over Postgres with explicit expiry columns, and InMemVerificationRepository
// for tests and single-instance deployments. Run RunCleanup in a goroutine
// to purge expired rows periodically.
//
// # Related Packages
//
//   - pkg/account - consumes codes during signup
//   - pkg/notification - email delivery
package verification
