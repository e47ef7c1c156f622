package verification

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCodeNotFound is returned when no active verification code exists for an email
	ErrCodeNotFound = errors.New("no verification code found or expired")

	// ErrInvalidCode is returned when the provided code does not match the stored one
	ErrInvalidCode = errors.New("invalid verification code")

	// ErrTooManyAttempts is returned when the attempt cap is exhausted; the
	// record is invalidated and a fresh code must be requested
	ErrTooManyAttempts = errors.New("too many failed attempts")

	// ErrTooManyRequests is returned when a code was requested within the resend window
	ErrTooManyRequests = errors.New("verification code requested too recently")

	// ErrEmailRegistered is returned when the email already belongs to a user
	ErrEmailRegistered = errors.New("email is already registered")

	// ErrInvalidEmail is returned when the email format is invalid
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidCodeFormat is returned when the code is not exactly 6 digits
	ErrInvalidCodeFormat = errors.New("code must be 6 digits")

	// ErrSendFailed is returned when the verification email could not be
	// delivered. The stored code is NOT rolled back; the caller may still
	// receive it if delivery eventually succeeds, or request a new one
	// after the resend window passes.
	ErrSendFailed = errors.New("failed to send verification email")
)

// RateLimitedError carries the remaining wait before another code can be
// requested. It unwraps to ErrTooManyRequests.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("verification code requested too recently, retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error { return ErrTooManyRequests }

// InvalidCodeError carries the remaining attempt budget for the active
// record. It unwraps to ErrInvalidCode.
type InvalidCodeError struct {
	AttemptsRemaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempts remaining", e.AttemptsRemaining)
}

func (e *InvalidCodeError) Unwrap() error { return ErrInvalidCode }
