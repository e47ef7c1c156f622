package account

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when signup targets an email that already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login when the email is unknown
	// or the password does not match. The two cases are deliberately not
	// distinguished so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidPassword is returned when a password check for an
	// authenticated user fails, such as on account withdrawal.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrWeakPassword is returned when a new password does not meet the
	// minimum length requirement.
	ErrWeakPassword = errors.New("password too weak")
)
