package tokengenerator

import "errors"

var (
	// ErrTokenExpired is returned when a token's expiry has passed
	ErrTokenExpired = errors.New("token has expired")

	// ErrInvalidToken is returned when a token's signature or format is invalid
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingSecret is returned when a generator is constructed without a signing secret
	ErrMissingSecret = errors.New("signing secret is not configured")
)
