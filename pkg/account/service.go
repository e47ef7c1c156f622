package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-auth/pkg/tokengenerator"
)

const (
	defaultTokenExpiry       = 2 * time.Hour
	defaultMinPasswordLength = 6
)

// dummyHash is compared against when login targets an unknown email, so the
// request costs roughly the same as a real password check.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// CodeVerifier is the slice of the verification service that signup and
// withdrawal need.
type CodeVerifier interface {
	// Consume verifies the code for the email and removes it on success.
	Consume(ctx context.Context, email, code string) error

	// InvalidateEmail drops any outstanding verification state for the
	// email.
	InvalidateEmail(ctx context.Context, email string) error
}

// AccountService implements signup, login and account lifecycle on top of a
// UserRepository.
type AccountService struct {
	repo              UserRepository
	tokenGen          tokengenerator.TokenGenerator
	verifier          CodeVerifier
	hasher            PasswordHasher
	tokenExpiry       time.Duration
	minPasswordLength int
}

type LoginResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

type Option func(*AccountService)

// WithTokenExpiry overrides the lifetime of issued login tokens.
func WithTokenExpiry(d time.Duration) Option {
	return func(s *AccountService) {
		s.tokenExpiry = d
	}
}

// WithHasher overrides the password hasher. Used in tests to avoid paying
// full bcrypt cost.
func WithHasher(h PasswordHasher) Option {
	return func(s *AccountService) {
		s.hasher = h
	}
}

// WithMinPasswordLength overrides the minimum accepted password length.
func WithMinPasswordLength(n int) Option {
	return func(s *AccountService) {
		s.minPasswordLength = n
	}
}

func NewAccountService(repo UserRepository, tokenGen tokengenerator.TokenGenerator, verifier CodeVerifier, opts ...Option) *AccountService {
	s := &AccountService{
		repo:              repo,
		tokenGen:          tokenGen,
		verifier:          verifier,
		hasher:            NewBcryptHasher(),
		tokenExpiry:       defaultTokenExpiry,
		minPasswordLength: defaultMinPasswordLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenExpiry returns the lifetime of issued login tokens.
func (s *AccountService) TokenExpiry() time.Duration {
	return s.tokenExpiry
}

// EmailExists reports whether the email already belongs to an account.
func (s *AccountService) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.repo.EmailExists(ctx, email)
}

// Signup creates an account for the email once the verification code checks
// out. The code is consumed, so a second signup with the same code fails.
// Verification errors pass through unchanged for the caller to map.
func (s *AccountService) Signup(ctx context.Context, email, password, code string) (*User, error) {
	if len(password) < s.minPasswordLength {
		return nil, ErrWeakPassword
	}

	if err := s.verifier.Consume(ctx, email, code); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, email, hash)
	if err != nil {
		return nil, err
	}

	slog.Info("User created", "userId", user.ID, "email", user.Email)
	return user, nil
}

// Login checks the credentials and issues a signed token. Unknown email and
// wrong password both return ErrInvalidCredentials after a comparable amount
// of work, so response timing does not reveal which one failed.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_, _ = s.hasher.Verify(password, dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	match, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokenGen.GenerateToken(user.ID, user.Email, s.tokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// GetUser returns the account by id.
func (s *AccountService) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// Withdraw deletes the account after re-checking the password. Verification
// state for the email is cleared best-effort, so the address can go through
// signup again right away.
func (s *AccountService) Withdraw(ctx context.Context, id int64, password string) error {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	match, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return ErrInvalidPassword
	}

	// best-effort: leftover verification state expires on its own
	if err := s.verifier.InvalidateEmail(ctx, user.Email); err != nil {
		slog.Warn("Failed to clear verification state for withdrawn account", "email", user.Email, "err", err)
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}

	slog.Info("User withdrawn", "userId", id)
	return nil
}
