package verification

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VerificationCode represents one outstanding verification attempt for an email
type VerificationCode struct {
	Email     string
	Code      string
	Attempts  int
	CreatedAt time.Time
	ExpiresAt time.Time
}

// VerificationRepository defines the storage contract for verification codes
// and resend locks. Expiry may be enforced by TTL eviction or by filtering on
// an explicit expiry column at lookup time; both backends below satisfy the
// same contract.
type VerificationRepository interface {
	// CreateCode stores a fresh code for the email, replacing any prior
	// active code so that at most one code is valid per email.
	CreateCode(ctx context.Context, email, code string, expiresAt time.Time) (*VerificationCode, error)

	// GetActiveCode returns the current non-expired code for the email,
	// or ErrCodeNotFound.
	GetActiveCode(ctx context.Context, email string) (*VerificationCode, error)

	// IncrementAttempts atomically increments the attempt counter of the
	// active code and returns the new count.
	IncrementAttempts(ctx context.Context, email string) (int, error)

	// DeleteCode removes the code for the email, if any.
	DeleteCode(ctx context.Context, email string) error

	// CreateResendLock stores the resend rate-limit marker for the email.
	CreateResendLock(ctx context.Context, email string, expiresAt time.Time) error

	// GetResendLockTTL returns the remaining lifetime of the resend lock,
	// or zero when no live lock exists.
	GetResendLockTTL(ctx context.Context, email string) (time.Duration, error)

	// DeleteResendLock removes the resend lock for the email, if any.
	DeleteResendLock(ctx context.Context, email string) error

	// DeleteExpired purges expired codes and locks. Backends with passive
	// TTL eviction may treat this as a no-op.
	DeleteExpired(ctx context.Context) error
}

// PgVerificationRepository stores verification state in Postgres with
// explicit expiry and attempts columns.
type PgVerificationRepository struct {
	db *pgxpool.Pool
}

func NewPgVerificationRepository(db *pgxpool.Pool) *PgVerificationRepository {
	return &PgVerificationRepository{db: db}
}

func (r *PgVerificationRepository) CreateCode(ctx context.Context, email, code string, expiresAt time.Time) (*VerificationCode, error) {
	// Upsert keyed on email: issuing a new code invalidates the old one
	// in the same statement, so two codes are never simultaneously valid.
	query := `
		INSERT INTO verification_codes (email, code, attempts, created_at, expires_at)
		VALUES ($1, $2, 0, NOW() AT TIME ZONE 'UTC', $3)
		ON CONFLICT (email) DO UPDATE
		SET code = EXCLUDED.code,
		    attempts = 0,
		    created_at = EXCLUDED.created_at,
		    expires_at = EXCLUDED.expires_at
		RETURNING email, code, attempts, created_at, expires_at
	`

	var vc VerificationCode
	err := r.db.QueryRow(ctx, query, email, code, expiresAt).Scan(
		&vc.Email,
		&vc.Code,
		&vc.Attempts,
		&vc.CreatedAt,
		&vc.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	return &vc, nil
}

func (r *PgVerificationRepository) GetActiveCode(ctx context.Context, email string) (*VerificationCode, error) {
	query := `
		SELECT email, code, attempts, created_at, expires_at
		FROM verification_codes
		WHERE email = $1
		AND expires_at > NOW() AT TIME ZONE 'UTC'
	`

	var vc VerificationCode
	err := r.db.QueryRow(ctx, query, email).Scan(
		&vc.Email,
		&vc.Code,
		&vc.Attempts,
		&vc.CreatedAt,
		&vc.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}

	return &vc, nil
}

func (r *PgVerificationRepository) IncrementAttempts(ctx context.Context, email string) (int, error) {
	// Single conditional update keeps the read-modify-write atomic under
	// concurrent guesses.
	query := `
		UPDATE verification_codes
		SET attempts = attempts + 1
		WHERE email = $1
		AND expires_at > NOW() AT TIME ZONE 'UTC'
		RETURNING attempts
	`

	var attempts int
	err := r.db.QueryRow(ctx, query, email).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCodeNotFound
		}
		return 0, err
	}

	return attempts, nil
}

func (r *PgVerificationRepository) DeleteCode(ctx context.Context, email string) error {
	query := `DELETE FROM verification_codes WHERE email = $1`

	_, err := r.db.Exec(ctx, query, email)
	return err
}

func (r *PgVerificationRepository) CreateResendLock(ctx context.Context, email string, expiresAt time.Time) error {
	query := `
		INSERT INTO resend_locks (email, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE
		SET expires_at = EXCLUDED.expires_at
	`

	_, err := r.db.Exec(ctx, query, email, expiresAt)
	return err
}

func (r *PgVerificationRepository) GetResendLockTTL(ctx context.Context, email string) (time.Duration, error) {
	query := `
		SELECT expires_at
		FROM resend_locks
		WHERE email = $1
		AND expires_at > NOW() AT TIME ZONE 'UTC'
	`

	var expiresAt time.Time
	err := r.db.QueryRow(ctx, query, email).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	return time.Until(expiresAt.UTC()), nil
}

func (r *PgVerificationRepository) DeleteResendLock(ctx context.Context, email string) error {
	query := `DELETE FROM resend_locks WHERE email = $1`

	_, err := r.db.Exec(ctx, query, email)
	return err
}

func (r *PgVerificationRepository) DeleteExpired(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE expires_at <= NOW() AT TIME ZONE 'UTC'`); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `DELETE FROM resend_locks WHERE expires_at <= NOW() AT TIME ZONE 'UTC'`)
	return err
}
