package verification

import (
	"context"
	"sync"
	"time"
)

// InMemVerificationRepository keeps verification state in process memory.
// Expired entries are filtered at read time and purged by DeleteExpired.
// Intended for tests and single-instance deployments without Postgres.
type InMemVerificationRepository struct {
	mu    sync.Mutex
	codes map[string]*VerificationCode
	locks map[string]time.Time
	now   func() time.Time
}

func NewInMemVerificationRepository() *InMemVerificationRepository {
	return &InMemVerificationRepository{
		codes: make(map[string]*VerificationCode),
		locks: make(map[string]time.Time),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemVerificationRepository) CreateCode(_ context.Context, email, code string, expiresAt time.Time) (*VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vc := &VerificationCode{
		Email:     email,
		Code:      code,
		Attempts:  0,
		CreatedAt: r.now(),
		ExpiresAt: expiresAt,
	}
	r.codes[email] = vc

	copied := *vc
	return &copied, nil
}

func (r *InMemVerificationRepository) GetActiveCode(_ context.Context, email string) (*VerificationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vc, ok := r.codes[email]
	if !ok || !vc.ExpiresAt.After(r.now()) {
		return nil, ErrCodeNotFound
	}

	copied := *vc
	return &copied, nil
}

func (r *InMemVerificationRepository) IncrementAttempts(_ context.Context, email string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vc, ok := r.codes[email]
	if !ok || !vc.ExpiresAt.After(r.now()) {
		return 0, ErrCodeNotFound
	}

	vc.Attempts++
	return vc.Attempts, nil
}

func (r *InMemVerificationRepository) DeleteCode(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.codes, email)
	return nil
}

func (r *InMemVerificationRepository) CreateResendLock(_ context.Context, email string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.locks[email] = expiresAt
	return nil
}

func (r *InMemVerificationRepository) GetResendLockTTL(_ context.Context, email string) (time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt, ok := r.locks[email]
	if !ok {
		return 0, nil
	}

	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (r *InMemVerificationRepository) DeleteResendLock(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.locks, email)
	return nil
}

func (r *InMemVerificationRepository) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for email, vc := range r.codes {
		if !vc.ExpiresAt.After(now) {
			delete(r.codes, email)
		}
	}
	for email, expiresAt := range r.locks {
		if !expiresAt.After(now) {
			delete(r.locks, email)
		}
	}
	return nil
}
