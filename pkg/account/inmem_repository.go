package account

import (
	"context"
	"sync"
	"time"
)

// InMemUserRepository keeps users in process memory. Intended for tests and
// single-instance deployments without Postgres.
type InMemUserRepository struct {
	mu      sync.Mutex
	users   map[int64]*User
	byEmail map[string]int64
	nextID  int64
}

func NewInMemUserRepository() *InMemUserRepository {
	return &InMemUserRepository{
		users:   make(map[int64]*User),
		byEmail: make(map[string]int64),
		nextID:  1,
	}
}

func (r *InMemUserRepository) CreateUser(_ context.Context, email, passwordHash string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return nil, ErrEmailTaken
	}

	user := &User{
		ID:           r.nextID,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.nextID++
	r.users[user.ID] = user
	r.byEmail[email] = user.ID

	copied := *user
	return &copied, nil
}

func (r *InMemUserRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}

	copied := *r.users[id]
	return &copied, nil
}

func (r *InMemUserRepository) GetUserByID(_ context.Context, id int64) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}

	copied := *user
	return &copied, nil
}

func (r *InMemUserRepository) DeleteUser(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}

	delete(r.byEmail, user.Email)
	delete(r.users, id)
	return nil
}

func (r *InMemUserRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byEmail[email]
	return ok, nil
}
