package verification

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-auth/pkg/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	dbName := "auth_db"
	dbUser := "auth"
	dbPassword := "pwd"

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.RunMigrations(connString))

	poolConfig, err := pgxpool.ParseConfig(connString)
	require.NoError(t, err)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

func TestPgVerificationRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	pool, cleanup := setupTestDatabase(t)
	defer cleanup()

	repo := NewPgVerificationRepository(pool)

	t.Run("create and fetch active code", func(t *testing.T) {
		expiresAt := time.Now().UTC().Add(5 * time.Minute)
		created, err := repo.CreateCode(ctx, "alice@example.com", "123456", expiresAt)
		require.NoError(t, err)
		assert.Equal(t, 0, created.Attempts)

		vc, err := repo.GetActiveCode(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "123456", vc.Code)
		assert.Equal(t, 0, vc.Attempts)
	})

	t.Run("reissuing replaces the code and resets attempts", func(t *testing.T) {
		expiresAt := time.Now().UTC().Add(5 * time.Minute)
		_, err := repo.CreateCode(ctx, "bob@example.com", "111111", expiresAt)
		require.NoError(t, err)

		_, err = repo.IncrementAttempts(ctx, "bob@example.com")
		require.NoError(t, err)

		created, err := repo.CreateCode(ctx, "bob@example.com", "222222", expiresAt)
		require.NoError(t, err)
		assert.Equal(t, "222222", created.Code)
		assert.Equal(t, 0, created.Attempts)
	})

	t.Run("expired code is not returned", func(t *testing.T) {
		expiresAt := time.Now().UTC().Add(-time.Second)
		_, err := repo.CreateCode(ctx, "stale@example.com", "333333", expiresAt)
		require.NoError(t, err)

		_, err = repo.GetActiveCode(ctx, "stale@example.com")
		assert.ErrorIs(t, err, ErrCodeNotFound)

		_, err = repo.IncrementAttempts(ctx, "stale@example.com")
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("increment attempts returns the running count", func(t *testing.T) {
		expiresAt := time.Now().UTC().Add(5 * time.Minute)
		_, err := repo.CreateCode(ctx, "carol@example.com", "444444", expiresAt)
		require.NoError(t, err)

		for want := 1; want <= 3; want++ {
			got, err := repo.IncrementAttempts(ctx, "carol@example.com")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("delete code", func(t *testing.T) {
		expiresAt := time.Now().UTC().Add(5 * time.Minute)
		_, err := repo.CreateCode(ctx, "dave@example.com", "555555", expiresAt)
		require.NoError(t, err)

		require.NoError(t, repo.DeleteCode(ctx, "dave@example.com"))

		_, err = repo.GetActiveCode(ctx, "dave@example.com")
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("resend lock lifecycle", func(t *testing.T) {
		ttl, err := repo.GetResendLockTTL(ctx, "erin@example.com")
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), ttl)

		require.NoError(t, repo.CreateResendLock(ctx, "erin@example.com", time.Now().UTC().Add(60*time.Second)))

		ttl, err = repo.GetResendLockTTL(ctx, "erin@example.com")
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, 60*time.Second)

		require.NoError(t, repo.DeleteResendLock(ctx, "erin@example.com"))

		ttl, err = repo.GetResendLockTTL(ctx, "erin@example.com")
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), ttl)
	})

	t.Run("delete expired purges stale rows", func(t *testing.T) {
		past := time.Now().UTC().Add(-time.Minute)
		_, err := repo.CreateCode(ctx, "old@example.com", "666666", past)
		require.NoError(t, err)
		require.NoError(t, repo.CreateResendLock(ctx, "old@example.com", past))

		require.NoError(t, repo.DeleteExpired(ctx))

		var count int
		err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM verification_codes WHERE email = 'old@example.com'`).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
