package verification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-auth/pkg/notification"
)

type stubUserChecker struct {
	registered map[string]bool
}

func (c *stubUserChecker) EmailExists(_ context.Context, email string) (bool, error) {
	return c.registered[email], nil
}

func newTestService(t *testing.T, opts ...Option) (*VerificationService, *notification.MockNotifier) {
	t.Helper()

	mock := &notification.MockNotifier{}
	nm, err := notification.NewNotificationManagerWithOptions(
		notification.WithNotifier(notification.EmailSystem, mock),
		notification.WithDefaultTemplates(),
	)
	require.NoError(t, err)

	return NewVerificationService(NewInMemVerificationRepository(), nm, opts...), mock
}

func TestRequestCode(t *testing.T) {
	ctx := context.Background()

	t.Run("issues and emails a six digit code", func(t *testing.T) {
		svc, mock := newTestService(t)

		expiresIn, err := svc.RequestCode(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, 5*time.Minute, expiresIn)

		require.Len(t, mock.SentNotifications, 1)
		sent := mock.SentNotifications[0]
		assert.Equal(t, "alice@example.com", sent.To)
		assert.True(t, IsValidCode(sent.Data["Code"]))
		assert.Equal(t, "5", sent.Data["ExpiryMinutes"])
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		svc, mock := newTestService(t)

		_, err := svc.RequestCode(ctx, "not-an-email")
		assert.ErrorIs(t, err, ErrInvalidEmail)
		assert.Empty(t, mock.SentNotifications)
	})

	t.Run("rejects already registered email", func(t *testing.T) {
		checker := &stubUserChecker{registered: map[string]bool{"taken@example.com": true}}
		svc, _ := newTestService(t, WithUserChecker(checker))

		_, err := svc.RequestCode(ctx, "taken@example.com")
		assert.ErrorIs(t, err, ErrEmailRegistered)
	})

	t.Run("throttles resend inside the window", func(t *testing.T) {
		svc, mock := newTestService(t)

		_, err := svc.RequestCode(ctx, "alice@example.com")
		require.NoError(t, err)

		_, err = svc.RequestCode(ctx, "alice@example.com")
		assert.ErrorIs(t, err, ErrTooManyRequests)

		var rle *RateLimitedError
		require.ErrorAs(t, err, &rle)
		assert.Greater(t, rle.RetryAfter, time.Duration(0))
		assert.LessOrEqual(t, rle.RetryAfter, 60*time.Second)

		assert.Len(t, mock.SentNotifications, 1)
	})

	t.Run("allows resend after the window expires", func(t *testing.T) {
		now := time.Now().UTC()
		svc, mock := newTestService(t, WithNow(func() time.Time { return now }))

		_, err := svc.RequestCode(ctx, "alice@example.com")
		require.NoError(t, err)

		now = now.Add(61 * time.Second)
		_, err = svc.RequestCode(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Len(t, mock.SentNotifications, 2)
	})

	t.Run("keeps the code when the email fails to send", func(t *testing.T) {
		svc, mock := newTestService(t)
		mock.Err = fmt.Errorf("smtp unavailable")

		_, err := svc.RequestCode(ctx, "alice@example.com")
		assert.ErrorIs(t, err, ErrSendFailed)

		_, err = svc.repo.GetActiveCode(ctx, "alice@example.com")
		assert.NoError(t, err)
	})
}

func TestCheckCode(t *testing.T) {
	ctx := context.Background()

	issue := func(t *testing.T, svc *VerificationService, mock *notification.MockNotifier, email string) string {
		t.Helper()
		_, err := svc.RequestCode(ctx, email)
		require.NoError(t, err)
		return mock.SentNotifications[len(mock.SentNotifications)-1].Data["Code"]
	}

	t.Run("accepts the correct code and keeps it", func(t *testing.T) {
		svc, mock := newTestService(t)
		code := issue(t, svc, mock, "alice@example.com")

		require.NoError(t, svc.CheckCode(ctx, "alice@example.com", code))
		// still checkable until consumed or expired
		require.NoError(t, svc.CheckCode(ctx, "alice@example.com", code))
	})

	t.Run("rejects a wrong code and counts down attempts", func(t *testing.T) {
		svc, mock := newTestService(t)
		code := issue(t, svc, mock, "alice@example.com")
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		err := svc.CheckCode(ctx, "alice@example.com", wrong)
		assert.ErrorIs(t, err, ErrInvalidCode)

		var ice *InvalidCodeError
		require.ErrorAs(t, err, &ice)
		assert.Equal(t, 4, ice.AttemptsRemaining)
	})

	t.Run("locks out after five wrong guesses even with the right code", func(t *testing.T) {
		svc, mock := newTestService(t)
		code := issue(t, svc, mock, "alice@example.com")
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		for want := 4; want >= 0; want-- {
			err := svc.CheckCode(ctx, "alice@example.com", wrong)
			assert.ErrorIs(t, err, ErrInvalidCode)

			var ice *InvalidCodeError
			require.ErrorAs(t, err, &ice)
			assert.Equal(t, want, ice.AttemptsRemaining)
		}

		// sixth call invalidates the code for good
		err := svc.CheckCode(ctx, "alice@example.com", code)
		assert.ErrorIs(t, err, ErrTooManyAttempts)

		err = svc.CheckCode(ctx, "alice@example.com", code)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("rejects malformed code before touching storage", func(t *testing.T) {
		svc, _ := newTestService(t)

		err := svc.CheckCode(ctx, "alice@example.com", "12345")
		assert.ErrorIs(t, err, ErrInvalidCodeFormat)
	})

	t.Run("reports missing code for unknown email", func(t *testing.T) {
		svc, _ := newTestService(t)

		err := svc.CheckCode(ctx, "nobody@example.com", "123456")
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("rejects an expired code", func(t *testing.T) {
		now := time.Now().UTC()
		repo := NewInMemVerificationRepository()
		repo.now = func() time.Time { return now }

		mock := &notification.MockNotifier{}
		nm, err := notification.NewNotificationManagerWithOptions(
			notification.WithNotifier(notification.EmailSystem, mock),
			notification.WithDefaultTemplates(),
		)
		require.NoError(t, err)
		svc := NewVerificationService(repo, nm, WithNow(func() time.Time { return now }))

		_, err = svc.RequestCode(ctx, "alice@example.com")
		require.NoError(t, err)
		code := mock.SentNotifications[0].Data["Code"]

		now = now.Add(5*time.Minute + time.Second)
		err = svc.CheckCode(ctx, "alice@example.com", code)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})
}

func TestConsume(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the code on success", func(t *testing.T) {
		svc, mock := newTestService(t)
		_, err := svc.RequestCode(ctx, "alice@example.com")
		require.NoError(t, err)
		code := mock.SentNotifications[0].Data["Code"]

		require.NoError(t, svc.Consume(ctx, "alice@example.com", code))

		err = svc.CheckCode(ctx, "alice@example.com", code)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("leaves the code in place on a wrong guess", func(t *testing.T) {
		svc, mock := newTestService(t)
		_, err := svc.RequestCode(ctx, "alice@example.com")
		require.NoError(t, err)
		code := mock.SentNotifications[0].Data["Code"]
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		err = svc.Consume(ctx, "alice@example.com", wrong)
		assert.ErrorIs(t, err, ErrInvalidCode)

		require.NoError(t, svc.Consume(ctx, "alice@example.com", code))
	})
}

func TestInvalidateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.RequestCode(ctx, "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateEmail(ctx, "alice@example.com"))

	err = svc.CheckCode(ctx, "alice@example.com", "123456")
	assert.ErrorIs(t, err, ErrCodeNotFound)

	// resend lock cleared too
	_, err = svc.RequestCode(ctx, "alice@example.com")
	require.NoError(t, err)
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.True(t, IsValidCode(code), "got %q", code)
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.com", "x@sub.domain.org"}
	invalid := []string{"", "plain", "@no-user.com", "no-domain@", "spaces in@example.com", "no-tld@host"}

	for _, email := range valid {
		assert.True(t, IsValidEmail(email), "expected %q to be valid", email)
	}
	for _, email := range invalid {
		assert.False(t, IsValidEmail(email), "expected %q to be invalid", email)
	}
}
