package notification

import (
	"testing"
)

func TestNewNotificationManager(t *testing.T) {
	nm := NewNotificationManager()
	if nm == nil {
		t.Fatal("NewNotificationManager returned nil")
	}
	if nm.notifiers == nil {
		t.Error("notifiers map not initialized")
	}
	if nm.notificationRegistry == nil {
		t.Error("notificationRegistry map not initialized")
	}
}

func TestRegisterNotifier(t *testing.T) {
	nm := NewNotificationManager()
	mockNotifier := &MockNotifier{}

	nm.RegisterNotifier(EmailSystem, mockNotifier)
	if n, exists := nm.notifiers[EmailSystem]; !exists {
		t.Error("Notifier not registered")
	} else if n != mockNotifier {
		t.Error("Wrong notifier registered")
	}

	// registering again overwrites
	newMockNotifier := &MockNotifier{}
	nm.RegisterNotifier(EmailSystem, newMockNotifier)
	if n := nm.notifiers[EmailSystem]; n != newMockNotifier {
		t.Error("Notifier not overwritten")
	}
}

func TestRegisterNotification(t *testing.T) {
	nm := NewNotificationManager()

	tests := []struct {
		name        string
		noticeType  NoticeType
		system      NotificationSystem
		template    NoticeTemplate
		shouldError bool
	}{
		{
			name:        "Valid registration with both Text and Html",
			noticeType:  ExampleNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Example", Text: "example", Html: "<p>example</p>"},
			shouldError: false,
		},
		{
			name:        "Valid registration with Text only",
			noticeType:  ExampleNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Example", Text: "example"},
			shouldError: false,
		},
		{
			name:        "Empty notice type",
			noticeType:  "",
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Example"},
			shouldError: true,
		},
		{
			name:        "Empty system",
			noticeType:  ExampleNotice,
			system:      "",
			template:    NoticeTemplate{Subject: "Example"},
			shouldError: true,
		},
		{
			name:        "Empty template",
			noticeType:  ExampleNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := nm.RegisterNotification(tt.noticeType, tt.system, tt.template)
			if tt.shouldError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSend(t *testing.T) {
	nm := NewNotificationManager()
	mockNotifier := &MockNotifier{}
	nm.RegisterNotifier(EmailSystem, mockNotifier)

	err := nm.RegisterNotification(VerificationCodeNotice, EmailSystem, NoticeTemplate{
		Subject: "Your Email Verification Code",
		Text:    "Your verification code is: {{.Code}}",
	})
	if err != nil {
		t.Fatalf("RegisterNotification failed: %v", err)
	}

	t.Run("Delivers", func(t *testing.T) {
		err := nm.Send(VerificationCodeNotice, EmailSystem, NotificationData{
			To:   "user@example.com",
			Data: map[string]string{"Code": "123456"},
		})
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if len(mockNotifier.SentNotifications) != 1 {
			t.Fatalf("expected 1 sent notification, got %d", len(mockNotifier.SentNotifications))
		}
		if mockNotifier.SentNotifications[0].To != "user@example.com" {
			t.Errorf("wrong recipient: %s", mockNotifier.SentNotifications[0].To)
		}
	})

	t.Run("UnregisteredNoticeType", func(t *testing.T) {
		err := nm.Send(ExampleNotice, EmailSystem, NotificationData{To: "user@example.com"})
		if err == nil {
			t.Error("expected error for unregistered notice type")
		}
	})

	t.Run("UnregisteredSystem", func(t *testing.T) {
		err := nm.Send(VerificationCodeNotice, "sms", NotificationData{To: "user@example.com"})
		if err == nil {
			t.Error("expected error for unregistered system")
		}
	})
}
