// Package notification provides a unified interface for sending notices
// through pluggable delivery channels.
//
// The NotificationManager routes a (notice type, system) pair to the
// registered Notifier using the registered template. The service ships an
// SMTP email notifier and a mock notifier for tests; custom channels only
// need to implement the Notifier interface.
//
// # Basic Usage
//
//	import "github.com/tendant/simple-auth/pkg/notification"
//
//	nm, err := notification.NewNotificationManagerWithOptions(
//		notification.WithSMTP(notification.SMTPConfig{
//			Host: "localhost",
//			Port: 1025,
//			From: "noreply@example.com",
//		}),
//		notification.WithDefaultTemplates(),
//	)
//
//	err = nm.Send(notification.VerificationCodeNotice, notification.EmailSystem,
//		notification.NotificationData{
//			To:   "user@example.com",
//			Data: map[string]string{"Code": "123456", "ExpiryMinutes": "5"},
//		})
//
// Templates are Go templates rendered with NotificationData.Data and live
// under templates/, embedded into the binary.
package notification
