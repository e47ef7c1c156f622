package notification

// NotificationSystem represents a delivery channel (e.g., email).
type NotificationSystem string

// NoticeType represents a kind of notice (e.g., "verification_code").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	VerificationCodeNotice NoticeType = "verification_code"
	ExampleNotice          NoticeType = "example"
)

// NoticeTemplate holds the subject and body templates for a notice.
// Text and Html are Go text templates rendered with NotificationData.Data.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type NotificationData struct {
	To      string            // Recipient identifier (e.g., email address)
	Subject string            // Optional subject override
	Body    string            // Pre-rendered content, used when no template applies
	Data    map[string]string // Template data (e.g., the verification code)
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
