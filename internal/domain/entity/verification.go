package entity

// VerificationType distinguishes what the mailbox poller extracted.
type VerificationType string

const (
	VerificationOTP  VerificationType = "otp"
	VerificationLink VerificationType = "link"
)

// VerificationResult carries the code or link found in the verification
// email. When a message contains both, Type is link and OTP holds the
// supplementary code.
type VerificationResult struct {
	Type  VerificationType
	Value string
	OTP   string
}

// MailMessage is a mailbox listing entry.
type MailMessage struct {
	ID        string
	From      string
	Subject   string
	Timestamp int64
}

// MailBody is a fetched message body. HTML may be empty for plain-text
// messages.
type MailBody struct {
	Text string
	HTML string
}
