package dto

// Kafka message keys for the mail topic.
const (
	EventVerifyEmail      = "account.verify_email"
	EventEmailChange      = "account.change_email"
	EventPasswordReset    = "account.reset_password"
	EventPasswordReissued = "account.new_password"
)

// MailEvent is the payload published for every outgoing account mail.
// Code carries the verification token, or the plaintext password for
// EventPasswordReissued.
type MailEvent struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Code     string `json:"code"`
}
