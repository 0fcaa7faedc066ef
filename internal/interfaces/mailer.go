package interfaces

// Mailer delivers account mails. Implementations may be asynchronous; an
// error only means the message could not be handed off.
type Mailer interface {
	SendVerification(email, username, code string) error
	SendEmailChangeVerification(email, username, code string) error
	SendPasswordReset(email, username, code string) error
	SendNewPassword(email, username, newPassword string) error
}
