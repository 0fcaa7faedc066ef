package domain

import "time"

// Token kinds. A token minted for one kind is never accepted by a flow
// expecting another.
const (
	TokenEmailVerification = "email_verification"
	TokenEmailChange       = "email_change"
	TokenPasswordReset     = "password_reset"
)

// VerificationToken is a single-use code linking an action to a username.
// The random value is the primary key, so re-minting the same value
// overwrites the previous interpretation.
type VerificationToken struct {
	Value    string `gorm:"primaryKey;size:128" json:"-"`
	Username string `gorm:"index;not null" json:"username"`
	Kind     string `gorm:"size:32;not null" json:"kind"`

	// Pending address for email_change tokens, empty otherwise.
	NewEmail string `json:"new_email,omitempty"`

	// Unix seconds; 0 means the token never expires (initial verification).
	ExpiresAt int64 `gorm:"not null;default:0" json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
}

func (t *VerificationToken) Expired(now time.Time) bool {
	return t.ExpiresAt != 0 && now.Unix() > t.ExpiresAt
}
