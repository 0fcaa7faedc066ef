package domain

import "strings"

// Verified is stored as a string flag ("true"/"false") to stay compatible
// with the rows migrated from the old document store.
const (
	VerifiedTrue  = "true"
	VerifiedFalse = "false"
)

// PictureChangeUnset marks an account that has never rotated its avatar,
// which bypasses the picture-change cooldown once.
const PictureChangeUnset int64 = 0

type User struct {
	Username     string `gorm:"primaryKey;size:64" json:"username"`
	PasswordHash string `gorm:"not null" json:"-"`
	Email        string `gorm:"not null;index" json:"email"`

	Admin    bool   `gorm:"not null;default:false" json:"admin"`
	CanPost  bool   `gorm:"not null;default:false" json:"can_post"`
	Verified string `gorm:"type:varchar(8);not null;default:false" json:"verified"`

	// Unix seconds. LastPasswordChange doubles as the reset-mail cooldown
	// anchor, so requesting a reset mail pushes the next window too.
	LastPasswordChange int64 `gorm:"not null;default:0" json:"last_password_change"`
	LastEmailChange    int64 `gorm:"not null;default:0" json:"last_email_change"`

	LikedArticleIDs []string `gorm:"serializer:json" json:"liked_article_ids"`

	ProfilePicture          string `json:"profile_picture"`
	ProfilePictureChangedAt int64  `gorm:"not null;default:0" json:"profile_picture_changed_at"`

	AccountCreatedAt int64 `gorm:"not null" json:"account_created_at"`
}

func (u *User) IsVerified() bool {
	return u.Verified == VerifiedTrue
}

// IsDefaultAvatar is the single place that knows how the seeded default
// picture URL looks. Deletion flows skip object-store removal for it.
func IsDefaultAvatar(url string) bool {
	return strings.Contains(url, "pfp")
}
