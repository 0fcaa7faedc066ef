package domain

// UserUpdate is a closed set of single-column user mutations. Only the
// types below satisfy it, so a write outside the allow-list cannot be
// expressed.
type UserUpdate interface {
	Column() string
	Value() any
	userUpdate()
}

type SetPasswordHash string

func (SetPasswordHash) Column() string { return "password_hash" }
func (u SetPasswordHash) Value() any   { return string(u) }
func (SetPasswordHash) userUpdate()    {}

type SetEmail string

func (SetEmail) Column() string { return "email" }
func (u SetEmail) Value() any   { return string(u) }
func (SetEmail) userUpdate()    {}

type SetVerified string

func (SetVerified) Column() string { return "verified" }
func (u SetVerified) Value() any   { return string(u) }
func (SetVerified) userUpdate()    {}

type SetLastPasswordChange int64

func (SetLastPasswordChange) Column() string { return "last_password_change" }
func (u SetLastPasswordChange) Value() any   { return int64(u) }
func (SetLastPasswordChange) userUpdate()    {}

type SetLastEmailChange int64

func (SetLastEmailChange) Column() string { return "last_email_change" }
func (u SetLastEmailChange) Value() any   { return int64(u) }
func (SetLastEmailChange) userUpdate()    {}

type SetProfilePicture string

func (SetProfilePicture) Column() string { return "profile_picture" }
func (u SetProfilePicture) Value() any   { return string(u) }
func (SetProfilePicture) userUpdate()    {}

type SetProfilePictureChangedAt int64

func (SetProfilePictureChangedAt) Column() string { return "profile_picture_changed_at" }
func (u SetProfilePictureChangedAt) Value() any   { return int64(u) }
func (SetProfilePictureChangedAt) userUpdate()    {}

type SetLikedArticleIDs []string

func (SetLikedArticleIDs) Column() string { return "liked_article_ids" }
func (u SetLikedArticleIDs) Value() any   { return []string(u) }
func (SetLikedArticleIDs) userUpdate()    {}
