package dto

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	CanPost  bool   `json:"can_post"`
	Admin    bool   `json:"admin"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type EmailChangeRequest struct {
	Password string `json:"password"`
	NewEmail string `json:"new_email"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type PasswordResetRequest struct {
	Username string `json:"username"`
}

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// UserResponse mirrors the claims embedded in session tokens.
type UserResponse struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Admin            bool   `json:"admin"`
	CanPost          bool   `json:"can_post"`
	Verified         bool   `json:"verified"`
	AccountCreatedAt int64  `json:"account_created_at"`
}

type SessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}
