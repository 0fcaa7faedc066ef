package services

import (
	"context"
	"log"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SundayYogurt/inkpress-account-svc/internal/domain"
	"github.com/SundayYogurt/inkpress-account-svc/internal/dto"
	"github.com/SundayYogurt/inkpress-account-svc/internal/helper"
	"github.com/SundayYogurt/inkpress-account-svc/internal/interfaces"
	"github.com/SundayYogurt/inkpress-account-svc/internal/repository"
	"github.com/SundayYogurt/inkpress-account-svc/pkg/utils"
)

const (
	minPasswordLen = 8
	tokenBytes     = 24

	avatarSize           = 350
	avatarFolderSegment  = "/avatars/"
	pictureCooldown      = 7 * 24 * time.Hour
	emailChangeCooldown  = 3 * time.Hour
	resetMailCooldown    = 15 * time.Minute
	changeTokenTTL       = 6 * time.Hour
	resetPasswordRandLen = 4 // bytes, 8 hex chars appended to the username
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type AccountService interface {
	Register(input dto.RegisterRequest) *Result
	Authenticate(username, password string) *Result
	Refresh(refreshToken string) *Result
	Profile(username string) *Result
	ChangePassword(username string, input dto.ChangePasswordRequest) *Result
	RequestEmailChange(username string, input dto.EmailChangeRequest) *Result
	VerifyEmailChange(tokenValue string) *Result
	VerifyEmail(tokenValue string) *Result
	SendPasswordResetEmail(username string) *Result
	ResetPassword(tokenValue string) *Result
	ChangeProfilePicture(ctx context.Context, username string, imageData []byte) *Result
	DeleteAccount(ctx context.Context, username, password string) *Result
}

type accountService struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	articles repository.ArticleRepository
	store    interfaces.ObjectStore
	mailer   interfaces.Mailer
	auth     helper.Auth

	defaultAvatarURL string
	now              func() time.Time
}

func NewAccountService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	articles repository.ArticleRepository,
	store interfaces.ObjectStore,
	mailer interfaces.Mailer,
	auth helper.Auth,
	defaultAvatarURL string,
) AccountService {
	return &accountService{
		users:            users,
		tokens:           tokens,
		articles:         articles,
		store:            store,
		mailer:           mailer,
		auth:             auth,
		defaultAvatarURL: defaultAvatarURL,
		now:              time.Now,
	}
}

func claimsFor(user *domain.User) helper.Claims {
	return helper.Claims{
		Username:         user.Username,
		Email:            user.Email,
		Admin:            user.Admin,
		CanPost:          user.CanPost,
		Verified:         user.IsVerified(),
		AccountCreatedAt: user.AccountCreatedAt,
	}
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		Username:         user.Username,
		Email:            user.Email,
		Admin:            user.Admin,
		CanPost:          user.CanPost,
		Verified:         user.IsVerified(),
		AccountCreatedAt: user.AccountCreatedAt,
	}
}

func (s *accountService) Register(input dto.RegisterRequest) *Result {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))

	if username == "" {
		return fail(http.StatusBadRequest, "username is required")
	}
	if !emailPattern.MatchString(email) {
		return fail(http.StatusBadRequest, "invalid email address")
	}
	if len(input.Password) < minPasswordLen {
		return fail(http.StatusBadRequest, "password must be at least 8 characters")
	}

	existing, err := s.users.FindUserByUsername(username)
	if err != nil && err != repository.ErrNotFound {
		return serverError("failed to check username")
	}
	if existing != nil {
		return fail(http.StatusConflict, "username already taken")
	}

	hash, err := helper.HashPassword(input.Password)
	if err != nil {
		return serverError("failed to hash password")
	}

	now := s.now().Unix()
	user := &domain.User{
		Username:                username,
		PasswordHash:            hash,
		Email:                   email,
		Admin:                   input.Admin,
		CanPost:                 input.CanPost,
		Verified:                domain.VerifiedFalse,
		ProfilePicture:          s.defaultAvatarURL,
		ProfilePictureChangedAt: domain.PictureChangeUnset,
		AccountCreatedAt:        now,
	}
	if err := s.users.CreateUser(user); err != nil {
		return serverError("failed to create user")
	}

	code, err := utils.RandomToken(tokenBytes)
	if err != nil {
		return serverError("failed to generate verification token")
	}
	token := &domain.VerificationToken{
		Value:    code,
		Username: username,
		Kind:     domain.TokenEmailVerification,
		// The initial verification token never expires.
		ExpiresAt: 0,
	}
	if err := s.tokens.Save(token); err != nil {
		return serverError("failed to save verification token")
	}

	if err := s.mailer.SendVerification(email, username, code); err != nil {
		log.Printf("register: failed to send verification mail to %s: %v", email, err)
	}

	return ok("user registered, check your inbox to verify your email", nil)
}

func (s *accountService) Authenticate(username, password string) *Result {
	user, err := s.users.FindUserByUsername(strings.TrimSpace(username))
	if err == repository.ErrNotFound {
		return fail(http.StatusUnauthorized, "invalid username or password")
	}
	if err != nil {
		return serverError("failed to load user")
	}
	if !helper.CheckPassword(password, user.PasswordHash) {
		return fail(http.StatusUnauthorized, "invalid username or password")
	}

	return s.session(user, "logged in")
}

func (s *accountService) session(user *domain.User, message string) *Result {
	claims := claimsFor(user)
	accessToken, err := s.auth.IssueAccessToken(claims)
	if err != nil {
		return serverError("failed to issue access token")
	}
	refreshToken, err := s.auth.IssueRefreshToken(claims)
	if err != nil {
		return serverError("failed to issue refresh token")
	}

	return ok(message, map[string]any{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          userResponse(user),
	})
}

func (s *accountService) Refresh(refreshToken string) *Result {
	claims, err := s.auth.VerifyRefreshToken(refreshToken)
	if err == helper.ErrTokenExpired {
		return fail(http.StatusUnauthorized, "session expired, log in again")
	}
	if err != nil {
		return fail(http.StatusForbidden, "invalid refresh token")
	}

	// Reload so a refreshed session picks up flag changes.
	user, err := s.users.FindUserByUsername(claims.Username)
	if err == repository.ErrNotFound {
		return fail(http.StatusUnauthorized, "account no longer exists")
	}
	if err != nil {
		return serverError("failed to load user")
	}

	return s.session(user, "session refreshed")
}

func (s *accountService) Profile(username string) *Result {
	user, err := s.users.FindUserByUsername(username)
	if err == repository.ErrNotFound {
		return fail(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return serverError("failed to load user")
	}
	return ok("profile", map[string]any{"user": userResponse(user)})
}

func (s *accountService) ChangePassword(username string, input dto.ChangePasswordRequest) *Result {
	user, err := s.users.FindUserByUsername(username)
	if err == repository.ErrNotFound {
		return fail(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return serverError("failed to load user")
	}
	if !helper.CheckPassword(input.OldPassword, user.PasswordHash) {
		return fail(http.StatusUnauthorized, "incorrect password")
	}
	if len(input.NewPassword) < minPasswordLen {
		return fail(http.StatusBadRequest, "password must be at least 8 characters")
	}

	hash, err := helper.HashPassword(input.NewPassword)
	if err != nil {
		return serverError("failed to hash password")
	}
	if err := s.users.UpdateUserField(username, domain.SetPasswordHash(hash)); err != nil {
		return serverError("failed to update password")
	}
	if err := s.users.UpdateUserField(username, domain.SetLastPasswordChange(s.now().Unix())); err != nil {
		return serverError("failed to record password change")
	}

	return ok("password changed", nil)
}

func (s *accountService) RequestEmailChange(username string, input dto.EmailChangeRequest) *Result {
	user, err := s.users.FindUserByUsername(username)
	if err == repository.ErrNotFound {
		return fail(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return serverError("failed to load user")
	}

	now := s.now()
	if user.LastEmailChange != 0 && now.Sub(time.Unix(user.LastEmailChange, 0)) < emailChangeCooldown {
		return fail(http.StatusTooManyRequests, "email was changed recently, try again later")
	}
	if !helper.CheckPassword(input.Password, user.PasswordHash) {
		return fail(http.StatusUnauthorized, "incorrect password")
	}

	newEmail := strings.TrimSpace(strings.ToLower(input.NewEmail))
	if !emailPattern.MatchString(newEmail) {
		return fail(http.StatusBadRequest, "invalid email address")
	}

	code, err := utils.RandomToken(tokenBytes)
	if err != nil {
		return serverError("failed to generate verification token")
	}
	token := &domain.VerificationToken{
		Value:     code,
		Username:  username,
		Kind:      domain.TokenEmailChange,
		NewEmail:  newEmail,
		ExpiresAt: now.Add(changeTokenTTL).Unix(),
	}
	if err := s.tokens.Save(token); err != nil {
		return serverError("failed to save verification token")
	}

	if err := s.mailer.SendEmailChangeVerification(newEmail, username, code); err != nil {
		log.Printf("email change: failed to send mail to %s: %v", newEmail, err)
	}

	// The cooldown starts when the change is requested, not confirmed.
	if err := s.users.UpdateUserField(username, domain.SetLastEmailChange(now.Unix())); err != nil {
		return serverError("failed to record email change request")
	}

	accessToken, err := s.auth.IssueAccessToken(claimsFor(user))
	if err != nil {
		return serverError("failed to issue access token")
	}
	return ok("verification mail sent to the new address", map[string]any{
		"access_token": accessToken,
	})
}

func (s *accountService) VerifyEmailChange(tokenValue string) *Result {
	token, err := s.tokens.GetByValue(strings.TrimSpace(tokenValue))
	if err == repository.ErrNotFound {
		return fail(http.StatusGone, "verification code is invalid or expired")
	}
	if err != nil {
		return serverError("failed to load verification token")
	}
	if token.Kind != domain.TokenEmailChange {
		return fail(http.StatusGone, "verification code is invalid or expired")
	}
	if token.Expired(s.now()) {
		if err := s.tokens.Delete(token.Value); err != nil {
			log.Printf("email change: failed to purge expired token: %v", err)
		}
		return fail(http.StatusGone, "verification code is invalid or expired")
	}

	if err := s.users.UpdateUserField(token.Username, domain.SetEmail(token.NewEmail)); err != nil {
		return serverError("failed to update email")
	}
	if err := s.tokens.Delete(token.Value); err != nil {
		return serverError("failed to consume verification token")
	}

	return ok("email address updated", nil)
}

func (s *accountService) VerifyEmail(tokenValue string) *Result {
	token, err := s.tokens.GetByValue(strings.TrimSpace(tokenValue))
	if err == repository.ErrNotFound {
		return fail(http.StatusNotFound, "verification code not found")
	}
	if err != nil {
		return serverError("failed to load verification token")
	}
	if token.Kind != domain.TokenEmailVerification {
		return fail(http.StatusNotFound, "verification code not found")
	}

	user, err := s.users.FindUserByUsername(token.Username)
	if err == repository.ErrNotFound {
		return fail(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return serverError("failed to load user")
	}
	if user.IsVerified() {
		return fail(http.StatusGone, "email already verified")
	}

	if err := s.users.UpdateUserField(user.Username, domain.SetVerified(domain.VerifiedTrue)); err != nil {
		return serverError("failed to mark email verified")
	}
	if err := s.tokens.Delete(token.Value); err != nil {
		return serverError("failed to consume verification token")
	}

	return ok("email verified", nil)
}

func (s *accountService) SendPasswordResetEmail(username string) *Result {
	user, err := s.users.FindUserByUsername(strings.TrimSpace(username))
	if err == repository.ErrNotFound {
		return fail(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return serverError("failed to load user")
	}
	if !user.IsVerified() {
		return fail(http.StatusForbidden, "verify your email first")
	}

	now := s.now()
	if user.LastPasswordChange != 0 && now.Sub(time.Unix(user.LastPasswordChange, 0)) < resetMailCooldown {
		return fail(http.StatusTooManyRequests, "a reset mail was sent recently, try again later")
	}

	code, err := utils.RandomToken(tokenBytes)
	if err != nil {
		return serverError("failed to generate reset token")
	}
	token := &domain.VerificationToken{
		Value:     code,
		Username:  user.Username,
		Kind:      domain.TokenPasswordReset,
		ExpiresAt: now.Add(changeTokenTTL).Unix(),
	}
	if err := s.tokens.Save(token); err != nil {
		return serverError("failed to save reset token")
	}

	if err := s.mailer.SendPasswordReset(user.Email, user.Username, code); err != nil {
		log.Printf("password reset: failed to send mail to %s: %v", user.Email, err)
	}

	// LastPasswordChange doubles as the reset-mail cooldown anchor, so this
	// also pushes the next window out.
	if err := s.users.UpdateUserField(user.Username, domain.SetLastPasswordChange(now.Unix())); err != nil {
		return serverError("failed to record reset request")
	}

	return ok("password reset mail sent", nil)
}

func (s *accountService) ResetPassword(tokenValue string) *Result {
	token, err := s.tokens.GetByValue(strings.TrimSpace(tokenValue))
	if err == repository.ErrNotFound {
		return fail(http.StatusNotFound, "reset code not found")
	}
	if err != nil {
		return serverError("failed to load reset token")
	}
	if token.Kind != domain.TokenPasswordReset {
		return fail(http.StatusNotFound, "reset code not found")
	}
	if token.Expired(s.now()) {
		if err := s.tokens.Delete(token.Value); err != nil {
			log.Printf("password reset: failed to purge expired token: %v", err)
		}
		return fail(http.StatusGone, "reset code expired")
	}

	user, err := s.users.FindUserByUsername(token.Username)
	if err == repository.ErrNotFound {
		return fail(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return serverError("failed to load user")
	}

	suffix, err := utils.RandomToken(resetPasswordRandLen)
	if err != nil {
		return serverError("failed to generate password")
	}
	newPassword := user.Username + suffix

	hash, err := helper.HashPassword(newPassword)
	if err != nil {
		return serverError("failed to hash password")
	}
	if err := s.users.UpdateUserField(user.Username, domain.SetPasswordHash(hash)); err != nil {
		return serverError("failed to update password")
	}
	if err := s.tokens.Delete(token.Value); err != nil {
		return serverError("failed to consume reset token")
	}

	if err := s.mailer.SendNewPassword(user.Email, user.Username, newPassword); err != nil {
		log.Printf("password reset: failed to send new password to %s: %v", user.Email, err)
	}

	return ok("a new password was mailed to you", nil)
}

// avatarIDFromURL recovers the object-store id from a stored picture URL.
// Only URLs under the avatar folder qualify; anything else (seeded
// defaults, externally hosted pictures) is left alone.
func avatarIDFromURL(url string) (string, bool) {
	idx := strings.LastIndex(url, avatarFolderSegment)
	if idx < 0 {
		return "", false
	}
	base := path.Base(url[idx:])
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." {
		return "", false
	}
	return base, true
}

func (s *accountService) ChangeProfilePicture(ctx context.Context, username string, imageData []byte) *Result {
	user, err := s.users.FindUserByUsername(username)
	if err == repository.ErrNotFound {
		return fail(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return serverError("failed to load user")
	}

	now := s.now()
	if user.ProfilePictureChangedAt != domain.PictureChangeUnset &&
		now.Sub(time.Unix(user.ProfilePictureChangedAt, 0)) < pictureCooldown {
		return fail(http.StatusForbidden, "profile picture was changed within the last 7 days")
	}

	// Stamp first: a crash mid-flow must still consume the cooldown.
	if err := s.users.UpdateUserField(username, domain.SetProfilePictureChangedAt(now.Unix())); err != nil {
		return serverError("failed to record picture change")
	}

	if id, okID := avatarIDFromURL(user.ProfilePicture); okID && !domain.IsDefaultAvatar(user.ProfilePicture) {
		if err := s.store.Remove(ctx, id); err != nil {
			log.Printf("picture change: failed to remove old image %s: %v", id, err)
			return serverError("failed to remove previous picture")
		}
	}

	imageID := uuid.NewString()
	pictureURL, err := s.store.StoreImage(ctx, imageID, imageData, avatarSize, avatarSize)
	if err != nil {
		log.Printf("picture change: failed to store image for %s: %v", username, err)
		return serverError("failed to store picture")
	}

	if user.CanPost {
		if err := s.relinkArticlePictures(username, pictureURL); err != nil {
			log.Printf("picture change: failed to relink articles for %s: %v", username, err)
			return serverError("failed to update article pictures")
		}
	}

	if err := s.users.UpdateUserField(username, domain.SetProfilePicture(pictureURL)); err != nil {
		return serverError("failed to update profile picture")
	}

	accessToken, err := s.auth.IssueAccessToken(claimsFor(user))
	if err != nil {
		return serverError("failed to issue access token")
	}
	return ok("profile picture updated", map[string]any{
		"access_token":    accessToken,
		"profile_picture": pictureURL,
	})
}

// relinkArticlePictures re-points every article of the author, published
// and draft, to the new picture URL. The two tables are walked
// concurrently.
func (s *accountService) relinkArticlePictures(author, pictureURL string) error {
	var g errgroup.Group
	for _, table := range []string{domain.ArticleTablePublished, domain.ArticleTableDrafts} {
		table := table
		g.Go(func() error {
			ids, err := s.articles.FindIDsByAuthor(table, author)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := s.articles.UpdateAuthorPicture(table, id, pictureURL); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *accountService) DeleteAccount(ctx context.Context, username, password string) *Result {
	user, err := s.users.FindUserByUsername(username)
	if err == repository.ErrNotFound {
		return fail(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return serverError("failed to load user")
	}
	if !helper.CheckPassword(password, user.PasswordHash) {
		return fail(http.StatusForbidden, "incorrect password")
	}

	// Forward-only: completed steps are not rolled back.
	if id, okID := avatarIDFromURL(user.ProfilePicture); okID && !domain.IsDefaultAvatar(user.ProfilePicture) {
		if err := s.store.Remove(ctx, id); err != nil {
			log.Printf("delete account: failed to remove image for %s: %v", username, err)
			return serverError("failed to remove profile picture")
		}
	}
	if err := s.tokens.DeleteAllForUser(username); err != nil {
		return serverError("failed to delete tokens")
	}
	if err := s.articles.RemoveAllByAuthor(username); err != nil {
		return serverError("failed to delete articles")
	}
	if err := s.users.DeleteUser(username); err != nil {
		return serverError("failed to delete user")
	}

	return ok("account deleted", nil)
}
