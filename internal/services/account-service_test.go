package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SundayYogurt/inkpress-account-svc/internal/domain"
	"github.com/SundayYogurt/inkpress-account-svc/internal/dto"
	"github.com/SundayYogurt/inkpress-account-svc/internal/helper"
)

const testDefaultAvatar = "https://cdn.test/images/pfp.png"

type testEnv struct {
	svc      *accountService
	users    *fakeUserRepo
	tokens   *fakeTokenRepo
	articles *fakeArticleRepo
	store    *fakeObjectStore
	mailer   *fakeMailer
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    newFakeUserRepo(),
		tokens:   newFakeTokenRepo(),
		articles: newFakeArticleRepo(),
		store:    newFakeObjectStore(),
		mailer:   &fakeMailer{},
		now:      time.Unix(1756000000, 0),
	}

	auth := helper.SetupAuth("test-access-secret", "test-refresh-secret")
	svc := NewAccountService(env.users, env.tokens, env.articles, env.store, env.mailer, auth, testDefaultAvatar)
	env.svc = svc.(*accountService)
	env.svc.now = func() time.Time { return env.now }
	return env
}

func (e *testEnv) advance(d time.Duration) {
	e.now = e.now.Add(d)
}

func (e *testEnv) register(t *testing.T, username, password, email string, canPost bool) {
	t.Helper()
	res := e.svc.Register(dto.RegisterRequest{
		Username: username,
		Password: password,
		Email:    email,
		CanPost:  canPost,
	})
	require.Equal(t, http.StatusOK, res.Status, res.Message)
}

func (e *testEnv) verificationCode(t *testing.T, username string) string {
	t.Helper()
	tokens := e.tokens.forUser(username, domain.TokenEmailVerification)
	require.Len(t, tokens, 1)
	return tokens[0].Value
}

func TestRegister(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.register(t, "alice", "password1", "alice@x.com", false)

	user, err := env.users.FindUserByUsername("alice")
	require.NoError(t, err)
	assert.False(t, user.IsVerified())
	assert.Equal(t, testDefaultAvatar, user.ProfilePicture)
	assert.Equal(t, domain.PictureChangeUnset, user.ProfilePictureChangedAt)
	assert.Equal(t, env.now.Unix(), user.AccountCreatedAt)

	// The verification token never expires and was mailed out.
	tokens := env.tokens.forUser("alice", domain.TokenEmailVerification)
	require.Len(t, tokens, 1)
	assert.Equal(t, int64(0), tokens[0].ExpiresAt)
	assert.Len(t, tokens[0].Value, 48)
	assert.Equal(t, "verification", env.mailer.last().kind)
	assert.Equal(t, tokens[0].Value, env.mailer.last().code)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	res := env.svc.Register(dto.RegisterRequest{Username: "alice", Password: "password1", Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = env.svc.Register(dto.RegisterRequest{Username: "alice", Password: "short", Email: "alice@x.com"})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = env.svc.Register(dto.RegisterRequest{Username: "", Password: "password1", Email: "alice@x.com"})
	assert.Equal(t, http.StatusBadRequest, res.Status)
}

func TestRegister_UsernameTaken(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.register(t, "alice", "password1", "alice@x.com", false)
	res := env.svc.Register(dto.RegisterRequest{Username: "alice", Password: "password2", Email: "other@x.com"})
	assert.Equal(t, http.StatusConflict, res.Status)
}

func TestRegister_MailFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.mailer.sendErr = assert.AnError

	res := env.svc.Register(dto.RegisterRequest{Username: "alice", Password: "password1", Email: "alice@x.com"})
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	res := env.svc.Authenticate("alice", "password1")
	require.Equal(t, http.StatusOK, res.Status)
	assert.NotEmpty(t, res.Payload["access_token"])
	assert.NotEmpty(t, res.Payload["refresh_token"])

	user := res.Payload["user"].(dto.UserResponse)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.Verified)
}

func TestAuthenticate_UniformFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	wrongPassword := env.svc.Authenticate("alice", "password2")
	noSuchUser := env.svc.Authenticate("bob", "password1")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Status)
	assert.Equal(t, http.StatusUnauthorized, noSuchUser.Status)
	// The message must not reveal which check failed.
	assert.Equal(t, wrongPassword.Message, noSuchUser.Message)
}

func TestAuthenticate_WorksBeforeVerification(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	// Verification is enforced by the request gate, not by login.
	res := env.svc.Authenticate("alice", "password1")
	assert.Equal(t, http.StatusOK, res.Status)

	user, err := env.users.FindUserByUsername("alice")
	require.NoError(t, err)
	assert.False(t, user.IsVerified())
}

func TestVerifyEmail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	res := env.svc.VerifyEmail("0000000000000000000000000000000000000000000000ff")
	assert.Equal(t, http.StatusNotFound, res.Status)

	code := env.verificationCode(t, "alice")
	res = env.svc.VerifyEmail(code)
	require.Equal(t, http.StatusOK, res.Status)

	user, err := env.users.FindUserByUsername("alice")
	require.NoError(t, err)
	assert.True(t, user.IsVerified())

	// Consumed: the same code is gone.
	res = env.svc.VerifyEmail(code)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestVerifyEmail_AlreadyVerified(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	require.Equal(t, http.StatusOK, env.svc.VerifyEmail(env.verificationCode(t, "alice")).Status)

	// A leftover verification token for an already verified account is gone.
	stale := &domain.VerificationToken{
		Value:    "stale-code",
		Username: "alice",
		Kind:     domain.TokenEmailVerification,
	}
	require.NoError(t, env.tokens.Save(stale))

	res := env.svc.VerifyEmail("stale-code")
	assert.Equal(t, http.StatusGone, res.Status)
}

func TestVerifyEmail_RejectsWrongTokenKind(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	reset := &domain.VerificationToken{
		Value:     "reset-code",
		Username:  "alice",
		Kind:      domain.TokenPasswordReset,
		ExpiresAt: env.now.Add(time.Hour).Unix(),
	}
	require.NoError(t, env.tokens.Save(reset))

	res := env.svc.VerifyEmail("reset-code")
	assert.Equal(t, http.StatusNotFound, res.Status)

	// The token survives rejection and stays usable for its own flow.
	_, err := env.tokens.GetByValue("reset-code")
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	res := env.svc.ChangePassword("alice", dto.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "password2"})
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = env.svc.ChangePassword("alice", dto.ChangePasswordRequest{OldPassword: "password1", NewPassword: "short"})
	assert.Equal(t, http.StatusBadRequest, res.Status)

	res = env.svc.ChangePassword("alice", dto.ChangePasswordRequest{OldPassword: "password1", NewPassword: "password2"})
	require.Equal(t, http.StatusOK, res.Status)

	user, err := env.users.FindUserByUsername("alice")
	require.NoError(t, err)
	assert.True(t, helper.CheckPassword("password2", user.PasswordHash))
	assert.Equal(t, env.now.Unix(), user.LastPasswordChange)
}

func TestRequestEmailChange(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	res := env.svc.RequestEmailChange("alice", dto.EmailChangeRequest{Password: "wrong", NewEmail: "new@x.com"})
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res = env.svc.RequestEmailChange("alice", dto.EmailChangeRequest{Password: "password1", NewEmail: "new@x.com"})
	require.Equal(t, http.StatusOK, res.Status)
	assert.NotEmpty(t, res.Payload["access_token"])

	tokens := env.tokens.forUser("alice", domain.TokenEmailChange)
	require.Len(t, tokens, 1)
	assert.Equal(t, "new@x.com", tokens[0].NewEmail)
	assert.Equal(t, env.now.Add(6*time.Hour).Unix(), tokens[0].ExpiresAt)
	assert.Equal(t, "new@x.com", env.mailer.last().email)

	// Cooldown: once per 3 hours.
	env.advance(time.Hour)
	res = env.svc.RequestEmailChange("alice", dto.EmailChangeRequest{Password: "password1", NewEmail: "third@x.com"})
	assert.Equal(t, http.StatusTooManyRequests, res.Status)

	env.advance(3 * time.Hour)
	res = env.svc.RequestEmailChange("alice", dto.EmailChangeRequest{Password: "password1", NewEmail: "third@x.com"})
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestVerifyEmailChange(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	require.Equal(t, http.StatusOK,
		env.svc.RequestEmailChange("alice", dto.EmailChangeRequest{Password: "password1", NewEmail: "new@x.com"}).Status)
	code := env.mailer.last().code

	res := env.svc.VerifyEmailChange("wrong-code")
	assert.Equal(t, http.StatusGone, res.Status)

	res = env.svc.VerifyEmailChange(code)
	require.Equal(t, http.StatusOK, res.Status)

	user, err := env.users.FindUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", user.Email)

	// Single use.
	res = env.svc.VerifyEmailChange(code)
	assert.Equal(t, http.StatusGone, res.Status)
}

func TestVerifyEmailChange_ExpiredTokenIsPurged(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	require.Equal(t, http.StatusOK,
		env.svc.RequestEmailChange("alice", dto.EmailChangeRequest{Password: "password1", NewEmail: "new@x.com"}).Status)
	code := env.mailer.last().code

	env.advance(7 * time.Hour)
	res := env.svc.VerifyEmailChange(code)
	assert.Equal(t, http.StatusGone, res.Status)

	// Expired tokens are removed, not just rejected.
	_, err := env.tokens.GetByValue(code)
	assert.Error(t, err)

	user, err := env.users.FindUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", user.Email)
}

func TestSendPasswordResetEmail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	// Unverified accounts cannot request reset mails.
	res := env.svc.SendPasswordResetEmail("alice")
	assert.Equal(t, http.StatusForbidden, res.Status)

	require.Equal(t, http.StatusOK, env.svc.VerifyEmail(env.verificationCode(t, "alice")).Status)

	res = env.svc.SendPasswordResetEmail("alice")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "password_reset", env.mailer.last().kind)

	// Requesting a reset mail bumps LastPasswordChange to open its own
	// cooldown window.
	user, err := env.users.FindUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, env.now.Unix(), user.LastPasswordChange)

	env.advance(10 * time.Minute)
	res = env.svc.SendPasswordResetEmail("alice")
	assert.Equal(t, http.StatusTooManyRequests, res.Status)

	env.advance(6 * time.Minute)
	res = env.svc.SendPasswordResetEmail("alice")
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestResetPassword(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)
	require.Equal(t, http.StatusOK, env.svc.VerifyEmail(env.verificationCode(t, "alice")).Status)
	require.Equal(t, http.StatusOK, env.svc.SendPasswordResetEmail("alice").Status)
	code := env.mailer.last().code

	res := env.svc.ResetPassword("wrong-code")
	assert.Equal(t, http.StatusNotFound, res.Status)

	res = env.svc.ResetPassword(code)
	require.Equal(t, http.StatusOK, res.Status)

	// Generated password is the username plus 8 random hex characters and
	// was mailed out in plaintext.
	mailed := env.mailer.last()
	assert.Equal(t, "new_password", mailed.kind)
	require.True(t, strings.HasPrefix(mailed.code, "alice"))
	assert.Len(t, mailed.code, len("alice")+8)

	user, err := env.users.FindUserByUsername("alice")
	require.NoError(t, err)
	assert.True(t, helper.CheckPassword(mailed.code, user.PasswordHash))

	// Single use.
	res = env.svc.ResetPassword(code)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestResetPassword_ExpiredTokenIsPurged(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)
	require.Equal(t, http.StatusOK, env.svc.VerifyEmail(env.verificationCode(t, "alice")).Status)
	require.Equal(t, http.StatusOK, env.svc.SendPasswordResetEmail("alice").Status)
	code := env.mailer.last().code
	oldHash := env.users.users["alice"].PasswordHash

	env.advance(7 * time.Hour)
	res := env.svc.ResetPassword(code)
	assert.Equal(t, http.StatusGone, res.Status)

	_, err := env.tokens.GetByValue(code)
	assert.Error(t, err)
	assert.Equal(t, oldHash, env.users.users["alice"].PasswordHash)
}

func TestChangeProfilePicture(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", true)
	env.articles.add(domain.ArticleTablePublished, "a1", "alice", testDefaultAvatar)
	env.articles.add(domain.ArticleTableDrafts, "d1", "alice", testDefaultAvatar)
	env.articles.add(domain.ArticleTablePublished, "b1", "bob", "https://cdn.test/other.png")

	res := env.svc.ChangeProfilePicture(context.Background(), "alice", []byte("image-bytes"))
	require.Equal(t, http.StatusOK, res.Status)
	assert.NotEmpty(t, res.Payload["access_token"])

	pictureURL := res.Payload["profile_picture"].(string)
	assert.Contains(t, pictureURL, "/avatars/")

	// Rendered at the fixed avatar size.
	require.Len(t, env.store.stored, 1)
	for _, size := range env.store.stored {
		assert.Equal(t, [2]int{350, 350}, size)
	}
	// The default picture is never deleted from the object store.
	assert.Empty(t, env.store.removed)

	// Both tables relinked, other authors untouched.
	assert.Equal(t, pictureURL, env.articles.pictures[domain.ArticleTablePublished]["a1"])
	assert.Equal(t, pictureURL, env.articles.pictures[domain.ArticleTableDrafts]["d1"])
	assert.Equal(t, "https://cdn.test/other.png", env.articles.pictures[domain.ArticleTablePublished]["b1"])

	user, err := env.users.FindUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, pictureURL, user.ProfilePicture)
	assert.Equal(t, env.now.Unix(), user.ProfilePictureChangedAt)
}

func TestChangeProfilePicture_Cooldown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	require.Equal(t, http.StatusOK,
		env.svc.ChangeProfilePicture(context.Background(), "alice", []byte("one")).Status)

	env.advance(3 * 24 * time.Hour)
	res := env.svc.ChangeProfilePicture(context.Background(), "alice", []byte("two"))
	assert.Equal(t, http.StatusForbidden, res.Status)

	env.advance(5 * 24 * time.Hour)
	res = env.svc.ChangeProfilePicture(context.Background(), "alice", []byte("two"))
	require.Equal(t, http.StatusOK, res.Status)

	// The first upload was deleted once it was replaced.
	assert.Len(t, env.store.removed, 1)
}

func TestChangeProfilePicture_StoreFailureConsumesCooldown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)
	env.store.storeErr = assert.AnError

	res := env.svc.ChangeProfilePicture(context.Background(), "alice", []byte("one"))
	assert.Equal(t, http.StatusInternalServerError, res.Status)

	// The cooldown stamp is written before any object-store work and is
	// not rolled back on failure.
	user, err := env.users.FindUserByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, env.now.Unix(), user.ProfilePictureChangedAt)
	assert.Equal(t, testDefaultAvatar, user.ProfilePicture)

	res = env.svc.ChangeProfilePicture(context.Background(), "alice", []byte("one"))
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestDeleteAccount(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", true)
	env.articles.add(domain.ArticleTablePublished, "a1", "alice", testDefaultAvatar)
	env.articles.add(domain.ArticleTableDrafts, "d1", "alice", testDefaultAvatar)
	require.Equal(t, http.StatusOK,
		env.svc.ChangeProfilePicture(context.Background(), "alice", []byte("pic")).Status)

	res := env.svc.DeleteAccount(context.Background(), "alice", "wrong")
	assert.Equal(t, http.StatusForbidden, res.Status)
	_, err := env.users.FindUserByUsername("alice")
	assert.NoError(t, err)

	res = env.svc.DeleteAccount(context.Background(), "alice", "password1")
	require.Equal(t, http.StatusOK, res.Status)

	_, err = env.users.FindUserByUsername("alice")
	assert.Error(t, err)
	assert.Empty(t, env.tokens.forUser("alice", domain.TokenEmailVerification))
	assert.Empty(t, env.articles.authors[domain.ArticleTablePublished])
	assert.Empty(t, env.articles.authors[domain.ArticleTableDrafts])
	// The uploaded picture was removed from the object store.
	assert.Len(t, env.store.removed, 1)
}

func TestDeleteAccount_DefaultAvatarSkipsObjectStore(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	res := env.svc.DeleteAccount(context.Background(), "alice", "password1")
	require.Equal(t, http.StatusOK, res.Status)
	assert.Empty(t, env.store.removed)
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.register(t, "alice", "password1", "alice@x.com", false)

	login := env.svc.Authenticate("alice", "password1")
	require.Equal(t, http.StatusOK, login.Status)
	refreshToken := login.Payload["refresh_token"].(string)

	res := env.svc.Refresh(refreshToken)
	require.Equal(t, http.StatusOK, res.Status)
	assert.NotEmpty(t, res.Payload["access_token"])

	// An access token is not a refresh token.
	accessToken := login.Payload["access_token"].(string)
	res = env.svc.Refresh(accessToken)
	assert.Equal(t, http.StatusForbidden, res.Status)

	res = env.svc.Refresh("garbage")
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestAvatarIDFromURL(t *testing.T) {
	t.Parallel()

	id, ok := avatarIDFromURL("https://cdn.test/inkpress/avatars/abc-123.jpg")
	assert.True(t, ok)
	assert.Equal(t, "abc-123", id)

	id, ok = avatarIDFromURL("https://cdn.test/inkpress/avatars/no-extension")
	assert.True(t, ok)
	assert.Equal(t, "no-extension", id)

	_, ok = avatarIDFromURL(testDefaultAvatar)
	assert.False(t, ok)

	_, ok = avatarIDFromURL("")
	assert.False(t, ok)
}
