package handlers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/SundayYogurt/inkpress-account-svc/internal/api/rest/middleware"
	"github.com/SundayYogurt/inkpress-account-svc/internal/dto"
	"github.com/SundayYogurt/inkpress-account-svc/internal/helper"
	"github.com/SundayYogurt/inkpress-account-svc/internal/services"
	"github.com/SundayYogurt/inkpress-account-svc/pkg/utils"
)

const maxPictureSize = 5 * 1024 * 1024 // 5MB

type AccountHandler struct {
	svc  services.AccountService
	auth helper.Auth
}

func NewAccountHandler(svc services.AccountService, auth helper.Auth) *AccountHandler {
	return &AccountHandler{svc: svc, auth: auth}
}

func (h *AccountHandler) SetupRoutes(app *fiber.App) {
	account := app.Group("/api/account")

	account.Post("/register", h.Register)
	account.Post("/login", h.Login)
	account.Post("/refresh", h.Refresh)
	account.Post("/verify-email", h.VerifyEmail)
	account.Post("/email-change/confirm", h.VerifyEmailChange)
	account.Post("/password-reset", h.SendPasswordReset)
	account.Post("/password-reset/confirm", h.ResetPassword)

	account.Get("/me", middleware.RequireAuth(h.auth, false), h.Me)
	account.Post("/password", middleware.RequireAuth(h.auth, false), h.ChangePassword)
	account.Post("/email-change", middleware.RequireAuth(h.auth, false), h.RequestEmailChange)
	account.Put("/picture", middleware.RequireAuth(h.auth, true), h.ChangePicture)
	account.Delete("/", middleware.RequireAuth(h.auth, false), h.DeleteAccount)
}

// respond maps a service result onto the shared envelope.
func respond(ctx *fiber.Ctx, res *services.Result) error {
	payload := fiber.Map{}
	for k, v := range res.Payload {
		payload[k] = v
	}
	return utils.Respond(ctx, res.Status, res.Message, payload)
}

// setTokenCookie refreshes the transport cookie whenever a new access
// token is issued.
func setTokenCookie(ctx *fiber.Ctx, res *services.Result) {
	if !res.OK() {
		return
	}
	token, ok := res.Payload["access_token"].(string)
	if !ok || token == "" {
		return
	}
	ctx.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Expires:  time.Now().Add(helper.AccessTokenTTL),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
}

func (h *AccountHandler) Register(ctx *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "please provide valid inputs")
	}
	return respond(ctx, h.svc.Register(req))
}

func (h *AccountHandler) Login(ctx *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := ctx.BodyParser(&req); err != nil || req.Username == "" || req.Password == "" {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "username and password are required")
	}

	res := h.svc.Authenticate(req.Username, req.Password)
	setTokenCookie(ctx, res)
	return respond(ctx, res)
}

func (h *AccountHandler) Refresh(ctx *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := ctx.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "refresh token is required")
	}

	res := h.svc.Refresh(req.RefreshToken)
	setTokenCookie(ctx, res)
	return respond(ctx, res)
}

func (h *AccountHandler) Me(ctx *fiber.Ctx) error {
	claims := middleware.ClaimsFromContext(ctx)
	return respond(ctx, h.svc.Profile(claims.Username))
}

func (h *AccountHandler) VerifyEmail(ctx *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := ctx.BodyParser(&req); err != nil || req.Token == "" {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "token is required")
	}
	return respond(ctx, h.svc.VerifyEmail(req.Token))
}

func (h *AccountHandler) ChangePassword(ctx *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := ctx.BodyParser(&req); err != nil || req.OldPassword == "" || req.NewPassword == "" {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "old and new password are required")
	}

	claims := middleware.ClaimsFromContext(ctx)
	return respond(ctx, h.svc.ChangePassword(claims.Username, req))
}

func (h *AccountHandler) RequestEmailChange(ctx *fiber.Ctx) error {
	var req dto.EmailChangeRequest
	if err := ctx.BodyParser(&req); err != nil || req.Password == "" || req.NewEmail == "" {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "password and new email are required")
	}

	claims := middleware.ClaimsFromContext(ctx)
	res := h.svc.RequestEmailChange(claims.Username, req)
	setTokenCookie(ctx, res)
	return respond(ctx, res)
}

func (h *AccountHandler) VerifyEmailChange(ctx *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := ctx.BodyParser(&req); err != nil || req.Token == "" {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "token is required")
	}
	return respond(ctx, h.svc.VerifyEmailChange(req.Token))
}

func (h *AccountHandler) SendPasswordReset(ctx *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := ctx.BodyParser(&req); err != nil || req.Username == "" {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "username is required")
	}
	return respond(ctx, h.svc.SendPasswordResetEmail(req.Username))
}

func (h *AccountHandler) ResetPassword(ctx *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := ctx.BodyParser(&req); err != nil || req.Token == "" {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "token is required")
	}
	return respond(ctx, h.svc.ResetPassword(req.Token))
}

func (h *AccountHandler) ChangePicture(ctx *fiber.Ctx) error {
	file, err := ctx.FormFile("file")
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "file is required")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	allowed := map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	if !allowed[ext] {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "only jpg/jpeg/png/webp allowed")
	}
	if file.Size > maxPictureSize {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "file too large (max 5MB)")
	}

	f, err := file.Open()
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusInternalServerError, "cannot open uploaded file")
	}
	defer f.Close()

	data, err := utils.ReadAllLimit(f, maxPictureSize)
	if err != nil {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "file too large (max 5MB)")
	}

	claims := middleware.ClaimsFromContext(ctx)
	res := h.svc.ChangeProfilePicture(ctx.UserContext(), claims.Username, data)
	setTokenCookie(ctx, res)
	return respond(ctx, res)
}

func (h *AccountHandler) DeleteAccount(ctx *fiber.Ctx) error {
	var req dto.DeleteAccountRequest
	if err := ctx.BodyParser(&req); err != nil || req.Password == "" {
		return utils.ResponseError(ctx, fiber.StatusBadRequest, "password is required")
	}

	claims := middleware.ClaimsFromContext(ctx)
	res := h.svc.DeleteAccount(ctx.UserContext(), claims.Username, req.Password)
	if res.OK() {
		ctx.ClearCookie(middleware.TokenCookie)
	}
	return respond(ctx, res)
}
