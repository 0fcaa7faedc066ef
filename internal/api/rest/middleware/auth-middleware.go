package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/SundayYogurt/inkpress-account-svc/internal/helper"
	"github.com/SundayYogurt/inkpress-account-svc/pkg/utils"
)

// TokenCookie is the transport cookie carrying the access token.
const TokenCookie = "token"

const claimsLocal = "claims"

// RequireAuth rejects requests without a valid access token: no cookie is
// 400, an expired token 401, a bad signature 403. With requireVerified the
// claims must also show a verified email.
func RequireAuth(auth helper.Auth, requireVerified bool) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := strings.TrimSpace(ctx.Cookies(TokenCookie))
		if tokenStr == "" {
			return utils.ResponseError(ctx, fiber.StatusBadRequest, "missing token cookie")
		}

		claims, err := auth.VerifyAccessToken(tokenStr)
		if err == helper.ErrTokenExpired {
			return utils.ResponseError(ctx, fiber.StatusUnauthorized, "session expired")
		}
		if err != nil {
			return utils.ResponseError(ctx, fiber.StatusForbidden, "invalid token")
		}

		if requireVerified && !claims.Verified {
			return utils.ResponseError(ctx, fiber.StatusForbidden, "email not verified")
		}

		ctx.Locals(claimsLocal, claims)
		return ctx.Next()
	}
}

// OptionalAuth attaches claims when a valid token is present and an empty
// identity otherwise; it never rejects.
func OptionalAuth(auth helper.Auth) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := strings.TrimSpace(ctx.Cookies(TokenCookie))
		if tokenStr != "" {
			if claims, err := auth.VerifyAccessToken(tokenStr); err == nil {
				ctx.Locals(claimsLocal, claims)
				return ctx.Next()
			}
		}
		ctx.Locals(claimsLocal, helper.Claims{})
		return ctx.Next()
	}
}

// ClaimsFromContext returns the identity attached by the gate; the zero
// value means anonymous.
func ClaimsFromContext(ctx *fiber.Ctx) helper.Claims {
	claims, ok := ctx.Locals(claimsLocal).(helper.Claims)
	if !ok {
		return helper.Claims{}
	}
	return claims
}
