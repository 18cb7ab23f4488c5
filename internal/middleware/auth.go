package middleware // middleware provides shared request processing for handlers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/repository"
	"github.com/iliyamo/agroshop-api/internal/utils"
)

// Context keys set by Authorize for downstream middleware and handlers.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
	CtxJTI    = "jti"
)

// Authorize returns the Echo middleware guarding every protected route.  It
// is the single chokepoint: it validates the bearer token's signature and
// expiry, rejects refresh tokens presented as access tokens, checks that the
// token's session has not been revoked, and checks that the user still
// exists and is active.  Any violation fails closed with a 401 (403 for a
// deactivated account).
//
// The session and user lookups hit the store on each request; that is the
// price of immediate logout semantics on top of stateless tokens.
func Authorize(secret string, tokens *repository.TokenRepo, users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return apperr.InvalidToken("missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseToken(secret, raw)
			if err != nil {
				return apperr.InvalidToken("invalid or expired token")
			}
			if claims.IsRefresh {
				// Refresh tokens are only good at /api/auth/refresh.
				return apperr.InvalidToken("refresh token not accepted here")
			}

			if claims.JTI == "" {
				// Every token minted here carries a session id; one
				// without it was not minted here.
				return apperr.InvalidToken("invalid or expired token")
			}

			ctx := c.Request().Context()
			if _, err := tokens.Validate(ctx, claims.JTI); err != nil {
				switch err {
				case repository.ErrSessionNotFound:
					return apperr.SessionNotFound("session not found")
				case repository.ErrSessionExpired:
					return apperr.SessionExpired("session expired or revoked")
				default:
					return apperr.Database("authorization failed", err)
				}
			}

			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				if err == repository.ErrUserNotFound {
					return apperr.InvalidToken("unknown user")
				}
				return apperr.Database("authorization failed", err)
			}
			if !u.IsActive {
				return apperr.Blocked("user is blocked")
			}

			c.Set(CtxUserID, u.ID)
			c.Set(CtxRole, u.Role)
			c.Set(CtxJTI, claims.JTI)
			return next(c)
		}
	}
}

// RequireRole returns a middleware that enforces that the authenticated
// user has one of the given roles.  It assumes Authorize already stored the
// role in the context.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return apperr.Forbidden("admin access required")
			}
			return next(c)
		}
	}
}
