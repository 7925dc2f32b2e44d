package middleware

import (
	"errors"
	"strings"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/auth"
	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

// JWTAuthMiddleware checks for a valid access token and stores the caller's
// identity in the context. Browsers cannot set headers on a websocket
// handshake, so the token may also arrive as the access_token query value.
func JWTAuthMiddleware(tokens *auth.Tokens) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.QueryParam("access_token")
			if authHeader := c.Request().Header.Get("Authorization"); authHeader != "" {
				// Expecting "Bearer <token>"
				parts := strings.Split(authHeader, " ")
				if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
					return apperrors.Unauthenticated("invalid authorization header format")
				}
				raw = parts[1]
			}
			if raw == "" {
				return apperrors.Unauthenticated("missing authorization header")
			}

			ident, err := tokens.Parse(c.Request().Context(), raw)
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				return apperrors.Unauthenticated("token has expired")
			case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrSessionGone):
				return apperrors.Unauthenticated("invalid token")
			case err != nil:
				return apperrors.Transient(err)
			}

			c.Set(identityKey, ident)
			return next(c)
		}
	}
}

// RequireVerified rejects callers whose email address is not verified.
func RequireVerified() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident := Identity(c)
			if ident == nil {
				return apperrors.Unauthenticated("missing authorization header")
			}
			if !ident.EmailVerified {
				return apperrors.Authorization("your email address is not verified")
			}
			return next(c)
		}
	}
}

// Identity returns the caller set by JWTAuthMiddleware, or nil.
func Identity(c echo.Context) *auth.Identity {
	ident, _ := c.Get(identityKey).(*auth.Identity)
	return ident
}

// UserID returns the caller's user id, or 0 for anonymous requests.
func UserID(c echo.Context) uint {
	if ident := Identity(c); ident != nil {
		return ident.UserID
	}
	return 0
}
