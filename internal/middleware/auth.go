package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripmate/internal/model"
	"github.com/iliyamo/tripmate/internal/repository"
	"github.com/iliyamo/tripmate/internal/service"
	"github.com/iliyamo/tripmate/internal/token"
)

// AccessTokenCookie is the cookie that carries the access token.
const AccessTokenCookie = "accessToken"

// TokenVerifier checks a raw token of the given kind.
type TokenVerifier interface {
	Verify(raw string, kind token.Kind) (*token.Claims, error)
}

// UserLoader loads a user without the password hash or refresh token.
type UserLoader interface {
	FindPublicByID(ctx context.Context, id string) (model.User, error)
}

// Authenticate guards protected routes.  It reads the access token from the
// accessToken cookie or the Authorization header ("Bearer " prefix
// optional), verifies it, loads the user it names and stores the sanitized
// user in the context, where CurrentUser finds it.  Nothing is written.
func Authenticate(tokens TokenVerifier, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := accessToken(c)
			if raw == "" {
				return service.Unauthorized("Unauthorized request", nil)
			}

			claims, err := tokens.Verify(raw, token.Access)
			switch {
			case errors.Is(err, token.ErrExpiredToken):
				return service.Unauthorized("Access token expired", err)
			case err != nil:
				return service.Unauthorized("Invalid access token", err)
			}

			u, err := users.FindPublicByID(c.Request().Context(), claims.UserID())
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return service.Unauthorized("Invalid access token", err)
			case err != nil:
				return service.Internal("Something went wrong while authenticating", err)
			}

			c.Set(userKey, u.Public())
			return next(c)
		}
	}
}

// accessToken prefers the cookie over the header.
func accessToken(c echo.Context) string {
	if ck, err := c.Cookie(AccessTokenCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if len(h) >= 7 && strings.EqualFold(h[:7], "bearer ") {
		h = strings.TrimSpace(h[7:])
	}
	return h
}
