package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripmate/internal/config"
	"github.com/iliyamo/tripmate/internal/middleware"
	"github.com/iliyamo/tripmate/internal/service"
	"github.com/iliyamo/tripmate/internal/token"
)

// RefreshTokenCookie is the cookie that carries the refresh token.
const RefreshTokenCookie = "refreshToken"

// requestTimeout bounds the store and token calls of one request.
const requestTimeout = 5 * time.Second

// AuthHandler serves the /api/v1/users endpoints.
type AuthHandler struct {
	Auth *service.AuthService
	HTTP config.HTTPConfig
}

func NewAuthHandler(auth *service.AuthService, httpCfg config.HTTPConfig) *AuthHandler {
	return &AuthHandler{Auth: auth, HTTP: httpCfg}
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

// Register creates an account.  Registering does not log the user in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return service.Validation("Invalid request body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User Created Successfully",
		"user":    u,
	})
}

// Login returns both tokens in the body and sets them as cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		return service.Validation("Invalid request body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	s, err := h.Auth.Login(ctx, req)
	if err != nil {
		return err
	}
	h.setTokenCookies(c, s.Tokens)
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "User logged in successfully",
		"user":         s.User,
		"accessToken":  s.Tokens.Access.Token,
		"refreshToken": s.Tokens.Refresh.Token,
	})
}

// RefreshToken rotates the session.  The refresh token is read from the
// refreshToken cookie, then from the JSON body.
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	presented := ""
	if ck, err := c.Cookie(RefreshTokenCookie); err == nil {
		presented = strings.TrimSpace(ck.Value)
	}
	if presented == "" {
		var req refreshReq
		// an absent or unreadable body just means no token
		_ = c.Bind(&req)
		presented = strings.TrimSpace(req.RefreshToken)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	s, err := h.Auth.Refresh(ctx, presented)
	if err != nil {
		return err
	}
	h.setTokenCookies(c, s.Tokens)
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "Access token refreshed",
		"accessToken":  s.Tokens.Access.Token,
		"refreshToken": s.Tokens.Refresh.Token,
	})
}

// Logout clears the stored refresh token of the authenticated user and
// both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Unauthorized("Unauthorized request", nil)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, u.ID); err != nil {
		return err
	}
	h.clearTokenCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "User logged out"})
}

// ChangePassword replaces the authenticated user's password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Unauthorized("Unauthorized request", nil)
	}
	var req service.ChangePasswordInput
	if err := c.Bind(&req); err != nil {
		return service.Validation("Invalid request body")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Auth.ChangePassword(ctx, u.ID, req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Password changed successfully"})
}

// CurrentUser returns the authenticated user.
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return service.Unauthorized("Unauthorized request", nil)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Current user fetched successfully",
		"user":    u,
	})
}

func (h *AuthHandler) setTokenCookies(c echo.Context, pair token.Pair) {
	c.SetCookie(h.cookie(middleware.AccessTokenCookie, pair.Access.Token, pair.Access.Exp))
	c.SetCookie(h.cookie(RefreshTokenCookie, pair.Refresh.Token, pair.Refresh.Exp))
}

func (h *AuthHandler) clearTokenCookies(c echo.Context) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		ck := h.cookie(name, "", time.Unix(0, 0))
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}

func (h *AuthHandler) cookie(name, value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.HTTP.CookieSecure,
	}
}

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}
