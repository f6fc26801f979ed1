package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripmate/internal/model"
)

const userKey = "user"

// CurrentUser returns the user attached by Authenticate.
func CurrentUser(c echo.Context) (model.PublicUser, bool) {
	u, ok := c.Get(userKey).(model.PublicUser)
	return u, ok && u.ID != ""
}

// userID returns the authenticated user's id, or "guest".
func userID(c echo.Context) string {
	if u, ok := CurrentUser(c); ok {
		return u.ID
	}
	return "guest"
}
