package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/tripmate/internal/service"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", service.Validation("Email and password are required"), http.StatusBadRequest, "Email and password are required"},
		{"conflict", service.Conflict("User with email or username already exists", errors.New("dup")), http.StatusConflict, "User with email or username already exists"},
		{"not found", service.NotFound("User does not exist", errors.New("no rows")), http.StatusNotFound, "User does not exist"},
		{"unauthorized", service.Unauthorized("Invalid refresh token", nil), http.StatusUnauthorized, "Invalid refresh token"},
		{"internal keeps public message", service.Internal("Something went wrong while logging out", errors.New("db down")), http.StatusInternalServerError, "Something went wrong while logging out"},
		{"unknown oops code", oops.Code("USER_QUERY_FAILED").Errorf("boom"), http.StatusInternalServerError, internalMessage},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, internalMessage},
		{"echo error", echo.NewHTTPError(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge, "Request Entity Too Large"},
		{"echo error with message", echo.NewHTTPError(http.StatusNotFound, "nope"), http.StatusNotFound, "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := statusOf(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestHTTPErrorHandler_WritesJSON(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(nil)(service.Unauthorized("Invalid user credentials", nil), c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid user credentials"}`, rec.Body.String())
}

func TestHTTPErrorHandler_HeadHasNoBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodHead, "/healthz", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(nil)(errors.New("boom"), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Body.String())
}
