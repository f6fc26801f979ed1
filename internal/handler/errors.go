package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/iliyamo/tripmate/internal/service"
)

const internalMessage = "Internal server error"

// HTTPErrorHandler is the single place where errors become responses.
// Service codes map to status codes, *echo.HTTPError keeps its own status
// and anything else is a 500.  The body is always {"error": message}.
// Only 5xx errors are logged.
func HTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := statusOf(err)
		if status >= http.StatusInternalServerError {
			logError(logger, c, err)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, echo.Map{"error": msg})
		}
		if werr != nil {
			logger.WarnContext(c.Request().Context(), "write error response", "error", werr)
		}
	}
}

func statusOf(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return he.Code, msg
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return http.StatusInternalServerError, internalMessage
	}
	switch oopsErr.Code() {
	case service.CodeValidation:
		return http.StatusBadRequest, oops.GetPublic(err, http.StatusText(http.StatusBadRequest))
	case service.CodeConflict:
		return http.StatusConflict, oops.GetPublic(err, http.StatusText(http.StatusConflict))
	case service.CodeNotFound:
		return http.StatusNotFound, oops.GetPublic(err, http.StatusText(http.StatusNotFound))
	case service.CodeUnauthorized:
		return http.StatusUnauthorized, oops.GetPublic(err, "Unauthorized request")
	default:
		return http.StatusInternalServerError, oops.GetPublic(err, internalMessage)
	}
}

func logError(logger *slog.Logger, c echo.Context, err error) {
	attrs := []any{
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err.Error(),
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if ctx := oopsErr.Context(); len(ctx) > 0 {
			attrs = append(attrs, "context", ctx)
		}
	}
	logger.ErrorContext(c.Request().Context(), "request failed", attrs...)
}
