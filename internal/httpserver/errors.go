package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/service"
)

// ErrorHandler turns domain errors into status codes with a {"message": ...}
// body. Unknown errors become a bare 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := statusFor(err)
	if code >= 500 {
		logging.FromContext(c.Request().Context()).Error("request_failed", "status", code, "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{"message": msg})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			return he.Code, m
		}
		return he.Code, http.StatusText(he.Code)
	}

	if _, ok := service.AuthKind(err); ok {
		return http.StatusUnauthorized, "could not validate credentials"
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrDuplicate):
		return http.StatusBadRequest, "resource already exists"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden, "not enough permissions"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "resource is in use"
	case errors.Is(err, service.ErrUpstreamUnavailable):
		return http.StatusBadGateway, "translation service unavailable"
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
