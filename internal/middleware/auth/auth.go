package authmw

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/models"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"

	userKey = "current_user"
)

type Authenticator interface {
	ResolveCurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, user *models.User, permission string) error
}

// RequireUser resolves the caller from the bearer header or, failing that,
// the access_token cookie. Errors go to the echo error handler unchanged.
func RequireUser(v Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			user, err := v.ResolveCurrentUser(ctx, AccessToken(c))
			if err != nil {
				return err
			}

			c.SetRequest(c.Request().WithContext(logging.With(ctx, "user_id", user.ID)))
			c.Set(userKey, user)
			return next(c)
		}
	}
}

// RequirePermission must run after RequireUser.
func RequirePermission(a Authorizer, permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return echo.ErrUnauthorized
			}
			if err := a.Authorize(c.Request().Context(), user, permission); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}

func AccessToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(AccessCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
