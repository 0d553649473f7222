package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	authmw "github.com/Skotchmaster/auth_service/internal/middleware/auth"
	"github.com/Skotchmaster/auth_service/internal/service"
)

type AuthHTTP struct {
	Svc        *service.AuthService
	Cookies    CookieFactory
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type registerRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type updateMeRequest struct {
	Username       string  `json:"username"`
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	AdditionalInfo *string `json:"additional_info"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookies(c, res)
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: res.AccessToken, TokenType: "bearer"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, authmw.CurrentUser(c))
}

func (h *AuthHTTP) UpdateMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_update_me")

	var req updateMeRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_me_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.UpdateMe(ctx, authmw.CurrentUser(c), service.UpdateInput{
		Username:       req.Username,
		Email:          req.Email,
		Password:       req.Password,
		AdditionalInfo: req.AdditionalInfo,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var token string
	if cookie, err := c.Cookie(authmw.RefreshCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh token is missing")
	}

	res, err := h.Svc.Refresh(ctx, token)
	if err != nil {
		if _, ok := service.AuthKind(err); ok {
			c.SetCookie(h.Cookies.Delete(authmw.AccessCookieName))
			c.SetCookie(h.Cookies.Delete(authmw.RefreshCookieName))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired refresh token")
		}
		return err
	}

	h.setSessionCookies(c, res)
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: res.AccessToken, TokenType: "bearer"})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	if cookie, err := c.Cookie(authmw.RefreshCookieName); err == nil {
		if err := h.Svc.Logout(ctx, cookie.Value); err != nil {
			c.SetCookie(h.Cookies.Delete(authmw.RefreshCookieName))
			c.SetCookie(h.Cookies.Delete(authmw.AccessCookieName))
			l.Error("logout_failed", "status", 500, "reason", "cannot revoke refresh token", "error", err)
			return err
		}
	}

	c.SetCookie(h.Cookies.Delete(authmw.RefreshCookieName))
	c.SetCookie(h.Cookies.Delete(authmw.AccessCookieName))

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// GetTokens echoes the session cookies back to the caller.
func (h *AuthHTTP) GetTokens(c echo.Context) error {
	resp := map[string]*string{"access_token": nil, "refresh_token": nil}
	for _, name := range []string{authmw.AccessCookieName, authmw.RefreshCookieName} {
		if cookie, err := c.Cookie(name); err == nil {
			v := cookie.Value
			resp[name] = &v
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHTTP) setSessionCookies(c echo.Context, res *service.TokenPair) {
	c.SetCookie(h.Cookies.Create(authmw.AccessCookieName, res.AccessToken, h.AccessTTL))
	c.SetCookie(h.Cookies.Create(authmw.RefreshCookieName, res.RefreshToken, h.RefreshTTL))
}
