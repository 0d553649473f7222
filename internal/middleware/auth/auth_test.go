package authmw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/models"
)

var errDenied = errors.New("denied")

type fakeAuth struct {
	gotToken string
	user     *models.User
	err      error
}

func (f *fakeAuth) ResolveCurrentUser(_ context.Context, token string) (*models.User, error) {
	f.gotToken = token
	return f.user, f.err
}

type fakePerms struct{ allow map[string]bool }

func (f fakePerms) Authorize(_ context.Context, _ *models.User, perm string) error {
	if f.allow[perm] {
		return nil
	}
	return errDenied
}

func newCtx(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func ok(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestAccessToken_Sources(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: "cookie"})
	c, _ := newCtx(req)
	assert.Equal(t, "abc", AccessToken(c))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: "cookie"})
	c, _ = newCtx(req)
	assert.Equal(t, "cookie", AccessToken(c))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Basic Zm9vOmJhcg==")
	c, _ = newCtx(req)
	assert.Equal(t, "", AccessToken(c))
}

func TestRequireUser(t *testing.T) {
	user := &models.User{ID: 7, Username: "alice"}
	auth := &fakeAuth{user: user}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	c, rec := newCtx(req)

	require.NoError(t, RequireUser(auth)(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", auth.gotToken)
	assert.Same(t, user, CurrentUser(c))
}

func TestRequireUser_PropagatesError(t *testing.T) {
	auth := &fakeAuth{err: errDenied}
	c, _ := newCtx(httptest.NewRequest(http.MethodGet, "/", nil))

	err := RequireUser(auth)(ok)(c)
	assert.ErrorIs(t, err, errDenied)
	assert.Nil(t, CurrentUser(c))
}

func TestRequirePermission(t *testing.T) {
	perms := fakePerms{allow: map[string]bool{"manage_users": true}}
	user := &models.User{ID: 1}

	c, _ := newCtx(httptest.NewRequest(http.MethodGet, "/", nil))
	err := RequirePermission(perms, "manage_users")(ok)(c)
	assert.ErrorIs(t, err, echo.ErrUnauthorized)

	c, rec := newCtx(httptest.NewRequest(http.MethodGet, "/", nil))
	c.Set(userKey, user)
	require.NoError(t, RequirePermission(perms, "manage_users")(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, _ = newCtx(httptest.NewRequest(http.MethodGet, "/", nil))
	c.Set(userKey, user)
	assert.ErrorIs(t, RequirePermission(perms, "other")(ok)(c), errDenied)
}
