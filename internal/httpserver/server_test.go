package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/cache"
	"github.com/Skotchmaster/auth_service/internal/config"
	"github.com/Skotchmaster/auth_service/internal/db"
	"github.com/Skotchmaster/auth_service/internal/db/dbtest"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/logging"
	ratelimitmw "github.com/Skotchmaster/auth_service/internal/middleware/ratelimit"
	"github.com/Skotchmaster/auth_service/internal/ratelimit"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/internal/tokens"
	"github.com/Skotchmaster/auth_service/internal/translate"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 24 * time.Hour
)

type testServer struct {
	e      *echo.Echo
	db     *gorm.DB
	repo   *repo.GormRepo
	roles  *service.RoleService
	mr     *miniredis.Miniredis
	vendor *httptest.Server
}

func defaultLimits() config.RateLimits {
	return config.RateLimits{
		Window:     time.Minute,
		Default:    100,
		Login:      100,
		Register:   100,
		Refresh:    100,
		RolesWrite: 100,
		RolesRead:  100,
	}
}

func newTestServer(t *testing.T, limits config.RateLimits, opts ...func(*Deps)) *testServer {
	t.Helper()

	gdb := dbtest.Open(t)
	r := repo.New(gdb)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Texts []string `json:"texts"`
		}
		_ = json.NewDecoder(req.Body).Decode(&body)
		out := make([]map[string]string, len(body.Texts))
		for i, s := range body.Texts {
			out[i] = map[string]string{"text": "ru:" + s}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"translations": out})
	}))
	t.Cleanup(vendor.Close)

	issuer, err := tokens.NewIssuer([]byte("test-secret"), "HS256", accessTTL)
	require.NoError(t, err)

	authSvc := &service.AuthService{
		Users:      r,
		Sessions:   r,
		Tokens:     issuer,
		RefreshTTL: refreshTTL,
		Events:     events.Nop{},
	}
	roleSvc := &service.RoleService{Roles: r, Events: events.Nop{}}
	translateSvc := &service.TranslateService{
		Vendor: translate.NewClient(vendor.URL, "key", "folder"),
		Cache:  cache.New(rdb, "translate:", time.Hour),
	}

	deps := &Deps{
		Logger: logging.NewWithWriter(io.Discard, "error"),
		AuthHandler: &AuthHTTP{
			Svc:        authSvc,
			Cookies:    CookieFactory{Secure: true},
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		RolesHandler:     &RolesHTTP{Svc: roleSvc},
		TranslateHandler: &TranslateHTTP{Svc: translateSvc},
		HealthHandler: &HealthHTTP{
			DB:    PingFunc(func(ctx context.Context) error { return db.Ping(ctx, gdb) }),
			Cache: PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
		Sessions: &service.SessionValidator{Users: r, Tokens: issuer},
		Perms:    &service.PermissionEvaluator{Roles: r},
		Guard:    &ratelimitmw.Guard{Counter: ratelimit.New(rdb, "rl"), Window: limits.Window},
		Limits:   limits,
	}
	for _, o := range opts {
		o(deps)
	}
	e := New(deps)
	t.Cleanup(translateSvc.Wait)

	return &testServer{e: e, db: gdb, repo: r, roles: roleSvc, mr: mr, vendor: vendor}
}

type reqOpt func(*http.Request)

func withBearer(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+token) }
}

func fromPeer(addr string, forwardedFor string) reqOpt {
	return func(r *http.Request) {
		r.RemoteAddr = addr
		if forwardedFor != "" {
			r.Header.Set(echo.HeaderXForwardedFor, forwardedFor)
			r.Header.Set(echo.HeaderXRealIP, forwardedFor)
		}
	}
}

func withCookie(c *http.Cookie) reqOpt {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value}) }
}

func (s *testServer) do(method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = strings.NewReader(string(b))
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(username, password string, opts ...reqOpt) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login/", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username, password string) uint {
	t.Helper()
	rec := s.do(http.MethodPost, "/registration/", map[string]string{
		"username": username,
		"email":    username + "@x.com",
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var u struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	return u.ID
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func accessToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "bearer", body.TokenType)
	return body.AccessToken
}
