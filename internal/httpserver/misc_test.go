package httpserver

import (
	"net/http"
	"testing"

	authmw "github.com/Skotchmaster/auth_service/internal/middleware/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_RateLimited(t *testing.T) {
	limits := defaultLimits()
	limits.Login = 2
	s := newTestServer(t, limits)
	s.register(t, "alice", "pw123")

	assert.Equal(t, http.StatusUnauthorized, s.login("alice", "wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, s.login("alice", "wrong").Code)

	rec := s.login("alice", "pw123")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLogin_RateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	limits := defaultLimits()
	limits.Login = 2
	s := newTestServer(t, limits)
	s.register(t, "alice", "pw123")

	assert.Equal(t, http.StatusUnauthorized, s.login("alice", "wrong", fromPeer("203.0.113.7:4000", "1.1.1.1")).Code)
	assert.Equal(t, http.StatusUnauthorized, s.login("alice", "wrong", fromPeer("203.0.113.7:4001", "2.2.2.2")).Code)

	rec := s.login("alice", "pw123", fromPeer("203.0.113.7:4002", "3.3.3.3"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.ElementsMatch(t, []string{"rl:registration:192.0.2.1", "rl:login:203.0.113.7"}, s.mr.Keys())
}

func TestLogin_RateLimitUsesForwardedForFromTrustedProxy(t *testing.T) {
	limits := defaultLimits()
	limits.Login = 1
	s := newTestServer(t, limits, func(d *Deps) { d.TrustedProxies = []string{"10.1.0.0/16"} })
	s.register(t, "alice", "pw123")

	assert.Equal(t, http.StatusOK, s.login("alice", "pw123", fromPeer("10.1.2.3:5000", "198.51.100.1")).Code)
	assert.Equal(t, http.StatusOK, s.login("alice", "pw123", fromPeer("10.1.2.3:5000", "198.51.100.2")).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.login("alice", "pw123", fromPeer("10.1.2.3:5000", "198.51.100.2")).Code)

	// an untrusted peer cannot pick its bucket
	assert.Equal(t, http.StatusOK, s.login("alice", "pw123", fromPeer("203.0.113.9:5000", "198.51.100.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, s.login("alice", "pw123", fromPeer("203.0.113.9:5000", "198.51.100.3")).Code)
}

func TestRateLimit_FailsOpenWithoutRedis(t *testing.T) {
	limits := defaultLimits()
	limits.Login = 1
	s := newTestServer(t, limits)
	s.register(t, "alice", "pw123")
	s.mr.Close()

	assert.Equal(t, http.StatusOK, s.login("alice", "pw123").Code)
	assert.Equal(t, http.StatusOK, s.login("alice", "pw123").Code)
}

func TestTranslate(t *testing.T) {
	s := newTestServer(t, defaultLimits())

	rec := s.do(http.MethodPost, "/translate/", map[string]any{"text": "안녕"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"translations":["ru:안녕"]}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/translate/", map[string]any{"text": []string{"a", "b"}, "target_language_code": "en"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"translations":["ru:a","ru:b"]}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/translate/", map[string]any{"text": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/translate/", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslate_VendorDown(t *testing.T) {
	s := newTestServer(t, defaultLimits())
	s.vendor.Close()

	rec := s.do(http.MethodPost, "/translate/", map[string]any{"text": "x"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealthAndStatus(t *testing.T) {
	s := newTestServer(t, defaultLimits())

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/health/ready", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/db-status", nil).Code)

	rec := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	s.mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodGet, "/health/ready", nil).Code)
}

func TestCSRF_CookieSessionNeedsToken(t *testing.T) {
	s := newTestServer(t, defaultLimits(), func(d *Deps) { d.CSRF = true })
	s.register(t, "alice", "pw123")
	login := s.login("alice", "pw123")
	require.Equal(t, http.StatusOK, login.Code)
	refresh := cookieByName(login, authmw.RefreshCookieName)

	rec := s.do(http.MethodPost, "/refresh/", nil, withCookie(refresh))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	csrfCookie := &http.Cookie{Name: "XSRF-TOKEN", Value: "tok"}
	rec = s.do(http.MethodPost, "/refresh/", nil, withCookie(refresh), withCookie(csrfCookie), func(r *http.Request) {
		r.Header.Set("X-CSRF-Token", "tok")
		r.Header.Set("Origin", "http://example.com")
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
