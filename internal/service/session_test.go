package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

func TestResolveCurrentUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice", "pw123")

	token, _, err := f.issuer.IssueAccessToken("alice", &alice.ID)
	require.NoError(t, err)

	u, err := f.sessions.ResolveCurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)
}

func TestResolveCurrentUser_Failures(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "pw123")

	foreign, err := tokens.NewIssuer([]byte("other-secret"), "HS256", time.Minute)
	require.NoError(t, err)
	foreignTok, _, err := foreign.IssueAccessToken("alice", nil)
	require.NoError(t, err)

	past := f.issuer.WithClock(func() time.Time { return f.clock.Now().Add(-time.Hour) })
	expiredTok, _, err := past.IssueAccessToken("alice", nil)
	require.NoError(t, err)

	noSubject, _, err := f.issuer.IssueAccessToken("", nil)
	require.NoError(t, err)

	ghost, _, err := f.issuer.IssueAccessToken("ghost", nil)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(f.clock.Now().Add(time.Minute)),
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		kind  AuthErrorKind
	}{
		{name: "missing", token: "", kind: AuthMissing},
		{name: "foreign secret", token: foreignTok, kind: AuthInvalid},
		{name: "expired", token: expiredTok, kind: AuthExpired},
		{name: "malformed", token: "not.a.jwt", kind: AuthInvalid},
		{name: "algorithm mismatch", token: hs512, kind: AuthInvalid},
		{name: "no subject", token: noSubject, kind: AuthCredentialsInvalid},
		{name: "unknown subject", token: ghost, kind: AuthUnknownSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sessions.ResolveCurrentUser(context.Background(), tt.token)
			kind, ok := AuthKind(err)
			require.True(t, ok, "expected AuthError, got %v", err)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestResolveCurrentUser_Inactive(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice", "pw123")
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", alice.ID).Update("is_active", false).Error)

	token, _, err := f.issuer.IssueAccessToken("alice", &alice.ID)
	require.NoError(t, err)

	_, err = f.sessions.ResolveCurrentUser(context.Background(), token)
	kind, ok := AuthKind(err)
	require.True(t, ok)
	assert.Equal(t, AuthInactive, kind)
}
