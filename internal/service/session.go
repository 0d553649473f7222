package service

import (
	"context"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/metrics"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

type SessionValidator struct {
	Users  UserStore
	Tokens *tokens.Issuer
}

// ResolveCurrentUser verifies the access token and loads its subject.
// Every failure is an *AuthError; Kind tells the causes apart.
func (v *SessionValidator) ResolveCurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "session")

	if accessToken == "" {
		return nil, v.fail(AuthMissing, nil)
	}

	claims, err := v.Tokens.Parse(accessToken)
	if err != nil {
		if tokens.IsExpired(err) {
			l.Info("access_token_expired")
			return nil, v.fail(AuthExpired, err)
		}
		l.Warn("access_token_invalid", "error", err)
		return nil, v.fail(AuthInvalid, err)
	}

	if claims.Subject == "" {
		l.Warn("access_token_without_subject")
		return nil, v.fail(AuthCredentialsInvalid, nil)
	}

	user, err := v.Users.GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		if repo.IsNotFound(err) {
			l.Warn("access_token_unknown_subject", "subject", claims.Subject)
			return nil, v.fail(AuthUnknownSubject, err)
		}
		l.Error("session_lookup_failed", "error", err)
		return nil, err
	}

	if !user.IsActive {
		l.Warn("access_token_inactive_user", "user_id", user.ID)
		return nil, v.fail(AuthInactive, nil)
	}
	return user, nil
}

func (v *SessionValidator) fail(kind AuthErrorKind, err error) error {
	metrics.AuthFailuresTotal.WithLabelValues(string(kind)).Inc()
	return authErr(kind, err)
}
