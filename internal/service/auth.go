package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/hash"
	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/metrics"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

const maxUsernameLen = 64

type AuthService struct {
	Users      UserStore
	Sessions   SessionStore
	Tokens     *tokens.Issuer
	RefreshTTL time.Duration
	Events     events.Publisher
	Now        func() time.Time
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	User         *models.User
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type UpdateInput struct {
	Username       string
	Email          string
	Password       string
	AdditionalInfo *string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateProfile(in.Username, in.Email, in.Password); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: pwHash,
		RoleID:       models.DefaultRoleID,
		RegisteredAt: s.now(),
		IsActive:     true,
		IsSuperuser:  false,
		IsVerified:   false,
	}

	if err := s.Users.CreateUser(ctx, &user); err != nil {
		if repo.IsDuplicateUser(err) {
			l.Warn("register_error", "status", 400, "reason", err.Error())
			return nil, fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		l.Error("register_error", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, events.Event{Type: events.UserRegistered, UserID: user.ID, Username: user.Username})
	l.Info("user_registered", "user_id", user.ID)
	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	if username == "" || password == "" {
		return nil, validation("username and password are required")
	}

	user, err := s.Users.GetUserByUsername(ctx, username)
	if err != nil {
		if repo.IsNotFound(err) {
			l.Warn("login_failed", "status", 401, "reason", "unknown username")
			metrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "password mismatch")
		metrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		l.Warn("login_failed", "status", 401, "reason", "inactive user")
		metrics.AuthFailuresTotal.WithLabelValues(string(AuthInactive)).Inc()
		return nil, authErr(AuthInactive, nil)
	}

	pair, err := s.issuePair(ctx, user, "")
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, events.Event{Type: events.UserLoggedIn, UserID: user.ID, Username: user.Username})
	l.Info("login_successful", "user_id", user.ID)
	return pair, nil
}

// IssueRefreshToken mints a fresh opaque token and makes it the user's only session.
func (s *AuthService) IssueRefreshToken(ctx context.Context, user *models.User) (string, time.Time, error) {
	token := tokens.NewRefreshToken()
	exp := s.now().Add(s.RefreshTTL)
	if _, err := s.Sessions.ReplaceSession(ctx, user.ID, token, exp); err != nil {
		return "", time.Time{}, fmt.Errorf("store refresh token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return token, exp, nil
}

// Refresh validates the presented refresh token and rotates it. The lookup
// deletes an expired row before reporting it; the rotation itself is one
// transaction that fails if another request already consumed the token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		return nil, validation("refresh token is missing")
	}

	record, err := s.Sessions.VerifyRefreshToken(ctx, refreshToken, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrRefreshNotFound):
			return nil, s.reject(ctx, AuthRefreshInvalid, err)
		case errors.Is(err, repo.ErrRefreshExpired):
			return nil, s.reject(ctx, AuthRefreshExpired, err)
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}

	user, err := s.Users.GetUserByID(ctx, record.UserID)
	if err != nil {
		if repo.IsNotFound(err) {
			l.Warn("refresh_failed", "status", 404, "reason", "user no longer exists", "user_id", record.UserID)
			if delErr := s.Sessions.DeleteRefreshToken(ctx, refreshToken); delErr != nil {
				l.Error("refresh_cleanup_failed", "error", delErr)
			}
			return nil, fmt.Errorf("%w: user", ErrNotFound)
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}
	if !user.IsActive {
		if delErr := s.Sessions.DeleteRefreshToken(ctx, refreshToken); delErr != nil {
			l.Error("refresh_cleanup_failed", "error", delErr)
		}
		return nil, s.reject(ctx, AuthInactive, nil)
	}

	pair, err := s.issuePair(ctx, user, refreshToken)
	if err != nil {
		if errors.Is(err, repo.ErrRefreshNotFound) {
			return nil, s.reject(ctx, AuthRefreshInvalid, err)
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}

	l.Info("refresh_rotated", "user_id", user.ID)
	return pair, nil
}

// Logout deletes the presented refresh token. Access tokens stay valid until
// they expire.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.Sessions.DeleteRefreshToken(ctx, refreshToken)
}

func (s *AuthService) UpdateMe(ctx context.Context, user *models.User, in UpdateInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.update_me", "user_id", user.ID)

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateProfile(in.Username, in.Email, in.Password); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	updated := *user
	updated.Username = in.Username
	updated.Email = in.Email
	updated.PasswordHash = pwHash
	updated.AdditionalInfo = in.AdditionalInfo

	if err := s.Users.UpdateUser(ctx, &updated); err != nil {
		if repo.IsDuplicateUser(err) {
			l.Warn("update_me_failed", "status", 400, "reason", err.Error())
			return nil, fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		l.Error("update_me_failed", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, events.Event{Type: events.UserUpdated, UserID: updated.ID, Username: updated.Username})
	return &updated, nil
}

// SweepExpiredSessions removes every refresh token past its expiry.
func (s *AuthService) SweepExpiredSessions(ctx context.Context) (int64, error) {
	return s.Sessions.SweepExpired(ctx, s.now())
}

func (s *AuthService) issuePair(ctx context.Context, user *models.User, previous string) (*TokenPair, error) {
	id := user.ID
	access, accessExp, err := s.Tokens.IssueAccessToken(user.Username, &id)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("access").Inc()

	var (
		refresh    string
		refreshExp time.Time
	)
	if previous == "" {
		refresh, refreshExp, err = s.IssueRefreshToken(ctx, user)
		if err != nil {
			return nil, err
		}
	} else {
		refresh = tokens.NewRefreshToken()
		refreshExp = s.now().Add(s.RefreshTTL)
		if _, err := s.Sessions.RotateSession(ctx, user.ID, previous, refresh, refreshExp); err != nil {
			return nil, err
		}
		metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		User:         user,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, ev events.Event) {
	if s.Events == nil {
		return
	}
	ev.At = s.now()

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Events.Publish(pubCtx, fmt.Sprint(ev.UserID), ev); err != nil {
		logging.FromContext(ctx).Error("event_publish_failed", "type", ev.Type, "error", err)
	}
}

func (s *AuthService) reject(ctx context.Context, kind AuthErrorKind, err error) error {
	logging.FromContext(ctx).Warn("refresh_rejected", "status", 401, "reason", string(kind))
	metrics.AuthFailuresTotal.WithLabelValues(string(kind)).Inc()
	return authErr(kind, err)
}

func validateProfile(username, email, password string) error {
	if username == "" {
		return validation("username is required")
	}
	if len(username) > maxUsernameLen {
		return validation("username is too long")
	}
	if password == "" {
		return validation("password is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validation("email is invalid")
	}
	return nil
}
