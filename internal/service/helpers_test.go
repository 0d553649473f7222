package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/auth_service/internal/db/dbtest"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/models"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

var testSecret = []byte("test-secret")

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	db       *gorm.DB
	repo     *repo.GormRepo
	clock    *clock
	issuer   *tokens.Issuer
	events   *events.Recorder
	auth     *AuthService
	sessions *SessionValidator
	perms    *PermissionEvaluator
	roles    *RoleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb := dbtest.Open(t)
	r := repo.New(gdb)
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	base, err := tokens.NewIssuer(testSecret, "HS256", 15*time.Minute)
	require.NoError(t, err)
	issuer := base.WithClock(clk.Now)
	rec := &events.Recorder{}

	return &fixture{
		db:     gdb,
		repo:   r,
		clock:  clk,
		issuer: issuer,
		events: rec,
		auth: &AuthService{
			Users:      r,
			Sessions:   r,
			Tokens:     issuer,
			RefreshTTL: 24 * time.Hour,
			Events:     rec,
			Now:        clk.Now,
		},
		sessions: &SessionValidator{Users: r, Tokens: issuer},
		perms:    &PermissionEvaluator{Roles: r},
		roles:    &RoleService{Roles: r, Events: rec, Now: clk.Now},
	}
}

func (f *fixture) register(t *testing.T, username, password string) *models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@x.com",
		Password: password,
	})
	require.NoError(t, err)
	return u
}
