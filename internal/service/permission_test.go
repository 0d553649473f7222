package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/metrics"
	"github.com/Skotchmaster/auth_service/internal/models"
)

func TestHasPermission_ExactMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	editor, err := f.roles.Create(ctx, RoleInput{Name: "editor", Permissions: []string{PermManageUsers}})
	require.NoError(t, err)
	bob := f.register(t, "bob", "pw")
	bob, err = f.roles.AssignRole(ctx, bob.ID, editor.ID)
	require.NoError(t, err)

	tests := []struct {
		perm string
		want bool
	}{
		{perm: "manage_users", want: true},
		{perm: "Manage_Users", want: false},
		{perm: "manage_*", want: false},
		{perm: "manage", want: false},
		{perm: "", want: false},
	}
	for _, tt := range tests {
		got, err := f.perms.HasPermission(ctx, bob, tt.perm)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.perm)
	}
}

func TestAuthorize_DeniedAfterRevoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	editor, err := f.roles.Create(ctx, RoleInput{Name: "editor", Permissions: []string{PermManageUsers}})
	require.NoError(t, err)
	bob := f.register(t, "bob", "pw")
	bob, err = f.roles.AssignRole(ctx, bob.ID, editor.ID)
	require.NoError(t, err)

	require.NoError(t, f.perms.Authorize(ctx, bob, PermManageUsers))

	_, err = f.roles.RemovePermission(ctx, editor.ID, PermManageUsers)
	require.NoError(t, err)

	assert.ErrorIs(t, f.perms.Authorize(ctx, bob, PermManageUsers), ErrPermissionDenied)
}

func TestHasPermission_MissingRoleIsIntegrityFault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := &models.User{ID: 42, Username: "orphan", RoleID: 999}
	before := testutil.ToFloat64(metrics.IntegrityFaultsTotal)

	_, err := f.perms.HasPermission(ctx, user, PermManageUsers)
	require.ErrorIs(t, err, ErrRoleNotFound)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.IntegrityFaultsTotal))

	assert.ErrorIs(t, f.perms.Authorize(ctx, user, PermManageUsers), ErrRoleNotFound)
}
