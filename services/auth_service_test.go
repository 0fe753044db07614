package services

import (
	"context"
	"strings"
	"testing"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdminAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.auth.EnsureAdmin(ctx, "arbiter", "arbiter@example.com", "s3cret-pass"))
	// second call is a no-op while an admin exists
	require.NoError(t, f.auth.EnsureAdmin(ctx, "other", "other@example.com", "another-pass"))
	n, err := f.adminRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	id, err := f.auth.LoginAdmin(ctx, models.Credentials{Username: "arbiter", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, id.Role)
	assert.Equal(t, "arbiter", id.Name)

	_, err = f.auth.LoginAdmin(ctx, models.Credentials{Username: "arbiter", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)

	_, err = f.auth.LoginAdmin(ctx, models.Credentials{Username: "nobody", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)
}

func TestEnsureAdminRejectsShortPassword(t *testing.T) {
	f := newFixture(t)
	err := f.auth.EnsureAdmin(context.Background(), "arbiter", "arbiter@example.com", "short")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestEnsureAdminWithoutCredentials(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.auth.EnsureAdmin(context.Background(), "", "", ""))
	assert.Contains(t, f.logs.String(), "no admin account exists")
}

func TestLoginPlayerByAccessCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.players.CreatePlayer(ctx, CreatePlayerInput{Name: "Vishy"})
	require.NoError(t, err)

	id, err := f.auth.LoginPlayer(ctx, "  "+strings.ToLower(p.AccessCode)+" ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, id.UserID)
	assert.Equal(t, models.RolePlayer, id.Role)

	_, err = f.auth.LoginPlayer(ctx, "ZZZZZZZZ0")
	assert.ErrorIs(t, err, ErrAuthInvalidAccessCode)
	_, err = f.auth.LoginPlayer(ctx, "   ")
	assert.ErrorIs(t, err, ErrAuthInvalidAccessCode)
}
