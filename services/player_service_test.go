package services

import (
	"context"
	"testing"

	"github.com/Dosada05/chess-tournament/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePlayerValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	badEmail := "not-an-email"
	negative := -5

	tests := []struct {
		name  string
		input CreatePlayerInput
	}{
		{"blank name", CreatePlayerInput{Name: "   "}},
		{"bad email", CreatePlayerInput{Name: "Anna", Email: &badEmail}},
		{"negative rating", CreatePlayerInput{Name: "Anna", Rating: &negative}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.players.CreatePlayer(ctx, tt.input)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}

func TestCreatePlayerRetriesAccessCodeCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.players.(*playerService)

	codes := []string{"AAAA1111", "AAAA1111", "BBBB2222"}
	svc.newCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	first, err := svc.CreatePlayer(ctx, CreatePlayerInput{Name: " Magnus "})
	require.NoError(t, err)
	assert.Equal(t, "Magnus", first.Name)
	assert.Equal(t, "AAAA1111", first.AccessCode)

	second, err := svc.CreatePlayer(ctx, CreatePlayerInput{Name: "Hikaru"})
	require.NoError(t, err)
	assert.Equal(t, "BBBB2222", second.AccessCode)
	assert.Contains(t, f.logs.String(), "access code collision")
}

func TestCreatePlayerGivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.players.(*playerService)
	svc.newCode = func() (string, error) { return "SAMECODE", nil }

	_, err := svc.CreatePlayer(ctx, CreatePlayerInput{Name: "One"})
	require.NoError(t, err)
	_, err = svc.CreatePlayer(ctx, CreatePlayerInput{Name: "Two"})
	assert.ErrorIs(t, err, repositories.ErrPlayerAccessCodeConflict)
}

func TestGetAndDeletePlayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.players.CreatePlayer(ctx, CreatePlayerInput{Name: "Judit"})
	require.NoError(t, err)

	got, err := f.players.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Judit", got.Name)

	all, err := f.players.ListPlayers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, f.players.DeletePlayer(ctx, p.ID))
	_, err = f.players.GetPlayer(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.ErrorIs(t, f.players.DeletePlayer(ctx, p.ID), ErrPlayerNotFound)
}

func TestUpdatePlayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.players.CreatePlayer(ctx, CreatePlayerInput{Name: "Judit"})
	require.NoError(t, err)

	rating := 2675
	updated, err := f.players.UpdatePlayer(ctx, p.ID, CreatePlayerInput{Name: "  Judit Polgar ", Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, "Judit Polgar", updated.Name)

	stored, err := f.players.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Judit Polgar", stored.Name)
	require.NotNil(t, stored.Rating)
	assert.Equal(t, 2675, *stored.Rating)
	assert.Equal(t, p.AccessCode, stored.AccessCode)

	badEmail := "judit@"
	_, err = f.players.UpdatePlayer(ctx, p.ID, CreatePlayerInput{Name: "Judit", Email: &badEmail})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = f.players.UpdatePlayer(ctx, 777, CreatePlayerInput{Name: "Nobody"})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestDeletePlayerInRunningTournament(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id, players := f.newTournament(t, 1, 2, 2)
	require.NoError(t, f.progression.PartitionGroups(ctx, id))

	err := f.players.DeletePlayer(ctx, players[0])
	assert.ErrorIs(t, err, ErrPlayerInActiveTournament)
	_, err = f.players.GetPlayer(ctx, players[0])
	assert.NoError(t, err)
}

func TestDeletePlayerEnrolledInDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, players := f.newTournament(t, 1, 2, 2)

	require.NoError(t, f.players.DeletePlayer(ctx, players[0]))
	_, err := f.players.GetPlayer(ctx, players[0])
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}
