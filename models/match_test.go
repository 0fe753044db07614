package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestMatchResultScores(t *testing.T) {
	tests := []struct {
		result       MatchResult
		white, black float64
		hasWinner    bool
	}{
		{ResultWhiteWin, 1.0, 0.0, true},
		{ResultBlackWin, 0.0, 1.0, true},
		{ResultDraw, 0.5, 0.5, false},
		{ResultForfeitWhite, 0.0, 1.0, true},
		{ResultForfeitBlack, 1.0, 0.0, true},
		{ResultNoShow, 0.0, 0.0, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.result), func(t *testing.T) {
			w, b, ok := tt.result.Scores()
			require.True(t, ok)
			assert.Equal(t, tt.white, w)
			assert.Equal(t, tt.black, b)
			assert.Equal(t, tt.hasWinner, tt.result.HasWinner())
		})
	}

	_, _, ok := MatchResult("resign").Scores()
	assert.False(t, ok)
}

func TestMatchWinnerAndLoser(t *testing.T) {
	m := &Match{WhitePlayerID: intPtr(1), BlackPlayerID: intPtr(2)}
	assert.Nil(t, m.WinnerID())

	require.True(t, m.ApplyResult(ResultForfeitWhite))
	assert.Equal(t, MatchStatusCompleted, m.Status)
	assert.Equal(t, 2, *m.WinnerID())
	assert.Equal(t, 1, *m.LoserID())
	assert.Equal(t, 0.0, *m.WhiteScore)
	assert.Equal(t, 1.0, *m.BlackScore)

	require.True(t, m.ApplyResult(ResultDraw))
	assert.Nil(t, m.WinnerID())
	assert.Nil(t, m.LoserID())

	assert.False(t, m.ApplyResult(MatchResult("bogus")))
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusDraft.CanTransitionTo(StatusGroupStage))
	assert.True(t, StatusGroupStage.CanTransitionTo(StatusKnockoutStage))
	assert.True(t, StatusKnockoutStage.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusDraft.CanTransitionTo(StatusKnockoutStage))
	assert.False(t, StatusKnockoutStage.CanTransitionTo(StatusGroupStage))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusDraft))

	assert.True(t, MatchStatusScheduled.CanTransitionTo(MatchStatusInProgress))
	assert.True(t, MatchStatusInProgress.CanTransitionTo(MatchStatusCompleted))
	assert.False(t, MatchStatusCompleted.CanTransitionTo(MatchStatusCancelled))
	assert.False(t, MatchStatusCancelled.CanTransitionTo(MatchStatusScheduled))
	assert.True(t, MatchStatusCancelled.IsTerminal())
}
