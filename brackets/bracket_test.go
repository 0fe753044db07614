package brackets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/chess-tournament/models"
)

func knockoutMatch(id, round, num int, label string, next *int) *models.Match {
	return &models.Match{
		ID:               id,
		Round:            round,
		KnockoutRound:    &label,
		KnockoutMatchNum: &num,
		NextMatchID:      next,
		Status:           models.MatchStatusScheduled,
	}
}

func ptr(v int) *int { return &v }

func eightPlayerTree() []*models.Match {
	return []*models.Match{
		knockoutMatch(1, 1, 1, "quarterfinal", ptr(5)),
		knockoutMatch(2, 1, 2, "quarterfinal", ptr(5)),
		knockoutMatch(3, 1, 3, "quarterfinal", ptr(6)),
		knockoutMatch(4, 1, 4, "quarterfinal", ptr(6)),
		knockoutMatch(5, 2, 1, "semifinal", ptr(7)),
		knockoutMatch(6, 2, 2, "semifinal", ptr(7)),
		knockoutMatch(7, 3, 1, "final", nil),
	}
}

func TestFromMatchesLinksTree(t *testing.T) {
	b, err := FromMatches(eightPlayerTree())
	require.NoError(t, err)
	require.Len(t, b.Rounds, 3)
	assert.Equal(t, 7, b.Size())

	qf3, ok := b.Node(3)
	require.True(t, ok)
	assert.Equal(t, SlotWhite, qf3.TargetSlot())
	assert.Equal(t, 6, b.Parent(qf3).Match.ID)

	qf4, _ := b.Node(4)
	assert.Equal(t, SlotBlack, qf4.TargetSlot())

	final := b.Last()[0]
	assert.Nil(t, b.Parent(final))
	assert.Equal(t, 5, b.Child(final, SlotWhite).Match.ID)
	assert.Equal(t, 6, b.Child(final, SlotBlack).Match.ID)
	assert.Nil(t, b.Child(qf3, SlotWhite))
}

func TestFromMatchesIgnoresGroupMatches(t *testing.T) {
	groupID := 1
	matches := append(eightPlayerTree(), &models.Match{ID: 99, GroupID: &groupID, Round: 1})
	b, err := FromMatches(matches)
	require.NoError(t, err)
	assert.Equal(t, 7, b.Size())
}

func TestFromMatchesDetectsBrokenEdges(t *testing.T) {
	matches := eightPlayerTree()
	matches[0].NextMatchID = ptr(6)
	_, err := FromMatches(matches)
	assert.ErrorIs(t, err, ErrInconsistentBracket)

	matches = eightPlayerTree()[:5]
	matches = append(matches, knockoutMatch(7, 3, 1, "final", nil))
	_, err = FromMatches(matches)
	assert.ErrorIs(t, err, ErrInconsistentBracket)
}

func TestFromMatchesEmpty(t *testing.T) {
	b, err := FromMatches(nil)
	require.NoError(t, err)
	assert.True(t, b.Empty())
	assert.Nil(t, b.Last())
}
