package brackets

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignGroupsModulo(t *testing.T) {
	groups, err := AssignGroups([]int{1, 2, 3, 4, 5, 6, 7}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 4, 7}, {2, 5}, {3, 6}}, groups)
}

func TestAssignGroupsShuffledSizes(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	ids := playerIDs(17)
	groups, err := AssignGroups(ids, 4, rng.Shuffle)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, g := range groups {
		assert.GreaterOrEqual(t, len(g), 4)
		assert.LessOrEqual(t, len(g), 5)
		for _, id := range g {
			assert.False(t, seen[id])
			seen[id] = true
		}
	}
	assert.Len(t, seen, 17)
	// input is not mutated
	assert.Equal(t, playerIDs(17), ids)
}

func TestAssignGroupsInsufficient(t *testing.T) {
	_, err := AssignGroups([]int{1, 2}, 3, nil)
	assert.Error(t, err)
	_, err = AssignGroups([]int{1, 2}, 0, nil)
	assert.Error(t, err)
}

func TestGroupName(t *testing.T) {
	assert.Equal(t, "Group A", GroupName(0))
	assert.Equal(t, "Group Z", GroupName(25))
	assert.Equal(t, "Group AA", GroupName(26))
}

func TestQualifierQuotas(t *testing.T) {
	assert.Equal(t, []int{3, 3, 2}, QualifierQuotas(8, 3))
	assert.Equal(t, []int{2, 2, 2, 2}, QualifierQuotas(8, 4))
	assert.Nil(t, QualifierQuotas(8, 0))
}
