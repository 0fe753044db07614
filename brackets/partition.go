package brackets

import (
	"errors"
	"fmt"
)

// Shuffler permutes n elements through swap, e.g. rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// AssignGroups shuffles the players and deals them into groupCount groups by
// shuffled index modulo groupCount, so group sizes differ by at most one.
func AssignGroups(playerIDs []int, groupCount int, shuffle Shuffler) ([][]int, error) {
	if groupCount <= 0 {
		return nil, errors.New("group count must be positive")
	}
	if len(playerIDs) < groupCount {
		return nil, fmt.Errorf("need at least %d players for %d groups, have %d", groupCount, groupCount, len(playerIDs))
	}

	shuffled := make([]int, len(playerIDs))
	copy(shuffled, playerIDs)
	if shuffle != nil {
		shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	}

	groups := make([][]int, groupCount)
	for i, id := range shuffled {
		groups[i%groupCount] = append(groups[i%groupCount], id)
	}
	return groups, nil
}

// GroupName returns "Group A", "Group B", … "Group Z", "Group AA", …
func GroupName(index int) string {
	label := ""
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		label = string(rune('A'+(n-1)%26)) + label
	}
	return "Group " + label
}

// QualifierQuotas splits total slots across groupCount groups; the first
// total mod groupCount groups get one extra slot.
func QualifierQuotas(total, groupCount int) []int {
	if groupCount <= 0 {
		return nil
	}
	quotas := make([]int, groupCount)
	base, remainder := total/groupCount, total%groupCount
	for i := range quotas {
		quotas[i] = base
		if i < remainder {
			quotas[i]++
		}
	}
	return quotas
}
