// chess-tournament/brackets/single_elimination.go
package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/chess-tournament/models"
)

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// RoundCount is the smallest r with 2^r >= n.
func RoundCount(n int) int {
	rounds := 0
	for 1<<rounds < n {
		rounds++
	}
	return rounds
}

// RoundName labels the last three rounds; earlier ones are round_<k>.
func RoundName(round, totalRounds int) string {
	switch round {
	case totalRounds:
		return models.KnockoutFinal
	case totalRounds - 1:
		return models.KnockoutSemifinal
	case totalRounds - 2:
		return models.KnockoutQuarterfinal
	default:
		return fmt.Sprintf("round_%d", round)
	}
}

// SeedSlots places seeds pairwise: slot 2k holds seed k and slot 2k+1 holds
// seed bracketSize-1-k, so the first round pits seed k against its mirror.
// Missing seeds are byes (nil).
func SeedSlots(seeds []int) []*int {
	size := 1 << RoundCount(len(seeds))
	padded := make([]*int, size)
	for i := range seeds {
		id := seeds[i]
		padded[i] = &id
	}

	slots := make([]*int, 0, size)
	for k := 0; k < size/2; k++ {
		slots = append(slots, padded[k], padded[size-1-k])
	}
	return slots
}

// GenerateBracket expects PlayerIDs in seed order (best first) and returns
// every match of every round. Only round one carries players.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	n := len(params.PlayerIDs)
	if n < 2 {
		return nil, errors.New("not enough players to generate a single elimination bracket (minimum 2)")
	}

	numRounds := RoundCount(n)
	slots := SeedSlots(params.PlayerIDs)
	allGeneratedMatches := make([]*BracketMatch, 0, len(slots)-1)

	for r := 1; r <= numRounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matchesInRound := 1 << (numRounds - r)
		for i := 0; i < matchesInRound; i++ {
			bm := &BracketMatch{
				Round:         r,
				OrderInRound:  i + 1,
				KnockoutRound: RoundName(r, numRounds),
			}
			if r < numRounds {
				bm.NextOrder = i/2 + 1
			}
			if r == 1 {
				bm.WhitePlayerID = slots[2*i]
				bm.BlackPlayerID = slots[2*i+1]
				if bm.WhitePlayerID == nil && bm.BlackPlayerID == nil {
					return nil, fmt.Errorf("unexpected empty first-round match %d for %d players", i+1, n)
				}
				if bm.WhitePlayerID == nil || bm.BlackPlayerID == nil {
					bm.IsBye = true
				}
			}
			allGeneratedMatches = append(allGeneratedMatches, bm)
		}
	}

	return allGeneratedMatches, nil
}
