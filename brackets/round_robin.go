package brackets

import (
	"context"
	"fmt"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() BracketGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateBracket builds a single round robin with the circle method.
// An odd field gets a bye slot; pairings against the bye produce no match.
// Rounds alternate colours: even rounds give the lower index white.
func (g *RoundRobinGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	if len(params.PlayerIDs) < 2 {
		return nil, fmt.Errorf("RoundRobinGenerator: not enough players (found %d, min 2 required)", len(params.PlayerIDs))
	}

	// nil is the bye
	circle := make([]*int, 0, len(params.PlayerIDs)+1)
	for i := range params.PlayerIDs {
		id := params.PlayerIDs[i]
		circle = append(circle, &id)
	}
	if len(circle)%2 == 1 {
		circle = append(circle, nil)
	}

	m := len(circle)
	half := m / 2
	matches := make([]*BracketMatch, 0, len(params.PlayerIDs)*(len(params.PlayerIDs)-1)/2)

	for round := 0; round < m-1; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		order := 0
		for i := 0; i < half; i++ {
			a, b := circle[i], circle[m-1-i]
			if a == nil || b == nil {
				continue
			}
			white, black := a, b
			if round%2 == 1 {
				white, black = b, a
			}
			order++
			matches = append(matches, &BracketMatch{
				Round:         round + 1,
				OrderInRound:  order,
				WhitePlayerID: white,
				BlackPlayerID: black,
			})
		}
		circle = rotate(circle)
	}

	return matches, nil
}

// rotate keeps position 0 fixed and moves the last element to position 1.
func rotate(circle []*int) []*int {
	last := len(circle) - 1
	next := make([]*int, 0, len(circle))
	next = append(next, circle[0], circle[last])
	next = append(next, circle[1:last]...)
	return next
}
