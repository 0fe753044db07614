package brackets

import (
	"context"
)

type GenerateBracketParams struct {
	TournamentID int
	// PlayerIDs are ordered: group members for round robin, seed order for elimination.
	PlayerIDs []int
}

// BracketMatch is one generated pairing before it is persisted.
type BracketMatch struct {
	Round        int
	OrderInRound int // 1-based

	WhitePlayerID *int
	BlackPlayerID *int

	// Только для плей-офф.
	KnockoutRound string
	NextOrder     int // 1-based position in Round+1, 0 for the final
	IsBye         bool
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}
