package brackets

import (
	"sort"

	"github.com/Dosada05/chess-tournament/models"
)

// ComputeStandings recomputes Points and TiebreakScore for the members of one group.
//
// Pass one resets and accumulates points from completed matches. Pass two sums,
// for every player, the points (as left by pass one) of each opponent met in a
// completed match. This is an approximation of Sonneborn–Berger and is kept as is.
// Matches whose players are not members are ignored.
func ComputeStandings(members []*models.TournamentPlayer, matches []*models.Match) {
	byPlayer := make(map[int]*models.TournamentPlayer, len(members))
	for _, tp := range members {
		tp.Points = 0
		tp.TiebreakScore = 0
		byPlayer[tp.PlayerID] = tp
	}

	completed := make([]*models.Match, 0, len(matches))
	for _, m := range matches {
		if m == nil || m.Status != models.MatchStatusCompleted || m.Result == nil {
			continue
		}
		completed = append(completed, m)
	}

	for _, m := range completed {
		white, black, ok := m.Result.Scores()
		if !ok {
			continue
		}
		if tp := lookup(byPlayer, m.WhitePlayerID); tp != nil {
			tp.Points += white
		}
		if tp := lookup(byPlayer, m.BlackPlayerID); tp != nil {
			tp.Points += black
		}
	}

	for _, m := range completed {
		white := lookup(byPlayer, m.WhitePlayerID)
		black := lookup(byPlayer, m.BlackPlayerID)
		if white == nil || black == nil {
			continue
		}
		white.TiebreakScore += black.Points
		black.TiebreakScore += white.Points
	}
}

func lookup(byPlayer map[int]*models.TournamentPlayer, id *int) *models.TournamentPlayer {
	if id == nil {
		return nil
	}
	return byPlayer[*id]
}

// SortStandings orders by points desc, tiebreak desc, player id asc.
func SortStandings(players []*models.TournamentPlayer) {
	sort.SliceStable(players, func(i, j int) bool {
		return Less(players[i], players[j])
	})
}

// Less is the ranking comparator shared by standings and seeding.
func Less(a, b *models.TournamentPlayer) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.TiebreakScore != b.TiebreakScore {
		return a.TiebreakScore > b.TiebreakScore
	}
	return a.PlayerID < b.PlayerID
}
