package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCancelled  MatchStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled
}

// CanTransitionTo: Scheduled → InProgress → Completed, Cancelled из любого нетерминального.
// Scheduled → Completed разрешен: результат можно внести без старта партии.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	switch s {
	case MatchStatusScheduled:
		return next == MatchStatusInProgress || next == MatchStatusCompleted || next == MatchStatusCancelled
	case MatchStatusInProgress:
		return next == MatchStatusCompleted || next == MatchStatusCancelled
	default:
		return false
	}
}

type MatchResult string

const (
	ResultWhiteWin     MatchResult = "white_win"
	ResultBlackWin     MatchResult = "black_win"
	ResultDraw         MatchResult = "draw"
	ResultForfeitWhite MatchResult = "forfeit_white"
	ResultForfeitBlack MatchResult = "forfeit_black"
	ResultNoShow       MatchResult = "no_show"
)

type resultScores struct {
	white, black float64
}

var scoreTable = map[MatchResult]resultScores{
	ResultWhiteWin:     {1.0, 0.0},
	ResultBlackWin:     {0.0, 1.0},
	ResultDraw:         {0.5, 0.5},
	ResultForfeitWhite: {0.0, 1.0},
	ResultForfeitBlack: {1.0, 0.0},
	ResultNoShow:       {0.0, 0.0},
}

func (r MatchResult) IsValid() bool {
	_, ok := scoreTable[r]
	return ok
}

// Scores returns the points awarded to white and black for this result.
func (r MatchResult) Scores() (white, black float64, ok bool) {
	s, ok := scoreTable[r]
	return s.white, s.black, ok
}

// HasWinner is false for Draw and NoShow.
func (r MatchResult) HasWinner() bool {
	w, b, ok := r.Scores()
	return ok && w != b
}

// Knockout round labels.
const (
	KnockoutFinal        = "final"
	KnockoutSemifinal    = "semifinal"
	KnockoutQuarterfinal = "quarterfinal"
)

type Match struct {
	ID               int          `json:"id" db:"id"`
	TournamentID     int          `json:"tournament_id" db:"tournament_id"`
	GroupID          *int         `json:"group_id,omitempty" db:"group_id"` // nil для матчей плей-офф
	Round            int          `json:"round" db:"round"`
	BoardNumber      *int         `json:"board_number,omitempty" db:"board_number"`
	WhitePlayerID    *int         `json:"white_player_id,omitempty" db:"white_player_id"`
	BlackPlayerID    *int         `json:"black_player_id,omitempty" db:"black_player_id"`
	StartTime        *time.Time   `json:"start_time,omitempty" db:"start_time"`
	Status           MatchStatus  `json:"status" db:"status"`
	Result           *MatchResult `json:"result,omitempty" db:"result"`
	WhiteScore       *float64     `json:"white_score,omitempty" db:"white_score"`
	BlackScore       *float64     `json:"black_score,omitempty" db:"black_score"`
	Notes            *string      `json:"notes,omitempty" db:"notes"`
	KnockoutRound    *string      `json:"knockout_round,omitempty" db:"knockout_round"`
	KnockoutMatchNum *int         `json:"knockout_match_num,omitempty" db:"knockout_match_num"`
	NextMatchID      *int         `json:"next_match_id,omitempty" db:"next_match_id"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
}

func (m *Match) IsKnockout() bool {
	return m.GroupID == nil && m.KnockoutRound != nil
}

func (m *Match) IsRound(label string) bool {
	return m.KnockoutRound != nil && *m.KnockoutRound == label
}

// ApplyResult records the result, derives both scores and marks the match completed.
func (m *Match) ApplyResult(result MatchResult) bool {
	white, black, ok := result.Scores()
	if !ok {
		return false
	}
	m.Result = &result
	m.WhiteScore = &white
	m.BlackScore = &black
	m.Status = MatchStatusCompleted
	return true
}

// WinnerID is nil while the match has no result or the result has no winner.
func (m *Match) WinnerID() *int {
	if m.Result == nil {
		return nil
	}
	switch *m.Result {
	case ResultWhiteWin, ResultForfeitBlack:
		return m.WhitePlayerID
	case ResultBlackWin, ResultForfeitWhite:
		return m.BlackPlayerID
	}
	return nil
}

func (m *Match) LoserID() *int {
	if m.Result == nil {
		return nil
	}
	switch *m.Result {
	case ResultWhiteWin, ResultForfeitBlack:
		return m.BlackPlayerID
	case ResultBlackWin, ResultForfeitWhite:
		return m.WhitePlayerID
	}
	return nil
}

// HasPlayer reports whether playerID sits on either side of the board.
func (m *Match) HasPlayer(playerID int) bool {
	return (m.WhitePlayerID != nil && *m.WhitePlayerID == playerID) ||
		(m.BlackPlayerID != nil && *m.BlackPlayerID == playerID)
}
