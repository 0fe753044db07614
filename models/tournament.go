package models

import "time"

// TournamentStatus представляет этап турнира. Переходы строго линейные.
type TournamentStatus string

const (
	StatusDraft         TournamentStatus = "draft"
	StatusGroupStage    TournamentStatus = "group_stage"
	StatusKnockoutStage TournamentStatus = "knockout_stage"
	StatusCompleted     TournamentStatus = "completed"
)

var tournamentStatusOrder = map[TournamentStatus]int{
	StatusDraft:         0,
	StatusGroupStage:    1,
	StatusKnockoutStage: 2,
	StatusCompleted:     3,
}

// IsValid reports whether s is one of the known tournament statuses.
func (s TournamentStatus) IsValid() bool {
	_, ok := tournamentStatusOrder[s]
	return ok
}

// CanTransitionTo allows only the single forward step Draft→GroupStage→KnockoutStage→Completed.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	cur, ok := tournamentStatusOrder[s]
	if !ok {
		return false
	}
	n, ok := tournamentStatusOrder[next]
	if !ok {
		return false
	}
	return n == cur+1
}

// Tournament представляет турнир.
type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Description     *string          `json:"description,omitempty" db:"description"`
	Location        *string          `json:"location,omitempty" db:"location"`
	StartDate       time.Time        `json:"start_date" db:"start_date"`
	EndDate         time.Time        `json:"end_date" db:"end_date"`
	Status          TournamentStatus `json:"status" db:"status"`
	GroupCount      int              `json:"group_count" db:"group_count"`
	PlayersPerGroup int              `json:"players_per_group" db:"players_per_group"` // informational only
	KnockoutPlayers int              `json:"knockout_players" db:"knockout_players"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`

	Groups  []Group            `json:"groups,omitempty" db:"-"`
	Players []TournamentPlayer `json:"players,omitempty" db:"-"`
	Matches []Match            `json:"matches,omitempty" db:"-"`
}
