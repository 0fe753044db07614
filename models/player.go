package models

import "time"

type Player struct {
	ID         int       `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      *string   `json:"email,omitempty" db:"email"`
	Phone      *string   `json:"phone,omitempty" db:"phone"`
	Rating     *int      `json:"rating,omitempty" db:"rating"`
	AccessCode string    `json:"-" db:"access_code"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// TournamentPlayer связывает игрока с турниром. Пара (TournamentID, PlayerID) уникальна.
type TournamentPlayer struct {
	ID            int     `json:"id" db:"id"`
	TournamentID  int     `json:"tournament_id" db:"tournament_id"`
	PlayerID      int     `json:"player_id" db:"player_id"`
	GroupID       *int    `json:"group_id,omitempty" db:"group_id"`
	Seed          *int    `json:"seed,omitempty" db:"seed"`
	Points        float64 `json:"points" db:"points"`
	TiebreakScore float64 `json:"tiebreak_score" db:"tiebreak_score"`
	Eliminated    bool    `json:"eliminated" db:"eliminated"`

	Player *Player `json:"player,omitempty" db:"-"`
}

type Group struct {
	ID           int    `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	Name         string `json:"name" db:"name"`

	Standings []TournamentPlayer `json:"standings,omitempty" db:"-"`
}
