package services

import (
	"errors"
	"fmt"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Не найдено
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrNotEnrolled        = errors.New("player is not enrolled in this tournament")

	// Нарушение предусловий
	ErrValidationFailed       = errors.New("validation failed")
	ErrWrongStage             = errors.New("operation is not allowed at the current tournament stage")
	ErrInsufficientPlayers    = errors.New("not enough enrolled players")
	ErrAlreadyPartitioned     = errors.New("groups already exist for this tournament")
	ErrNoGroups               = errors.New("tournament has no groups")
	ErrAlreadyScheduled       = errors.New("group matches are already scheduled")
	ErrWrongQualifierCount    = errors.New("qualifier count does not match knockout size")
	ErrDuplicateQualifier     = errors.New("qualifier list contains duplicates")
	ErrAlreadySelected        = errors.New("knockout qualifiers are already selected")
	ErrAlreadyBuilt           = errors.New("knockout bracket already exists")
	ErrNotKnockoutMatch       = errors.New("match is not a knockout match")
	ErrMatchNotCompleted      = errors.New("match is not completed yet")
	ErrNoWinner               = errors.New("no winner determined: draw or no-show in a knockout match needs manual resolution")
	ErrAlreadyAdvanced        = errors.New("winner has already been advanced")
	ErrSlotOccupied           = errors.New("target slot is already taken by another player")
	ErrInvalidResult          = errors.New("invalid match result")
	ErrInvalidMatchTransition = errors.New("invalid match status transition")
	ErrMatchPlayersMissing    = errors.New("match does not have both players assigned")
	ErrResultLocked           = errors.New("winner has already moved on to a started match")

	// Конфликты
	ErrAlreadyEnrolled          = errors.New("player is already enrolled in this tournament")
	ErrPlayerInActiveTournament = errors.New("player takes part in a tournament that is in progress")

	// Аутентификация
	ErrAuthInvalidCredentials = errors.New("invalid username or password")
	ErrAuthInvalidAccessCode  = errors.New("invalid access code")

	ErrIncompleteMatches = errors.New("tournament has incomplete matches")
)

// IncompleteMatchesError carries the number of matches that are neither
// completed nor cancelled.
type IncompleteMatchesError struct {
	Count int
}

func (e *IncompleteMatchesError) Error() string {
	return fmt.Sprintf("there are %d incomplete matches", e.Count)
}

func (e *IncompleteMatchesError) Is(target error) bool {
	return target == ErrIncompleteMatches
}
