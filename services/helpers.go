package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/repositories"
)

// --- Общие хелперы ---

// handleRepositoryError переводит ошибки репозиториев в ошибки сервисного слоя.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	case errors.Is(err, repositories.ErrPlayerNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, repositories.ErrPlayerInActiveTournament):
		return ErrPlayerInActiveTournament
	case errors.Is(err, repositories.ErrTournamentPlayerNotFound):
		return ErrNotEnrolled
	case errors.Is(err, repositories.ErrTournamentPlayerConflict):
		return ErrAlreadyEnrolled
	case errors.Is(err, repositories.ErrTournamentPlayerInvalid):
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return err
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}

func timePtr(v time.Time) *time.Time {
	return &v
}

func validateTournamentDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrValidationFailed)
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start date (%s) must be before end date (%s)",
			ErrValidationFailed, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

// requireStatus returns ErrWrongStage unless the tournament is in one of the given stages.
func requireStatus(t *models.Tournament, allowed ...models.TournamentStatus) error {
	for _, s := range allowed {
		if t.Status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: tournament %d is %s", ErrWrongStage, t.ID, t.Status)
}

func playerIDs(players []*models.TournamentPlayer) []int {
	ids := make([]int, len(players))
	for i, tp := range players {
		ids[i] = tp.PlayerID
	}
	return ids
}

func dereferenceMatches(slice []*models.Match) []models.Match {
	if slice == nil {
		return []models.Match{}
	}
	result := make([]models.Match, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}

func dereferencePlayers(slice []*models.TournamentPlayer) []models.TournamentPlayer {
	if slice == nil {
		return []models.TournamentPlayer{}
	}
	result := make([]models.TournamentPlayer, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}
