package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/repositories"
)

type SubmitResultInput struct {
	Result models.MatchResult `json:"result"`
	Notes  *string            `json:"notes"`
}

// SubmitResultOutcome describes what happened after the result was stored.
type SubmitResultOutcome struct {
	Match *models.Match `json:"match"`
	// Unresolved is set for a knockout draw or no-show: the result is kept
	// but nobody advances until an admin intervenes.
	Unresolved bool   `json:"unresolved"`
	Message    string `json:"message"`
}

// PlayerStats counts completed games with both players seated. NoShow counts as nothing.
type PlayerStats struct {
	PlayerID      int     `json:"player_id"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Draws         int     `json:"draws"`
	Total         int     `json:"total"`
	WinPercentage float64 `json:"win_percentage"`
}

type MatchService interface {
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListTournamentMatches(ctx context.Context, tournamentID int) ([]*models.Match, error)
	ListPlayerMatches(ctx context.Context, playerID int) ([]*models.Match, error)
	StartMatch(ctx context.Context, id int) (*models.Match, error)
	CancelMatch(ctx context.Context, id int) (*models.Match, error)
	SubmitResult(ctx context.Context, id int, input SubmitResultInput) (*SubmitResultOutcome, error)
	// CorrectResult rewrites the result of a completed match and re-applies its follow-up.
	CorrectResult(ctx context.Context, id int, input SubmitResultInput) (*SubmitResultOutcome, error)
	GetPlayerStats(ctx context.Context, playerID int) (*PlayerStats, error)
}

type matchService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	progression    ProgressionService
	logger         *slog.Logger
}

func NewMatchService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	progression ProgressionService,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		progression:    progression,
		logger:         logger,
	}
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return m, nil
}

func (s *matchService) ListTournamentMatches(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.matchRepo.ListByTournament(ctx, nil, tournamentID, repositories.ListMatchesFilter{})
}

func (s *matchService) ListPlayerMatches(ctx context.Context, playerID int) ([]*models.Match, error) {
	return s.matchRepo.ListByPlayer(ctx, playerID)
}

func (s *matchService) GetPlayerStats(ctx context.Context, playerID int) (*PlayerStats, error) {
	matches, err := s.matchRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return tallyStats(playerID, matches), nil
}

func tallyStats(playerID int, matches []*models.Match) *PlayerStats {
	stats := &PlayerStats{PlayerID: playerID}
	for _, m := range matches {
		// byes have no opponent
		if m.Status != models.MatchStatusCompleted || m.Result == nil || m.WhitePlayerID == nil || m.BlackPlayerID == nil {
			continue
		}
		switch {
		case *m.Result == models.ResultDraw:
			stats.Draws++
		case m.WinnerID() != nil && *m.WinnerID() == playerID:
			stats.Wins++
		case m.LoserID() != nil && *m.LoserID() == playerID:
			stats.Losses++
		}
	}
	stats.Total = stats.Wins + stats.Losses + stats.Draws
	if stats.Total > 0 {
		stats.WinPercentage = float64(stats.Wins) / float64(stats.Total) * 100
	}
	return stats
}

// update loads the match and its tournament under the tournament lock and runs fn in one transaction.
func (s *matchService) update(ctx context.Context, id int, fn func(exec repositories.SQLExecutor, t *models.Tournament, m *models.Match) error) (*models.Match, error) {
	current, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	unlock := s.progression.lock(current.TournamentID)
	defer unlock()

	var updated *models.Match
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, current.TournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		m, err := s.matchRepo.GetByID(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		if err := fn(exec, t, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	return updated, err
}

func (s *matchService) transition(m *models.Match, next models.MatchStatus) error {
	if !m.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidMatchTransition, m.Status, next)
	}
	return nil
}

func (s *matchService) StartMatch(ctx context.Context, id int) (*models.Match, error) {
	return s.update(ctx, id, func(exec repositories.SQLExecutor, t *models.Tournament, m *models.Match) error {
		if err := s.transition(m, models.MatchStatusInProgress); err != nil {
			return err
		}
		if m.WhitePlayerID == nil || m.BlackPlayerID == nil {
			return ErrMatchPlayersMissing
		}
		m.Status = models.MatchStatusInProgress
		if err := s.matchRepo.Update(ctx, exec, m); err != nil {
			return handleRepositoryError(err)
		}
		s.logger.InfoContext(ctx, "match started", slog.Int("match_id", m.ID), slog.Int("tournament_id", t.ID))
		return nil
	})
}

func (s *matchService) CancelMatch(ctx context.Context, id int) (*models.Match, error) {
	return s.update(ctx, id, func(exec repositories.SQLExecutor, t *models.Tournament, m *models.Match) error {
		if err := s.transition(m, models.MatchStatusCancelled); err != nil {
			return err
		}
		m.Status = models.MatchStatusCancelled
		if err := s.matchRepo.Update(ctx, exec, m); err != nil {
			return handleRepositoryError(err)
		}
		s.logger.InfoContext(ctx, "match cancelled", slog.Int("match_id", m.ID), slog.Int("tournament_id", t.ID))
		return nil
	})
}

// SubmitResult stores the result and, in the same transaction, refreshes group
// standings or advances the knockout winner.
func (s *matchService) SubmitResult(ctx context.Context, id int, input SubmitResultInput) (*SubmitResultOutcome, error) {
	if err := normalizeResultInput(&input); err != nil {
		return nil, err
	}

	unresolved := false
	m, err := s.update(ctx, id, func(exec repositories.SQLExecutor, t *models.Tournament, m *models.Match) error {
		if err := requireStatus(t, models.StatusGroupStage, models.StatusKnockoutStage); err != nil {
			return err
		}
		if err := s.transition(m, models.MatchStatusCompleted); err != nil {
			return err
		}
		if m.WhitePlayerID == nil || m.BlackPlayerID == nil {
			return ErrMatchPlayersMissing
		}

		m.ApplyResult(input.Result)
		if input.Notes != nil {
			m.Notes = input.Notes
		}
		if err := s.matchRepo.Update(ctx, exec, m); err != nil {
			return handleRepositoryError(err)
		}

		err := s.progression.applyCompletedMatch(ctx, exec, t, m)
		if errors.Is(err, ErrNoWinner) {
			unresolved = true
			s.logger.WarnContext(ctx, "knockout match finished without a winner",
				slog.Int("match_id", m.ID), slog.Int("tournament_id", t.ID), slog.String("result", string(input.Result)))
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	outcome := &SubmitResultOutcome{Match: m, Message: "result recorded"}
	if unresolved {
		outcome.Unresolved = true
		outcome.Message = "result recorded; " + ErrNoWinner.Error()
	}
	s.logger.InfoContext(ctx, "match result submitted",
		slog.Int("match_id", m.ID), slog.String("result", string(input.Result)), slog.Bool("unresolved", unresolved))
	return outcome, nil
}

func normalizeResultInput(input *SubmitResultInput) error {
	if !input.Result.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidResult, input.Result)
	}
	if input.Notes != nil {
		trimmed := strings.TrimSpace(*input.Notes)
		input.Notes = &trimmed
	}
	return nil
}

// CorrectResult: group results can be corrected during the group stage,
// knockout results during the knockout stage while the winner's next match
// has not started.
func (s *matchService) CorrectResult(ctx context.Context, id int, input SubmitResultInput) (*SubmitResultOutcome, error) {
	if err := normalizeResultInput(&input); err != nil {
		return nil, err
	}

	unresolved := false
	m, err := s.update(ctx, id, func(exec repositories.SQLExecutor, t *models.Tournament, m *models.Match) error {
		if m.Status != models.MatchStatusCompleted {
			return ErrMatchNotCompleted
		}
		stage := models.StatusGroupStage
		if m.IsKnockout() {
			stage = models.StatusKnockoutStage
		}
		if err := requireStatus(t, stage); err != nil {
			return err
		}
		if m.WhitePlayerID == nil || m.BlackPlayerID == nil {
			return ErrMatchPlayersMissing
		}

		var previous *int
		if w := m.WinnerID(); w != nil {
			previous = intPtr(*w)
		}
		m.ApplyResult(input.Result)
		if input.Notes != nil {
			m.Notes = input.Notes
		}
		if err := s.matchRepo.Update(ctx, exec, m); err != nil {
			return handleRepositoryError(err)
		}

		err := s.progression.reapplyCompletedMatch(ctx, exec, t, m, previous)
		if errors.Is(err, ErrNoWinner) {
			unresolved = true
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	outcome := &SubmitResultOutcome{Match: m, Message: "result corrected"}
	if unresolved {
		outcome.Unresolved = true
		outcome.Message = "result corrected; " + ErrNoWinner.Error()
	}
	s.logger.InfoContext(ctx, "match result corrected",
		slog.Int("match_id", m.ID), slog.String("result", string(input.Result)), slog.Bool("unresolved", unresolved))
	return outcome, nil
}
