package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/repositories"
)

// ParticipantService управляет записью игроков на турнир.
type ParticipantService interface {
	EnrollPlayer(ctx context.Context, tournamentID, playerID int) (*models.TournamentPlayer, error)
	// RemovePlayer deletes the enrollment and every match of the tournament the player appears in.
	// Allowed until the knockout stage starts; in the group stage the player's group is re-ranked.
	RemovePlayer(ctx context.Context, tournamentID, playerID int) error
	ListParticipants(ctx context.Context, tournamentID int) ([]*models.TournamentPlayer, error)
}

type participantService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	enrollmentRepo repositories.TournamentPlayerRepository
	matchRepo      repositories.MatchRepository
	progression    ProgressionService
	logger         *slog.Logger
}

func NewParticipantService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	enrollmentRepo repositories.TournamentPlayerRepository,
	matchRepo repositories.MatchRepository,
	progression ProgressionService,
	logger *slog.Logger,
) ParticipantService {
	return &participantService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		enrollmentRepo: enrollmentRepo,
		matchRepo:      matchRepo,
		progression:    progression,
		logger:         logger,
	}
}

func (s *participantService) EnrollPlayer(ctx context.Context, tournamentID, playerID int) (*models.TournamentPlayer, error) {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	unlock := s.progression.lock(tournamentID)
	defer unlock()

	tp := &models.TournamentPlayer{TournamentID: tournamentID, PlayerID: player.ID}
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if err := requireStatus(t, models.StatusDraft); err != nil {
			return err
		}
		_, err = s.enrollmentRepo.Get(ctx, exec, tournamentID, playerID)
		switch {
		case err == nil:
			return ErrAlreadyEnrolled
		case !errors.Is(err, repositories.ErrTournamentPlayerNotFound):
			return err
		}
		return handleRepositoryError(s.enrollmentRepo.Create(ctx, exec, tp))
	})
	if err != nil {
		return nil, err
	}

	tp.Player = player
	s.logger.InfoContext(ctx, "player enrolled", slog.Int("tournament_id", tournamentID), slog.Int("player_id", playerID))
	return tp, nil
}

func (s *participantService) RemovePlayer(ctx context.Context, tournamentID, playerID int) error {
	unlock := s.progression.lock(tournamentID)
	defer unlock()

	var removedMatches int64
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		// qualifiers and the bracket are fixed after the group stage
		if err := requireStatus(t, models.StatusDraft, models.StatusGroupStage); err != nil {
			return err
		}
		tp, err := s.enrollmentRepo.Get(ctx, exec, tournamentID, playerID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if err := s.enrollmentRepo.Delete(ctx, exec, tournamentID, playerID); err != nil {
			return handleRepositoryError(err)
		}
		n, err := s.matchRepo.DeleteByPlayer(ctx, exec, tournamentID, playerID)
		if err != nil {
			return fmt.Errorf("failed to delete matches of removed player: %w", err)
		}
		removedMatches = n

		if tp.GroupID != nil {
			return s.progression.recomputeGroup(ctx, exec, tournamentID, *tp.GroupID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "player removed from tournament",
		slog.Int("tournament_id", tournamentID),
		slog.Int("player_id", playerID),
		slog.Int64("matches_deleted", removedMatches))
	return nil
}

func (s *participantService) ListParticipants(ctx context.Context, tournamentID int) ([]*models.TournamentPlayer, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, handleRepositoryError(err)
	}
	return s.enrollmentRepo.ListByTournament(ctx, nil, tournamentID, repositories.TournamentPlayerFilter{})
}
