package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/repositories"
	"github.com/Dosada05/chess-tournament/utils"
)

const accessCodeAttempts = 5

type CreatePlayerInput struct {
	Name   string  `json:"name"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
	Rating *int    `json:"rating"`
}

type PlayerService interface {
	// CreatePlayer returns the stored player; the access code is only exposed here.
	CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error)
	GetPlayer(ctx context.Context, id int) (*models.Player, error)
	ListPlayers(ctx context.Context) ([]*models.Player, error)
	UpdatePlayer(ctx context.Context, id int, input CreatePlayerInput) (*models.Player, error)
	// DeletePlayer fails with ErrPlayerInActiveTournament while the player is in a running tournament.
	DeletePlayer(ctx context.Context, id int) error
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	logger     *slog.Logger
	newCode    func() (string, error)
}

func NewPlayerService(playerRepo repositories.PlayerRepository, logger *slog.Logger) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		logger:     logger,
		newCode:    utils.GenerateAccessCode,
	}
}

func validatePlayerInput(input *CreatePlayerInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fmt.Errorf("%w: player name is required", ErrValidationFailed)
	}
	if input.Email != nil && !utils.IsValidEmail(*input.Email) {
		return fmt.Errorf("%w: invalid email %q", ErrValidationFailed, *input.Email)
	}
	if input.Rating != nil && *input.Rating < 0 {
		return fmt.Errorf("%w: rating must not be negative", ErrValidationFailed)
	}
	return nil
}

func (s *playerService) CreatePlayer(ctx context.Context, input CreatePlayerInput) (*models.Player, error) {
	if err := validatePlayerInput(&input); err != nil {
		return nil, err
	}

	player := &models.Player{
		Name:   input.Name,
		Email:  input.Email,
		Phone:  input.Phone,
		Rating: input.Rating,
	}
	for attempt := 1; ; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate access code: %w", err)
		}
		player.AccessCode = code
		err = s.playerRepo.Create(ctx, player)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrPlayerAccessCodeConflict) || attempt >= accessCodeAttempts {
			return nil, err
		}
		s.logger.WarnContext(ctx, "access code collision, retrying", slog.Int("attempt", attempt))
	}

	s.logger.InfoContext(ctx, "player created", slog.Int("player_id", player.ID))
	return player, nil
}

func (s *playerService) GetPlayer(ctx context.Context, id int) (*models.Player, error) {
	p, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return p, nil
}

func (s *playerService) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	return s.playerRepo.List(ctx)
}

// UpdatePlayer replaces the contact details; the access code stays.
func (s *playerService) UpdatePlayer(ctx context.Context, id int, input CreatePlayerInput) (*models.Player, error) {
	if err := validatePlayerInput(&input); err != nil {
		return nil, err
	}
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	player.Name = input.Name
	player.Email = input.Email
	player.Phone = input.Phone
	player.Rating = input.Rating
	if err := s.playerRepo.Update(ctx, player); err != nil {
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "player updated", slog.Int("player_id", id))
	return player, nil
}

func (s *playerService) DeletePlayer(ctx context.Context, id int) error {
	if err := s.playerRepo.Delete(ctx, id); err != nil {
		return handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "player deleted", slog.Int("player_id", id))
	return nil
}
