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
	"golang.org/x/crypto/bcrypt"
)

// Identity is the authenticated principal; Role is fixed at login.
type Identity struct {
	UserID int             `json:"user_id"`
	Role   models.UserRole `json:"role"`
	Name   string          `json:"name"`
}

type AuthService interface {
	LoginAdmin(ctx context.Context, creds models.Credentials) (*Identity, error)
	LoginPlayer(ctx context.Context, accessCode string) (*Identity, error)
	// EnsureAdmin creates the bootstrap admin when no admin exists yet.
	EnsureAdmin(ctx context.Context, username, email, password string) error
}

type authService struct {
	adminRepo  repositories.AdminRepository
	playerRepo repositories.PlayerRepository
	logger     *slog.Logger
}

func NewAuthService(adminRepo repositories.AdminRepository, playerRepo repositories.PlayerRepository, logger *slog.Logger) AuthService {
	return &authService{
		adminRepo:  adminRepo,
		playerRepo: playerRepo,
		logger:     logger,
	}
}

func (s *authService) LoginAdmin(ctx context.Context, creds models.Credentials) (*Identity, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, strings.TrimSpace(creds.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrAdminNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(creds.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	return &Identity{UserID: admin.ID, Role: models.RoleAdmin, Name: admin.Username}, nil
}

func (s *authService) LoginPlayer(ctx context.Context, accessCode string) (*Identity, error) {
	code := strings.ToUpper(strings.TrimSpace(accessCode))
	if code == "" {
		return nil, ErrAuthInvalidAccessCode
	}
	player, err := s.playerRepo.GetByAccessCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrAuthInvalidAccessCode
		}
		return nil, fmt.Errorf("failed to find player by access code: %w", err)
	}
	return &Identity{UserID: player.ID, Role: models.RolePlayer, Name: player.Name}, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	count, err := s.adminRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if username == "" || password == "" {
		s.logger.WarnContext(ctx, "no admin account exists and no bootstrap credentials are configured")
		return nil
	}
	if len(password) < utils.MinPasswordLength {
		return fmt.Errorf("%w: bootstrap admin password is shorter than %d characters", ErrValidationFailed, utils.MinPasswordLength)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := &models.Admin{Username: username, Email: email, PasswordHash: hash}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrAdminConflict) {
			return nil
		}
		return err
	}
	s.logger.InfoContext(ctx, "bootstrap admin created", slog.String("username", username))
	return nil
}
