package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/storage"
)

// Archiver stores the final report of a completed tournament.
type Archiver interface {
	ArchiveTournament(ctx context.Context, tournamentID int) error
}

type TournamentReport struct {
	Tournament *models.Tournament `json:"tournament"`
	Bracket    *BracketView       `json:"bracket"`
	ChampionID *int               `json:"champion_id,omitempty"`
	ArchivedAt time.Time          `json:"archived_at"`
}

type archiveService struct {
	tournaments TournamentService
	uploader    storage.FileUploader
	logger      *slog.Logger
	now         func() time.Time
}

func NewArchiveService(tournaments TournamentService, uploader storage.FileUploader, logger *slog.Logger) Archiver {
	return &archiveService{
		tournaments: tournaments,
		uploader:    uploader,
		logger:      logger,
		now:         time.Now,
	}
}

func archiveKey(tournamentID int) string {
	return fmt.Sprintf("tournaments/%d/final.json", tournamentID)
}

func (s *archiveService) ArchiveTournament(ctx context.Context, tournamentID int) error {
	overview, err := s.tournaments.GetTournamentOverview(ctx, tournamentID)
	if err != nil {
		return err
	}
	bracket, err := s.tournaments.GetBracket(ctx, tournamentID)
	if err != nil {
		return err
	}

	report := TournamentReport{
		Tournament: overview,
		Bracket:    bracket,
		ChampionID: bracket.ChampionID,
		ArchivedAt: s.now().UTC(),
	}
	body, err := json.MarshalIndent(report, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to encode tournament report: %w", err)
	}

	result, err := s.uploader.Upload(ctx, archiveKey(tournamentID), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "tournament archived",
		slog.Int("tournament_id", tournamentID),
		slog.String("key", result.Key),
		slog.String("location", result.Location),
		slog.String("public_url", s.uploader.GetPublicURL(result.Key)))
	return nil
}
