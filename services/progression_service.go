package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Dosada05/chess-tournament/brackets"
	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/repositories"
)

const (
	boardCount    = 10
	roundInterval = time.Hour
	// knockout starts the day after the tournament start date
	knockoutDelay = 24 * time.Hour
)

// ProgressionService drives a tournament from groups to the final.
// Every call runs under the per-tournament lock inside one transaction.
type ProgressionService interface {
	PartitionGroups(ctx context.Context, tournamentID int) error
	GenerateGroupMatches(ctx context.Context, tournamentID int) error
	RecomputeStandings(ctx context.Context, tournamentID int) error
	// SelectQualifiers picks the knockout field; nil playerIDs means automatic selection.
	SelectQualifiers(ctx context.Context, tournamentID int, playerIDs []int) error
	GenerateBracket(ctx context.Context, tournamentID int) error
	AdvanceWinner(ctx context.Context, matchID int) error
	// RecoverAdvancements re-runs advancement for completed knockout matches
	// whose winner never reached the next match. Returns how many were advanced.
	RecoverAdvancements(ctx context.Context, tournamentID int) (int, error)
	CompleteTournament(ctx context.Context, tournamentID int) error

	lock(tournamentID int) func()
	applyCompletedMatch(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, m *models.Match) error
	reapplyCompletedMatch(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, m *models.Match, previousWinner *int) error
	recomputeGroup(ctx context.Context, exec repositories.SQLExecutor, tournamentID, groupID int) error
}

type progressionService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	groupRepo      repositories.GroupRepository
	playerRepo     repositories.TournamentPlayerRepository
	matchRepo      repositories.MatchRepository
	archiver       Archiver
	logger         *slog.Logger

	locks   *tournamentLocker
	shuffle brackets.Shuffler
	now     func() time.Time
}

// NewProgressionService; archiver may be nil when object storage is not configured.
func NewProgressionService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	groupRepo repositories.GroupRepository,
	playerRepo repositories.TournamentPlayerRepository,
	matchRepo repositories.MatchRepository,
	archiver Archiver,
	logger *slog.Logger,
) ProgressionService {
	return &progressionService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		groupRepo:      groupRepo,
		playerRepo:     playerRepo,
		matchRepo:      matchRepo,
		archiver:       archiver,
		logger:         logger,
		locks:          newTournamentLocker(),
		shuffle:        rand.Shuffle,
		now:            time.Now,
	}
}

func (s *progressionService) lock(tournamentID int) func() {
	return s.locks.Lock(tournamentID)
}

// mutate locks the tournament in process and in the database, then runs fn in one transaction.
func (s *progressionService) mutate(ctx context.Context, tournamentID int, fn func(exec repositories.SQLExecutor, t *models.Tournament) error) error {
	unlock := s.lock(tournamentID)
	defer unlock()

	return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return handleRepositoryError(err)
		}
		return fn(exec, t)
	})
}

func (s *progressionService) PartitionGroups(ctx context.Context, tournamentID int) error {
	return s.mutate(ctx, tournamentID, func(exec repositories.SQLExecutor, t *models.Tournament) error {
		existing, err := s.groupRepo.ListByTournament(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrAlreadyPartitioned
		}
		if err := requireStatus(t, models.StatusDraft); err != nil {
			return err
		}

		enrolled, err := s.playerRepo.ListByTournament(ctx, exec, t.ID, repositories.TournamentPlayerFilter{})
		if err != nil {
			return fmt.Errorf("failed to list enrolled players: %w", err)
		}
		if len(enrolled) < t.GroupCount {
			return fmt.Errorf("%w: need at least %d, have %d", ErrInsufficientPlayers, t.GroupCount, len(enrolled))
		}

		assignment, err := brackets.AssignGroups(playerIDs(enrolled), t.GroupCount, s.shuffle)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInsufficientPlayers, err)
		}

		byPlayer := make(map[int]*models.TournamentPlayer, len(enrolled))
		for _, tp := range enrolled {
			byPlayer[tp.PlayerID] = tp
		}

		for i, members := range assignment {
			group := &models.Group{TournamentID: t.ID, Name: brackets.GroupName(i)}
			if err := s.groupRepo.Create(ctx, exec, group); err != nil {
				return fmt.Errorf("failed to create %s: %w", group.Name, err)
			}
			for _, playerID := range members {
				tp := byPlayer[playerID]
				tp.GroupID = intPtr(group.ID)
				if err := s.playerRepo.Update(ctx, exec, tp); err != nil {
					return fmt.Errorf("failed to assign player %d to %s: %w", playerID, group.Name, err)
				}
			}
		}

		t.Status = models.StatusGroupStage
		if err := s.tournamentRepo.Update(ctx, exec, t); err != nil {
			return handleRepositoryError(err)
		}

		s.logger.InfoContext(ctx, "groups created",
			slog.Int("tournament_id", t.ID),
			slog.Int("groups", len(assignment)),
			slog.Int("players", len(enrolled)))
		return nil
	})
}

func (s *progressionService) GenerateGroupMatches(ctx context.Context, tournamentID int) error {
	return s.mutate(ctx, tournamentID, func(exec repositories.SQLExecutor, t *models.Tournament) error {
		groups, err := s.groupRepo.ListByTournament(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			return ErrNoGroups
		}
		existing, err := s.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.ListMatchesFilter{Stage: repositories.StageGroup})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrAlreadyScheduled
		}
		if err := requireStatus(t, models.StatusGroupStage); err != nil {
			return err
		}

		generator := brackets.NewRoundRobinGenerator()
		// the clock and the board counter run on across groups
		startTime := t.StartDate
		board := 1
		created := 0

		for _, group := range groups {
			groupID := group.ID
			members, err := s.playerRepo.ListByTournament(ctx, exec, t.ID, repositories.TournamentPlayerFilter{GroupID: &groupID})
			if err != nil {
				return fmt.Errorf("failed to list members of %s: %w", group.Name, err)
			}
			if len(members) < 2 {
				s.logger.WarnContext(ctx, "group skipped, not enough players",
					slog.Int("tournament_id", t.ID), slog.Int("group_id", group.ID), slog.Int("players", len(members)))
				continue
			}

			pairings, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
				TournamentID: t.ID,
				PlayerIDs:    playerIDs(members),
			})
			if err != nil {
				return fmt.Errorf("failed to generate round robin for %s: %w", group.Name, err)
			}

			rounds := 0
			for _, p := range pairings {
				match := &models.Match{
					TournamentID:  t.ID,
					GroupID:       intPtr(group.ID),
					Round:         p.Round,
					BoardNumber:   intPtr(board),
					WhitePlayerID: p.WhitePlayerID,
					BlackPlayerID: p.BlackPlayerID,
					StartTime:     timePtr(startTime.Add(time.Duration(p.Round-1) * roundInterval)),
					Status:        models.MatchStatusScheduled,
				}
				if err := s.matchRepo.Create(ctx, exec, match); err != nil {
					return fmt.Errorf("failed to create group match: %w", err)
				}
				board = board%boardCount + 1
				rounds = max(rounds, p.Round)
				created++
			}
			startTime = startTime.Add(time.Duration(rounds) * roundInterval)
		}

		s.logger.InfoContext(ctx, "group matches generated",
			slog.Int("tournament_id", t.ID), slog.Int("matches", created), slog.String("format", generator.GetName()))
		return nil
	})
}

func (s *progressionService) RecomputeStandings(ctx context.Context, tournamentID int) error {
	return s.mutate(ctx, tournamentID, func(exec repositories.SQLExecutor, t *models.Tournament) error {
		groups, err := s.groupRepo.ListByTournament(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		if len(groups) == 0 {
			return ErrNoGroups
		}
		for _, g := range groups {
			if err := s.recomputeGroup(ctx, exec, t.ID, g.ID); err != nil {
				return err
			}
		}
		s.logger.InfoContext(ctx, "standings recomputed",
			slog.Int("tournament_id", t.ID), slog.Int("groups", len(groups)))
		return nil
	})
}

func (s *progressionService) recomputeGroup(ctx context.Context, exec repositories.SQLExecutor, tournamentID, groupID int) error {
	members, err := s.playerRepo.ListByTournament(ctx, exec, tournamentID, repositories.TournamentPlayerFilter{GroupID: &groupID})
	if err != nil {
		return fmt.Errorf("failed to list members of group %d: %w", groupID, err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, exec, tournamentID, repositories.ListMatchesFilter{
		Stage:    repositories.StageGroup,
		GroupID:  &groupID,
		Statuses: []models.MatchStatus{models.MatchStatusCompleted},
	})
	if err != nil {
		return fmt.Errorf("failed to list matches of group %d: %w", groupID, err)
	}

	brackets.ComputeStandings(members, matches)

	for _, tp := range members {
		if err := s.playerRepo.Update(ctx, exec, tp); err != nil {
			return fmt.Errorf("failed to save standing of player %d: %w", tp.PlayerID, err)
		}
	}
	return nil
}

// applyCompletedMatch is the follow-up of a stored result in the same transaction:
// group results refresh their group standings, knockout results advance the winner.
func (s *progressionService) applyCompletedMatch(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, m *models.Match) error {
	if m.GroupID != nil {
		return s.recomputeGroup(ctx, exec, t.ID, *m.GroupID)
	}
	if !m.IsKnockout() {
		return nil
	}
	winner := m.WinnerID()
	if winner == nil {
		return ErrNoWinner
	}
	err := s.advance(ctx, exec, t, m)
	if errors.Is(err, errNoNextMatch) {
		s.logger.InfoContext(ctx, "final decided",
			slog.Int("tournament_id", t.ID), slog.Int("match_id", m.ID), slog.Int("winner_id", *winner))
		return nil
	}
	return err
}

// reapplyCompletedMatch follows up a corrected result. A knockout winner that
// changed is taken back out of the next match before the new one advances.
func (s *progressionService) reapplyCompletedMatch(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, m *models.Match, previousWinner *int) error {
	if m.IsKnockout() && previousWinner != nil {
		if winner := m.WinnerID(); winner == nil || *winner != *previousWinner {
			if err := s.withdraw(ctx, exec, t, m, *previousWinner); err != nil {
				return err
			}
		}
	}
	err := s.applyCompletedMatch(ctx, exec, t, m)
	if errors.Is(err, ErrAlreadyAdvanced) {
		return nil
	}
	return err
}
