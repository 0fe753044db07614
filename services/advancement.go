package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/chess-tournament/brackets"
	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/repositories"
)

func (s *progressionService) AdvanceWinner(ctx context.Context, matchID int) error {
	current, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return handleRepositoryError(err)
	}

	return s.mutate(ctx, current.TournamentID, func(exec repositories.SQLExecutor, t *models.Tournament) error {
		m, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			return handleRepositoryError(err)
		}
		if !m.IsKnockout() {
			return ErrNotKnockoutMatch
		}
		if m.Status != models.MatchStatusCompleted {
			return ErrMatchNotCompleted
		}
		return s.applyCompletedMatch(ctx, exec, t, m)
	})
}

// errNoNextMatch: the match sits at the top of the bracket.
var errNoNextMatch = errors.New("match has no next match")

func slotField(target *models.Match, slot brackets.Slot) **int {
	if slot == brackets.SlotBlack {
		return &target.BlackPlayerID
	}
	return &target.WhitePlayerID
}

// advance writes the winner of m into the next match of the bracket.
// The slot is chosen by m's position in its round: even feeds white, odd feeds black.
// A filled slot is never overwritten.
func (s *progressionService) advance(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, m *models.Match) error {
	winner := m.WinnerID()
	if winner == nil {
		return ErrNoWinner
	}

	all, err := s.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.ListMatchesFilter{Stage: repositories.StageKnockout})
	if err != nil {
		return fmt.Errorf("failed to load bracket: %w", err)
	}
	bracket, err := brackets.FromMatches(all)
	if err != nil {
		return err
	}
	node, ok := bracket.Node(m.ID)
	if !ok {
		return fmt.Errorf("%w: match %d is not part of the bracket", brackets.ErrInconsistentBracket, m.ID)
	}

	var target *models.Match
	if parent := bracket.Parent(node); parent != nil {
		target = parent.Match
	} else if m.IsRound(models.KnockoutSemifinal) {
		target, err = s.createFinal(ctx, exec, t, bracket.Last())
		if err != nil {
			return err
		}
	} else {
		return errNoNextMatch
	}

	slot := node.TargetSlot()
	field := slotField(target, slot)
	if current := *field; current != nil {
		if *current == *winner {
			return fmt.Errorf("%w: player %d is already %s in match %d", ErrAlreadyAdvanced, *winner, slot, target.ID)
		}
		return fmt.Errorf("%w: %s of match %d holds player %d", ErrSlotOccupied, slot, target.ID, *current)
	}
	*field = winner

	if target.WhitePlayerID != nil && target.BlackPlayerID != nil && !target.Status.IsTerminal() {
		target.Status = models.MatchStatusScheduled
	}
	if err := s.matchRepo.Update(ctx, exec, target); err != nil {
		return fmt.Errorf("failed to update match %d: %w", target.ID, err)
	}

	s.logger.InfoContext(ctx, "winner advanced",
		slog.Int("tournament_id", t.ID),
		slog.Int("match_id", m.ID),
		slog.Int("next_match_id", target.ID),
		slog.Int("winner_id", *winner),
		slog.String("slot", slot.String()))
	return nil
}

// withdraw takes previous back out of the next match after m's result was corrected.
// Once that match has started the correction is refused.
func (s *progressionService) withdraw(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, m *models.Match, previous int) error {
	all, err := s.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.ListMatchesFilter{Stage: repositories.StageKnockout})
	if err != nil {
		return fmt.Errorf("failed to load bracket: %w", err)
	}
	bracket, err := brackets.FromMatches(all)
	if err != nil {
		return err
	}
	node, ok := bracket.Node(m.ID)
	if !ok {
		return fmt.Errorf("%w: match %d is not part of the bracket", brackets.ErrInconsistentBracket, m.ID)
	}
	parent := bracket.Parent(node)
	if parent == nil {
		return nil
	}

	target := parent.Match
	field := slotField(target, node.TargetSlot())
	if *field == nil || **field != previous {
		return nil
	}
	if target.Status != models.MatchStatusScheduled {
		return fmt.Errorf("%w: match %d is %s", ErrResultLocked, target.ID, target.Status)
	}
	*field = nil
	if err := s.matchRepo.Update(ctx, exec, target); err != nil {
		return fmt.Errorf("failed to update match %d: %w", target.ID, err)
	}
	s.logger.InfoContext(ctx, "advancement withdrawn",
		slog.Int("tournament_id", t.ID),
		slog.Int("match_id", m.ID),
		slog.Int("next_match_id", target.ID),
		slog.Int("player_id", previous))
	return nil
}

// createFinal adds the final above the semifinals when the bracket lacks one.
func (s *progressionService) createFinal(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, semifinals []*brackets.Node) (*models.Match, error) {
	first := semifinals[0].Match
	final := &models.Match{
		TournamentID:     t.ID,
		Round:            first.Round + 1,
		Status:           models.MatchStatusScheduled,
		KnockoutRound:    strPtr(models.KnockoutFinal),
		KnockoutMatchNum: intPtr(1),
	}
	if first.StartTime != nil {
		final.StartTime = timePtr(first.StartTime.Add(roundInterval))
	}
	if err := s.matchRepo.Create(ctx, exec, final); err != nil {
		return nil, fmt.Errorf("failed to create final: %w", err)
	}
	for _, n := range semifinals {
		n.Match.NextMatchID = intPtr(final.ID)
		if err := s.matchRepo.Update(ctx, exec, n.Match); err != nil {
			return nil, fmt.Errorf("failed to link semifinal %d to final: %w", n.Match.ID, err)
		}
	}
	s.logger.WarnContext(ctx, "final was missing and has been created",
		slog.Int("tournament_id", t.ID), slog.Int("match_id", final.ID))
	return final, nil
}

func (s *progressionService) RecoverAdvancements(ctx context.Context, tournamentID int) (int, error) {
	recovered := 0
	err := s.mutate(ctx, tournamentID, func(exec repositories.SQLExecutor, t *models.Tournament) error {
		recovered = 0
		completed, err := s.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.ListMatchesFilter{
			Stage:    repositories.StageKnockout,
			Statuses: []models.MatchStatus{models.MatchStatusCompleted},
		})
		if err != nil {
			return err
		}
		for _, m := range completed {
			if m.WinnerID() == nil {
				continue
			}
			err := s.advance(ctx, exec, t, m)
			switch {
			case err == nil:
				recovered++
			case errors.Is(err, ErrAlreadyAdvanced), errors.Is(err, errNoNextMatch):
			case errors.Is(err, ErrSlotOccupied):
				s.logger.WarnContext(ctx, "advancement skipped during recovery",
					slog.Int("tournament_id", t.ID), slog.Int("match_id", m.ID), slog.Any("error", err))
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "advancements recovered",
		slog.Int("tournament_id", tournamentID), slog.Int("recovered", recovered))
	return recovered, nil
}

func (s *progressionService) CompleteTournament(ctx context.Context, tournamentID int) error {
	err := s.mutate(ctx, tournamentID, func(exec repositories.SQLExecutor, t *models.Tournament) error {
		if err := requireStatus(t, models.StatusKnockoutStage); err != nil {
			return err
		}
		open, err := s.matchRepo.CountNonTerminal(ctx, exec, t.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return &IncompleteMatchesError{Count: open}
		}

		t.Status = models.StatusCompleted
		t.EndDate = s.now()
		if err := s.tournamentRepo.Update(ctx, exec, t); err != nil {
			return handleRepositoryError(err)
		}
		s.logger.InfoContext(ctx, "tournament completed", slog.Int("tournament_id", t.ID))
		return nil
	})
	if err != nil {
		return err
	}

	if s.archiver != nil {
		if archErr := s.archiver.ArchiveTournament(ctx, tournamentID); archErr != nil {
			s.logger.ErrorContext(ctx, "failed to archive completed tournament",
				slog.Int("tournament_id", tournamentID), slog.Any("error", archErr))
		}
	}
	return nil
}
