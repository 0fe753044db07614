package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/chess-tournament/brackets"
	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/repositories"
)

func (s *progressionService) SelectQualifiers(ctx context.Context, tournamentID int, selected []int) error {
	return s.mutate(ctx, tournamentID, func(exec repositories.SQLExecutor, t *models.Tournament) error {
		switch t.Status {
		case models.StatusGroupStage:
		case models.StatusKnockoutStage, models.StatusCompleted:
			return ErrAlreadySelected
		default:
			return requireStatus(t, models.StatusGroupStage)
		}

		enrolled, err := s.playerRepo.ListByTournament(ctx, exec, t.ID, repositories.TournamentPlayerFilter{})
		if err != nil {
			return fmt.Errorf("failed to list enrolled players: %w", err)
		}

		var qualifiers map[int]bool
		mode := "manual"
		if selected == nil {
			mode = "automatic"
			qualifiers, err = s.automaticQualifiers(ctx, exec, t)
		} else {
			qualifiers, err = manualQualifiers(t, enrolled, selected)
		}
		if err != nil {
			return err
		}
		if len(qualifiers) != t.KnockoutPlayers {
			return fmt.Errorf("%w: selected %d, knockout needs %d", ErrWrongQualifierCount, len(qualifiers), t.KnockoutPlayers)
		}

		for _, tp := range enrolled {
			tp.Eliminated = !qualifiers[tp.PlayerID]
			if err := s.playerRepo.Update(ctx, exec, tp); err != nil {
				return fmt.Errorf("failed to update player %d: %w", tp.PlayerID, err)
			}
		}

		t.Status = models.StatusKnockoutStage
		if err := s.tournamentRepo.Update(ctx, exec, t); err != nil {
			return handleRepositoryError(err)
		}

		s.logger.InfoContext(ctx, "knockout qualifiers selected",
			slog.Int("tournament_id", t.ID),
			slog.String("mode", mode),
			slog.Int("qualifiers", len(qualifiers)))
		return nil
	})
}

func manualQualifiers(t *models.Tournament, enrolled []*models.TournamentPlayer, selected []int) (map[int]bool, error) {
	if len(selected) != t.KnockoutPlayers {
		return nil, fmt.Errorf("%w: must select exactly %d players, got %d", ErrWrongQualifierCount, t.KnockoutPlayers, len(selected))
	}
	known := make(map[int]bool, len(enrolled))
	for _, tp := range enrolled {
		known[tp.PlayerID] = true
	}
	qualifiers := make(map[int]bool, len(selected))
	for _, id := range selected {
		if !known[id] {
			return nil, fmt.Errorf("%w: player %d", ErrNotEnrolled, id)
		}
		if qualifiers[id] {
			return nil, fmt.Errorf("%w: player %d", ErrDuplicateQualifier, id)
		}
		qualifiers[id] = true
	}
	return qualifiers, nil
}

// automaticQualifiers takes the top of every group by ranking; the first
// knockoutPlayers mod groupCount groups send one extra player.
func (s *progressionService) automaticQualifiers(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament) (map[int]bool, error) {
	groups, err := s.groupRepo.ListByTournament(ctx, exec, t.ID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}

	quotas := brackets.QualifierQuotas(t.KnockoutPlayers, len(groups))
	qualifiers := make(map[int]bool, t.KnockoutPlayers)
	for i, g := range groups {
		groupID := g.ID
		members, err := s.playerRepo.ListByTournament(ctx, exec, t.ID, repositories.TournamentPlayerFilter{GroupID: &groupID, Ranked: true})
		if err != nil {
			return nil, fmt.Errorf("failed to rank %s: %w", g.Name, err)
		}
		brackets.SortStandings(members)
		for j := 0; j < quotas[i] && j < len(members); j++ {
			qualifiers[members[j].PlayerID] = true
		}
	}
	return qualifiers, nil
}

func (s *progressionService) GenerateBracket(ctx context.Context, tournamentID int) error {
	return s.mutate(ctx, tournamentID, func(exec repositories.SQLExecutor, t *models.Tournament) error {
		existing, err := s.matchRepo.ListByTournament(ctx, exec, t.ID, repositories.ListMatchesFilter{Stage: repositories.StageKnockout})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrAlreadyBuilt
		}
		if err := requireStatus(t, models.StatusKnockoutStage); err != nil {
			return err
		}

		notEliminated := false
		qualified, err := s.playerRepo.ListByTournament(ctx, exec, t.ID, repositories.TournamentPlayerFilter{Eliminated: &notEliminated, Ranked: true})
		if err != nil {
			return fmt.Errorf("failed to list qualifiers: %w", err)
		}
		if len(qualified) != t.KnockoutPlayers {
			return fmt.Errorf("%w: have %d qualifiers, knockout needs %d", ErrWrongQualifierCount, len(qualified), t.KnockoutPlayers)
		}
		brackets.SortStandings(qualified)

		for i, tp := range qualified {
			tp.Seed = intPtr(i + 1)
			if err := s.playerRepo.Update(ctx, exec, tp); err != nil {
				return fmt.Errorf("failed to save seed of player %d: %w", tp.PlayerID, err)
			}
		}

		generated, err := brackets.NewSingleEliminationGenerator().GenerateBracket(ctx, brackets.GenerateBracketParams{
			TournamentID: t.ID,
			PlayerIDs:    playerIDs(qualified),
		})
		if err != nil {
			return fmt.Errorf("failed to generate bracket structure for tournament %d: %w", t.ID, err)
		}

		// Первый проход: создаем все матчи сетки.
		type position struct{ round, order int }
		created := make(map[position]*models.Match, len(generated))
		start := t.StartDate.Add(knockoutDelay)
		board := 1
		for _, bm := range generated {
			m := &models.Match{
				TournamentID:     t.ID,
				Round:            bm.Round,
				BoardNumber:      intPtr(board),
				WhitePlayerID:    bm.WhitePlayerID,
				BlackPlayerID:    bm.BlackPlayerID,
				StartTime:        timePtr(start.Add(time.Duration(bm.Round-1) * roundInterval)),
				Status:           models.MatchStatusScheduled,
				KnockoutRound:    strPtr(bm.KnockoutRound),
				KnockoutMatchNum: intPtr(bm.OrderInRound),
			}
			if err := s.matchRepo.Create(ctx, exec, m); err != nil {
				return fmt.Errorf("failed to create knockout match R%dM%d: %w", bm.Round, bm.OrderInRound, err)
			}
			board = board%boardCount + 1
			created[position{bm.Round, bm.OrderInRound}] = m
		}

		// Второй проход: связываем матчи со следующим раундом.
		for _, bm := range generated {
			if bm.NextOrder == 0 {
				continue
			}
			m := created[position{bm.Round, bm.OrderInRound}]
			next, ok := created[position{bm.Round + 1, bm.NextOrder}]
			if !ok {
				return fmt.Errorf("%w: no match R%dM%d", brackets.ErrInconsistentBracket, bm.Round+1, bm.NextOrder)
			}
			m.NextMatchID = intPtr(next.ID)
			if err := s.matchRepo.Update(ctx, exec, m); err != nil {
				return fmt.Errorf("failed to link match %d to %d: %w", m.ID, next.ID, err)
			}
		}

		// Матчи с пропуском засчитываются сразу, победитель уходит дальше.
		byes := 0
		for _, bm := range generated {
			if !bm.IsBye {
				continue
			}
			m := created[position{bm.Round, bm.OrderInRound}]
			result := models.ResultForfeitBlack
			if m.WhitePlayerID == nil {
				result = models.ResultForfeitWhite
			}
			m.ApplyResult(result)
			m.Notes = strPtr("bye")
			if err := s.matchRepo.Update(ctx, exec, m); err != nil {
				return fmt.Errorf("failed to record bye in match %d: %w", m.ID, err)
			}
			if err := s.advance(ctx, exec, t, m); err != nil {
				return fmt.Errorf("failed to advance bye winner of match %d: %w", m.ID, err)
			}
			byes++
		}

		s.logger.InfoContext(ctx, "knockout bracket generated",
			slog.Int("tournament_id", t.ID),
			slog.Int("qualifiers", len(qualified)),
			slog.Int("matches", len(generated)),
			slog.Int("byes", byes))
		return nil
	})
}
