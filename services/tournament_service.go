package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/chess-tournament/brackets"
	"github.com/Dosada05/chess-tournament/models"
	"github.com/Dosada05/chess-tournament/repositories"
	"golang.org/x/sync/errgroup"
)

type CreateTournamentInput struct {
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	Location        *string   `json:"location"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	GroupCount      int       `json:"group_count"`
	PlayersPerGroup int       `json:"players_per_group"`
	KnockoutPlayers int       `json:"knockout_players"`
}

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

// BracketRoundView is one column of the knockout tree.
type BracketRoundView struct {
	Round   int            `json:"round"`
	Name    string         `json:"name"`
	Matches []models.Match `json:"matches"`
}

type BracketView struct {
	TournamentID int                `json:"tournament_id"`
	Rounds       []BracketRoundView `json:"rounds"`
	ChampionID   *int               `json:"champion_id,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error)
	// UpdateTournament replaces the editable fields of a Draft tournament.
	UpdateTournament(ctx context.Context, id int, input CreateTournamentInput) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error
	// GetTournamentOverview returns the tournament with groups, ranked standings and all matches.
	GetTournamentOverview(ctx context.Context, id int) (*models.Tournament, error)
	GetBracket(ctx context.Context, id int) (*BracketView, error)
}

type tournamentService struct {
	tx             repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	groupRepo      repositories.GroupRepository
	playerRepo     repositories.TournamentPlayerRepository
	matchRepo      repositories.MatchRepository
	logger         *slog.Logger
}

func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	groupRepo repositories.GroupRepository,
	playerRepo repositories.TournamentPlayerRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		groupRepo:      groupRepo,
		playerRepo:     playerRepo,
		matchRepo:      matchRepo,
		logger:         logger,
	}
}

func validateTournamentInput(input *CreateTournamentInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if input.GroupCount < 1 {
		return fmt.Errorf("%w: group_count must be at least 1", ErrValidationFailed)
	}
	if input.KnockoutPlayers < 2 {
		return fmt.Errorf("%w: knockout_players must be at least 2", ErrValidationFailed)
	}
	if input.PlayersPerGroup < 0 {
		return fmt.Errorf("%w: players_per_group must not be negative", ErrValidationFailed)
	}
	return validateTournamentDates(input.StartDate, input.EndDate)
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(&input); err != nil {
		return nil, err
	}

	t := &models.Tournament{
		Name:            input.Name,
		Description:     input.Description,
		Location:        input.Location,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		Status:          models.StatusDraft,
		GroupCount:      input.GroupCount,
		PlayersPerGroup: input.PlayersPerGroup,
		KnockoutPlayers: input.KnockoutPlayers,
	}
	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	s.logger.InfoContext(ctx, "tournament created", slog.Int("tournament_id", t.ID), slog.String("name", t.Name))
	return t, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidationFailed, *filter.Status)
	}
	return s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

func (s *tournamentService) UpdateTournament(ctx context.Context, id int, input CreateTournamentInput) (*models.Tournament, error) {
	if err := validateTournamentInput(&input); err != nil {
		return nil, err
	}

	var updated *models.Tournament
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, id)
		if err != nil {
			return handleRepositoryError(err)
		}
		// group count and knockout size are consumed by the later stages
		if err := requireStatus(t, models.StatusDraft); err != nil {
			return err
		}
		t.Name = input.Name
		t.Description = input.Description
		t.Location = input.Location
		t.StartDate = input.StartDate
		t.EndDate = input.EndDate
		t.GroupCount = input.GroupCount
		t.PlayersPerGroup = input.PlayersPerGroup
		t.KnockoutPlayers = input.KnockoutPlayers
		if err := s.tournamentRepo.Update(ctx, exec, t); err != nil {
			return handleRepositoryError(err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "tournament updated", slog.Int("tournament_id", id))
	return updated, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id int) error {
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "tournament deleted", slog.Int("tournament_id", id))
	return nil
}

func (s *tournamentService) GetTournamentOverview(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		groups  []*models.Group
		players []*models.TournamentPlayer
		matches []*models.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		groups, err = s.groupRepo.ListByTournament(gctx, nil, id)
		return err
	})
	g.Go(func() error {
		var err error
		players, err = s.playerRepo.ListByTournament(gctx, nil, id, repositories.TournamentPlayerFilter{Ranked: true})
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, nil, id, repositories.ListMatchesFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament %d overview: %w", id, err)
	}

	brackets.SortStandings(players)
	byGroup := make(map[int][]models.TournamentPlayer, len(groups))
	for _, tp := range players {
		if tp.GroupID != nil {
			byGroup[*tp.GroupID] = append(byGroup[*tp.GroupID], *tp)
		}
	}

	t.Groups = make([]models.Group, 0, len(groups))
	for _, grp := range groups {
		grp.Standings = byGroup[grp.ID]
		if grp.Standings == nil {
			grp.Standings = []models.TournamentPlayer{}
		}
		t.Groups = append(t.Groups, *grp)
	}
	t.Players = dereferencePlayers(players)
	t.Matches = dereferenceMatches(matches)
	return t, nil
}

func (s *tournamentService) GetBracket(ctx context.Context, id int) (*BracketView, error) {
	if _, err := s.GetTournamentByID(ctx, id); err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, id, repositories.ListMatchesFilter{Stage: repositories.StageKnockout})
	if err != nil {
		return nil, err
	}
	bracket, err := brackets.FromMatches(matches)
	if err != nil {
		return nil, err
	}

	view := &BracketView{TournamentID: id, Rounds: make([]BracketRoundView, 0, len(bracket.Rounds))}
	for i, nodes := range bracket.Rounds {
		round := BracketRoundView{Round: i + 1, Matches: make([]models.Match, 0, len(nodes))}
		for _, n := range nodes {
			round.Matches = append(round.Matches, *n.Match)
			if n.Match.KnockoutRound != nil {
				round.Name = *n.Match.KnockoutRound
			}
		}
		view.Rounds = append(view.Rounds, round)
	}
	if last := bracket.Last(); len(last) == 1 && last[0].Match.IsRound(models.KnockoutFinal) {
		view.ChampionID = last[0].Match.WinnerID()
	}
	return view, nil
}
