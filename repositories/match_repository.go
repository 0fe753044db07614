package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchPlayerInvalid     = errors.New("match player conflict or invalid")
	ErrMatchNextMatchInvalid  = errors.New("match next match reference invalid")
)

type MatchStage int

const (
	StageAny MatchStage = iota
	StageGroup
	StageKnockout
)

type ListMatchesFilter struct {
	Stage         MatchStage
	GroupID       *int
	Statuses      []models.MatchStatus
	KnockoutRound *string
	// PlayerID matches either colour.
	PlayerID *int
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter ListMatchesFilter) ([]*models.Match, error)
	ListByPlayer(ctx context.Context, playerID int) ([]*models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	CountNonTerminal(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	DeleteByPlayer(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) (int64, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, group_id, round, board_number, white_player_id, black_player_id,
	start_time, status, result, white_score, black_score, notes,
	knockout_round, knockout_match_num, next_match_id, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		INSERT INTO matches
			(tournament_id, group_id, round, board_number, white_player_id, black_player_id,
			 start_time, status, result, white_score, black_score, notes,
			 knockout_round, knockout_match_num, next_match_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`

	err := executor(r.db, exec).QueryRowContext(ctx, query,
		m.TournamentID, m.GroupID, m.Round, m.BoardNumber, m.WhitePlayerID, m.BlackPlayerID,
		m.StartTime, m.Status, m.Result, m.WhiteScore, m.BlackScore, m.Notes,
		m.KnockoutRound, m.KnockoutMatchNum, m.NextMatchID,
	).Scan(&m.ID, &m.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) scanMatch(row rowScanner) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.GroupID, &m.Round, &m.BoardNumber, &m.WhitePlayerID, &m.BlackPlayerID,
		&m.StartTime, &m.Status, &m.Result, &m.WhiteScore, &m.BlackScore, &m.Notes,
		&m.KnockoutRound, &m.KnockoutMatchNum, &m.NextMatchID, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m, err := r.scanMatch(executor(r.db, exec).QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrMatchNotFound) {
		return nil, fmt.Errorf("failed to scan match by id %d: %w", id, err)
	}
	return m, err
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter ListMatchesFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholder := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	switch filter.Stage {
	case StageGroup:
		queryBuilder.WriteString(" AND group_id IS NOT NULL")
	case StageKnockout:
		queryBuilder.WriteString(" AND group_id IS NULL AND knockout_round IS NOT NULL")
	}
	if filter.GroupID != nil {
		queryBuilder.WriteString(" AND group_id = " + placeholder(*filter.GroupID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		queryBuilder.WriteString(" AND status = ANY(" + placeholder(pq.Array(statuses)) + ")")
	}
	if filter.KnockoutRound != nil {
		queryBuilder.WriteString(" AND knockout_round = " + placeholder(*filter.KnockoutRound))
	}
	if filter.PlayerID != nil {
		p := placeholder(*filter.PlayerID)
		queryBuilder.WriteString(" AND (white_player_id = " + p + " OR black_player_id = " + p + ")")
	}

	queryBuilder.WriteString(" ORDER BY round ASC, knockout_match_num ASC NULLS LAST, id ASC")

	return r.queryMatches(ctx, executor(r.db, exec), queryBuilder.String(), args...)
}

func (r *postgresMatchRepository) ListByPlayer(ctx context.Context, playerID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches
		WHERE white_player_id = $1 OR black_player_id = $1
		ORDER BY start_time ASC NULLS LAST, id ASC`
	return r.queryMatches(ctx, r.db, query, playerID)
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

// Update overwrites every mutable column of the match.
func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	query := `
		UPDATE matches SET
			board_number = $1, white_player_id = $2, black_player_id = $3, start_time = $4,
			status = $5, result = $6, white_score = $7, black_score = $8, notes = $9,
			knockout_round = $10, knockout_match_num = $11, next_match_id = $12
		WHERE id = $13`

	result, err := executor(r.db, exec).ExecContext(ctx, query,
		m.BoardNumber, m.WhitePlayerID, m.BlackPlayerID, m.StartTime,
		m.Status, m.Result, m.WhiteScore, m.BlackScore, m.Notes,
		m.KnockoutRound, m.KnockoutMatchNum, m.NextMatchID, m.ID,
	)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountNonTerminal(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	query := `SELECT COUNT(*) FROM matches WHERE tournament_id = $1 AND status NOT IN ('completed', 'cancelled')`
	var n int
	if err := executor(r.db, exec).QueryRowContext(ctx, query, tournamentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count open matches of tournament %d: %w", tournamentID, err)
	}
	return n, nil
}

func (r *postgresMatchRepository) DeleteByPlayer(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) (int64, error) {
	query := `DELETE FROM matches WHERE tournament_id = $1 AND (white_player_id = $2 OR black_player_id = $2)`
	result, err := executor(r.db, exec).ExecContext(ctx, query, tournamentID, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete matches of player %d: %w", playerID, err)
	}
	return result.RowsAffected()
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_white_player_id_fkey", "matches_black_player_id_fkey":
			return ErrMatchPlayerInvalid
		case "matches_next_match_id_fkey":
			return ErrMatchNextMatchInvalid
		}
	}
	return err
}
