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
	ErrTournamentPlayerNotFound = errors.New("player is not enrolled in this tournament")
	ErrTournamentPlayerConflict = errors.New("player is already enrolled in this tournament")
	ErrTournamentPlayerInvalid  = errors.New("tournament or player reference is invalid")
)

type TournamentPlayerFilter struct {
	GroupID    *int
	Eliminated *bool
	// Ranked orders by points desc, tiebreak desc, player id asc; otherwise by player id.
	Ranked bool
}

type TournamentPlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tp *models.TournamentPlayer) error
	Get(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) (*models.TournamentPlayer, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter TournamentPlayerFilter) ([]*models.TournamentPlayer, error)
	Update(ctx context.Context, exec SQLExecutor, tp *models.TournamentPlayer) error
	Delete(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) error
}

type postgresTournamentPlayerRepository struct {
	db *sql.DB
}

func NewPostgresTournamentPlayerRepository(db *sql.DB) TournamentPlayerRepository {
	return &postgresTournamentPlayerRepository{db: db}
}

func (r *postgresTournamentPlayerRepository) Create(ctx context.Context, exec SQLExecutor, tp *models.TournamentPlayer) error {
	query := `
		INSERT INTO tournament_players (tournament_id, player_id, group_id, seed, points, tiebreak_score, eliminated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := executor(r.db, exec).QueryRowContext(ctx, query,
		tp.TournamentID, tp.PlayerID, tp.GroupID, tp.Seed, tp.Points, tp.TiebreakScore, tp.Eliminated,
	).Scan(&tp.ID)
	return r.handleTournamentPlayerError(err)
}

// joined with players so that the nested Player is always populated
const tournamentPlayerSelect = `
	SELECT tp.id, tp.tournament_id, tp.player_id, tp.group_id, tp.seed, tp.points, tp.tiebreak_score, tp.eliminated,
	       p.id, p.name, p.email, p.phone, p.rating, p.access_code, p.created_at
	FROM tournament_players tp
	JOIN players p ON p.id = tp.player_id`

func (r *postgresTournamentPlayerRepository) scanTournamentPlayer(row rowScanner) (*models.TournamentPlayer, error) {
	var tp models.TournamentPlayer
	var p models.Player
	err := row.Scan(
		&tp.ID, &tp.TournamentID, &tp.PlayerID, &tp.GroupID, &tp.Seed, &tp.Points, &tp.TiebreakScore, &tp.Eliminated,
		&p.ID, &p.Name, &p.Email, &p.Phone, &p.Rating, &p.AccessCode, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentPlayerNotFound
		}
		return nil, err
	}
	tp.Player = &p
	return &tp, nil
}

func (r *postgresTournamentPlayerRepository) Get(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) (*models.TournamentPlayer, error) {
	query := tournamentPlayerSelect + ` WHERE tp.tournament_id = $1 AND tp.player_id = $2`
	return r.scanTournamentPlayer(executor(r.db, exec).QueryRowContext(ctx, query, tournamentID, playerID))
}

func (r *postgresTournamentPlayerRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, filter TournamentPlayerFilter) ([]*models.TournamentPlayer, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(tournamentPlayerSelect)
	queryBuilder.WriteString(" WHERE tp.tournament_id = $1")

	args := []interface{}{tournamentID}
	if filter.GroupID != nil {
		args = append(args, *filter.GroupID)
		queryBuilder.WriteString(" AND tp.group_id = $" + strconv.Itoa(len(args)))
	}
	if filter.Eliminated != nil {
		args = append(args, *filter.Eliminated)
		queryBuilder.WriteString(" AND tp.eliminated = $" + strconv.Itoa(len(args)))
	}
	if filter.Ranked {
		queryBuilder.WriteString(" ORDER BY tp.points DESC, tp.tiebreak_score DESC, tp.player_id ASC")
	} else {
		queryBuilder.WriteString(" ORDER BY tp.player_id ASC")
	}

	rows, err := executor(r.db, exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	players := make([]*models.TournamentPlayer, 0)
	for rows.Next() {
		tp, scanErr := r.scanTournamentPlayer(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament player row: %w", scanErr)
		}
		players = append(players, tp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresTournamentPlayerRepository) Update(ctx context.Context, exec SQLExecutor, tp *models.TournamentPlayer) error {
	query := `
		UPDATE tournament_players SET
			group_id = $1, seed = $2, points = $3, tiebreak_score = $4, eliminated = $5
		WHERE tournament_id = $6 AND player_id = $7`
	result, err := executor(r.db, exec).ExecContext(ctx, query,
		tp.GroupID, tp.Seed, tp.Points, tp.TiebreakScore, tp.Eliminated, tp.TournamentID, tp.PlayerID,
	)
	if err != nil {
		return r.handleTournamentPlayerError(err)
	}
	return checkAffectedRows(result, ErrTournamentPlayerNotFound)
}

func (r *postgresTournamentPlayerRepository) Delete(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) error {
	query := `DELETE FROM tournament_players WHERE tournament_id = $1 AND player_id = $2`
	result, err := executor(r.db, exec).ExecContext(ctx, query, tournamentID, playerID)
	if err != nil {
		return fmt.Errorf("failed to remove player %d from tournament %d: %w", playerID, tournamentID, err)
	}
	return checkAffectedRows(result, ErrTournamentPlayerNotFound)
}

func (r *postgresTournamentPlayerRepository) handleTournamentPlayerError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "unique_tournament_player" {
				return ErrTournamentPlayerConflict
			}
		case "23503": // foreign_key_violation
			return ErrTournamentPlayerInvalid
		}
	}
	return err
}
