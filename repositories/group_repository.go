package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/lib/pq"
)

var ErrGroupNameConflict = errors.New("group name already exists in this tournament")

type GroupRepository interface {
	Create(ctx context.Context, exec SQLExecutor, group *models.Group) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Group, error)
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, group *models.Group) error {
	query := `INSERT INTO groups (tournament_id, name) VALUES ($1, $2) RETURNING id`
	err := executor(r.db, exec).QueryRowContext(ctx, query, group.TournamentID, group.Name).Scan(&group.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == "unique_tournament_group" {
			return ErrGroupNameConflict
		}
		return fmt.Errorf("failed to create group %q: %w", group.Name, err)
	}
	return nil
}

// ListByTournament returns groups in creation order.
func (r *postgresGroupRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Group, error) {
	rows, err := executor(r.db, exec).QueryContext(ctx,
		`SELECT id, tournament_id, name FROM groups WHERE tournament_id = $1 ORDER BY id ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups of tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	groups := make([]*models.Group, 0)
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.TournamentID, &g.Name); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}
