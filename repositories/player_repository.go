package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/chess-tournament/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound           = errors.New("player not found")
	ErrPlayerAccessCodeConflict = errors.New("player access code conflict")
	ErrPlayerInActiveTournament = errors.New("player is enrolled in a running tournament")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	GetByAccessCode(ctx context.Context, code string) (*models.Player, error)
	List(ctx context.Context) ([]*models.Player, error)
	Update(ctx context.Context, player *models.Player) error
	// Delete refuses players enrolled in a tournament in the group or knockout stage.
	Delete(ctx context.Context, id int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `id, name, email, phone, rating, access_code, created_at`

func (r *postgresPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (name, email, phone, rating, access_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		player.Name, player.Email, player.Phone, player.Rating, player.AccessCode,
	).Scan(&player.ID, &player.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "players_access_code_key" {
			return ErrPlayerAccessCodeConflict
		}
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (r *postgresPlayerRepository) scanPlayer(row rowScanner) (*models.Player, error) {
	var p models.Player
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Rating, &p.AccessCode, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	return r.scanPlayer(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerRepository) GetByAccessCode(ctx context.Context, code string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE access_code = $1`
	return r.scanPlayer(r.db.QueryRowContext(ctx, query, code))
}

func (r *postgresPlayerRepository) List(ctx context.Context) ([]*models.Player, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+playerColumns+` FROM players ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		p, scanErr := r.scanPlayer(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *postgresPlayerRepository) Update(ctx context.Context, player *models.Player) error {
	query := `
		UPDATE players
		SET name = $1, email = $2, phone = $3, rating = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query, player.Name, player.Email, player.Phone, player.Rating, player.ID)
	if err != nil {
		return fmt.Errorf("failed to update player %d: %w", player.ID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

// Delete не трогает игроков из идущих турниров: их матчи потеряли бы участника.
func (r *postgresPlayerRepository) Delete(ctx context.Context, id int) error {
	query := `
		DELETE FROM players p
		WHERE p.id = $1
		  AND NOT EXISTS (
			SELECT 1
			FROM tournament_players tp
			JOIN tournaments t ON t.id = tp.tournament_id
			WHERE tp.player_id = p.id
			  AND t.status IN ($2, $3)
		  )`

	result, err := r.db.ExecContext(ctx, query, id, models.StatusGroupStage, models.StatusKnockoutStage)
	if err != nil {
		return fmt.Errorf("failed to delete player %d: %w", id, err)
	}
	if err := checkAffectedRows(result, ErrPlayerNotFound); err == nil {
		return nil
	} else if !errors.Is(err, ErrPlayerNotFound) {
		return err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrPlayerInActiveTournament
}
