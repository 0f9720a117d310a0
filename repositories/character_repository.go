package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/smashpoint/tournament-api/models"
)

var (
	ErrCharacterNotFound     = errors.New("character not found")
	ErrCharacterNameConflict = errors.New("character name is already in use for this game")
	ErrCharacterInUse        = errors.New("character is referenced by matches or registrations")
)

type CharacterRepository interface {
	Create(ctx context.Context, character *models.Character) error
	GetByID(ctx context.Context, id int) (*models.Character, error)
	List(ctx context.Context, game *string) ([]*models.Character, error)
	Update(ctx context.Context, character *models.Character) error
	UpdateImageKey(ctx context.Context, id int, imageKey *string) error
	Delete(ctx context.Context, id int) error
	GetUsage(ctx context.Context, id int) (*models.CharacterUsage, error)
}

type postgresCharacterRepository struct {
	db *sql.DB
}

func NewPostgresCharacterRepository(db *sql.DB) CharacterRepository {
	return &postgresCharacterRepository{db: db}
}

func (r *postgresCharacterRepository) Create(ctx context.Context, c *models.Character) error {
	query := `
		INSERT INTO characters (name, game, image_key)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query, c.Name, c.Game, c.ImageKey).Scan(&c.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrCharacterNameConflict
		}
		return fmt.Errorf("failed to create character: %w", err)
	}
	return nil
}

func (r *postgresCharacterRepository) scanCharacter(rowScanner interface{ Scan(...interface{}) error }) (*models.Character, error) {
	c := &models.Character{}
	err := rowScanner.Scan(&c.ID, &c.Name, &c.Game, &c.ImageKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresCharacterRepository) GetByID(ctx context.Context, id int) (*models.Character, error) {
	query := `SELECT id, name, game, image_key FROM characters WHERE id = $1`
	return r.scanCharacter(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresCharacterRepository) List(ctx context.Context, game *string) ([]*models.Character, error) {
	query := `SELECT id, name, game, image_key FROM characters`
	args := []interface{}{}
	if game != nil && *game != "" {
		query += ` WHERE game = $1`
		args = append(args, *game)
	}
	query += ` ORDER BY game ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	characters := make([]*models.Character, 0)
	for rows.Next() {
		c, errScan := r.scanCharacter(rows)
		if errScan != nil {
			return nil, errScan
		}
		characters = append(characters, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return characters, nil
}

func (r *postgresCharacterRepository) Update(ctx context.Context, c *models.Character) error {
	query := `UPDATE characters SET name = $1, game = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, c.Name, c.Game, c.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrCharacterNameConflict
		}
		return fmt.Errorf("failed to update character %d: %w", c.ID, err)
	}
	return checkAffectedRows(result, ErrCharacterNotFound)
}

func (r *postgresCharacterRepository) UpdateImageKey(ctx context.Context, id int, imageKey *string) error {
	query := `UPDATE characters SET image_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, imageKey, id)
	if err != nil {
		return fmt.Errorf("failed to update character image key: %w", err)
	}
	return checkAffectedRows(result, ErrCharacterNotFound)
}

func (r *postgresCharacterRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM characters WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrCharacterInUse
		}
		return fmt.Errorf("failed to delete character: %w", err)
	}
	return checkAffectedRows(result, ErrCharacterNotFound)
}

// GetUsage считает статистику персонажа по завершённым матчам:
// общее число матчей, победы и процент побед.
func (r *postgresCharacterRepository) GetUsage(ctx context.Context, id int) (*models.CharacterUsage, error) {
	query := `
		SELECT
			COUNT(*) AS total_matches,
			COUNT(*) FILTER (
				WHERE (player1_character_id = $1 AND winner_id = player1_id)
				   OR (player2_character_id = $1 AND winner_id = player2_id)
			) AS wins
		FROM matches
		WHERE status = $2
		  AND (player1_character_id = $1 OR player2_character_id = $1)`

	usage := &models.CharacterUsage{CharacterID: id}
	err := r.db.QueryRowContext(ctx, query, id, models.MatchStatusCompleted).
		Scan(&usage.TotalMatches, &usage.Wins)
	if err != nil {
		return nil, fmt.Errorf("failed to get character usage: %w", err)
	}
	if usage.TotalMatches > 0 {
		usage.WinRate = float64(usage.Wins) / float64(usage.TotalMatches) * 100
	}
	return usage, nil
}
