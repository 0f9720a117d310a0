package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/smashpoint/tournament-api/models"
)

var (
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationConflict          = errors.New("registration conflict: user already registered for this tournament")
	ErrRegistrationUserInvalid       = errors.New("registration user conflict or invalid")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament conflict or invalid")
	ErrRegistrationCharacterInvalid  = errors.New("registration character conflict or invalid")
)

type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByID(ctx context.Context, id int) (*models.Registration, error)
	FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus, includeUser bool) ([]*models.Registration, error)
	CountByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) (int, error)
	UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error
	UpdateCharacter(ctx context.Context, id int, characterID *int) error
	Delete(ctx context.Context, id int) error
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (user_id, tournament_id, status, seed, character_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		reg.UserID, reg.TournamentID, reg.Status, reg.Seed, reg.CharacterID,
	).Scan(&reg.ID, &reg.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				return ErrRegistrationConflict
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "registrations_user_id_fkey":
					return ErrRegistrationUserInvalid
				case "registrations_tournament_id_fkey":
					return ErrRegistrationTournamentInvalid
				case "registrations_character_id_fkey":
					return ErrRegistrationCharacterInvalid
				}
			}
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) scanRegistration(rowScanner interface{ Scan(...interface{}) error }) (*models.Registration, error) {
	reg := &models.Registration{}
	err := rowScanner.Scan(
		&reg.ID, &reg.UserID, &reg.TournamentID, &reg.Status,
		&reg.Seed, &reg.CharacterID, &reg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) FindByID(ctx context.Context, id int) (*models.Registration, error) {
	query := `
		SELECT id, user_id, tournament_id, status, seed, character_id, created_at
		FROM registrations WHERE id = $1`
	return r.scanRegistration(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresRegistrationRepository) FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	query := `
		SELECT id, user_id, tournament_id, status, seed, character_id, created_at
		FROM registrations WHERE user_id = $1 AND tournament_id = $2`
	return r.scanRegistration(r.db.QueryRowContext(ctx, query, userID, tournamentID))
}

// ListByTournament возвращает заявки в порядке их создания — этот порядок
// определяет регистрационный порядок участников турнира.
func (r *postgresRegistrationRepository) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus, includeUser bool) ([]*models.Registration, error) {
	var queryBuilder strings.Builder
	args := []interface{}{tournamentID}
	placeholderIndex := 2

	queryBuilder.WriteString(`
		SELECT r.id, r.user_id, r.tournament_id, r.status, r.seed, r.character_id, r.created_at`)
	if includeUser {
		queryBuilder.WriteString(`,
			u.name, u.avatar_key`)
	}
	queryBuilder.WriteString(`
		FROM registrations r`)
	if includeUser {
		queryBuilder.WriteString(`
		JOIN users u ON r.user_id = u.id`)
	}
	queryBuilder.WriteString(" WHERE r.tournament_id = $1")

	if statusFilter != nil {
		queryBuilder.WriteString(" AND r.status = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *statusFilter)
		placeholderIndex++
	}
	queryBuilder.WriteString(" ORDER BY r.created_at ASC, r.id ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations by tournament: %w", err)
	}
	defer rows.Close()

	registrations := make([]*models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		scanDest := []interface{}{
			&reg.ID, &reg.UserID, &reg.TournamentID, &reg.Status,
			&reg.Seed, &reg.CharacterID, &reg.CreatedAt,
		}
		var u models.User
		if includeUser {
			scanDest = append(scanDest, &u.Name, &u.AvatarKey)
		}
		if err := rows.Scan(scanDest...); err != nil {
			return nil, fmt.Errorf("failed to scan registration row: %w", err)
		}
		if includeUser {
			u.ID = reg.UserID
			reg.User = &u
		}
		registrations = append(registrations, &reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating registration rows: %w", err)
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) CountByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) (int, error) {
	query := `SELECT COUNT(*) FROM registrations WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if statusFilter != nil {
		query += ` AND status = $2`
		args = append(args, *statusFilter)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

func (r *postgresRegistrationRepository) UpdateStatus(ctx context.Context, id int, status models.RegistrationStatus) error {
	query := `UPDATE registrations SET status = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update registration status: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) UpdateCharacter(ctx context.Context, id int, characterID *int) error {
	query := `UPDATE registrations SET character_id = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, characterID, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrRegistrationCharacterInvalid
		}
		return fmt.Errorf("failed to update registration character: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM registrations WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}
