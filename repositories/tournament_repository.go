package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/smashpoint/tournament-api/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this organizer")
	ErrTournamentInvalidOrg   = errors.New("invalid organizer reference")
	ErrTournamentInUse        = errors.New("tournament is in use (registrations/matches exist)")
)

type ListTournamentsFilter struct {
	OrganizerID *int
	Status      *models.TournamentStatus
	Search      *string
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, int, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	Delete(ctx context.Context, id int) error
	GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505": // unique_violation
			return ErrTournamentNameConflict
		case "23503": // foreign_key_violation
			if pqErr.Constraint == "tournaments_organizer_id_fkey" {
				return ErrTournamentInvalidOrg
			}
			return ErrTournamentInUse
		}
	}
	return err
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, description, location, format, organizer_id,
			start_date, end_date, status, max_participants
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.Location, t.Format, t.OrganizerID,
		t.StartDate, t.EndDate, t.Status, t.MaxParticipants,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) scanTournament(rowScanner interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := rowScanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.Location, &t.Format, &t.OrganizerID,
		&t.StartDate, &t.EndDate, &t.Status, &t.MaxParticipants, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `
		SELECT id, name, description, location, format, organizer_id,
		       start_date, end_date, status, max_participants, created_at
		FROM tournaments
		WHERE id = $1`
	return r.scanTournament(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, int, error) {
	var conditions []string
	var args []interface{}
	placeholderIndex := 1

	if filter.OrganizerID != nil {
		conditions = append(conditions, "organizer_id = $"+strconv.Itoa(placeholderIndex))
		args = append(args, *filter.OrganizerID)
		placeholderIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = $"+strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Status)
		placeholderIndex++
	}
	if filter.Search != nil && *filter.Search != "" {
		conditions = append(conditions, "name ILIKE $"+strconv.Itoa(placeholderIndex))
		args = append(args, "%"+*filter.Search+"%")
		placeholderIndex++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tournaments"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tournaments: %w", err)
	}

	query := `
		SELECT id, name, description, location, format, organizer_id,
		       start_date, end_date, status, max_participants, created_at
		FROM tournaments` + where +
		" ORDER BY start_date DESC, id DESC LIMIT $" + strconv.Itoa(placeholderIndex) +
		" OFFSET $" + strconv.Itoa(placeholderIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, errScan := r.scanTournament(rows)
		if errScan != nil {
			return nil, 0, errScan
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return tournaments, total, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	query := `
		UPDATE tournaments SET
			name = $1, description = $2, location = $3, format = $4,
			start_date = $5, end_date = $6, max_participants = $7
		WHERE id = $8`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Description, t.Location, t.Format,
		t.StartDate, t.EndDate, t.MaxParticipants, t.ID,
	)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// GetTournamentsForAutoStatusUpdate возвращает турниры, чей статус должен
// быть переведён планировщиком: подготовка после даты старта либо
// идущие турниры после даты окончания.
func (r *postgresTournamentRepository) GetTournamentsForAutoStatusUpdate(ctx context.Context, exec SQLExecutor, currentTime time.Time) ([]*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, name, description, location, format, organizer_id,
		       start_date, end_date, status, max_participants, created_at
		FROM tournaments
		WHERE (status = $1 AND start_date <= $3)
		   OR (status = $2 AND end_date <= $3)
		ORDER BY id ASC`

	rows, err := executor.QueryContext(ctx, query, models.StatusPreparing, models.StatusOngoing, currentTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for auto status update: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, errScan := r.scanTournament(rows)
		if errScan != nil {
			return nil, errScan
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}
