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
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchTournamentInvalid = errors.New("match tournament conflict or invalid")
	ErrMatchPlayerInvalid     = errors.New("match player conflict or invalid")
	ErrMatchCharacterInvalid  = errors.New("match character conflict or invalid")
)

type ListMatchesFilter struct {
	Round  *int
	Status *models.MatchStatus
	Limit  int
	Offset int
}

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, filter ListMatchesFilter) ([]*models.Match, int, error)
	ListCompletedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error)
	CountUndecidedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	UpdateResult(ctx context.Context, id int, score *string, winnerID, loserID *int, status models.MatchStatus) error
	UpdateStatus(ctx context.Context, id int, status models.MatchStatus) error
	Delete(ctx context.Context, id int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		switch pqErr.Constraint {
		case "matches_tournament_id_fkey":
			return ErrMatchTournamentInvalid
		case "matches_player1_id_fkey", "matches_player2_id_fkey", "matches_winner_id_fkey", "matches_loser_id_fkey":
			return ErrMatchPlayerInvalid
		case "matches_player1_character_id_fkey", "matches_player2_character_id_fkey":
			return ErrMatchCharacterInvalid
		}
	}
	return err
}

const matchColumns = `
	id, tournament_id, round, player1_id, player2_id, winner_id, loser_id,
	score, status, scheduled_at, player1_character_id, player2_character_id`

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := rowScanner.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.Player1ID, &m.Player2ID,
		&m.WinnerID, &m.LoserID, &m.Score, &m.Status, &m.ScheduledAt,
		&m.Player1CharacterID, &m.Player2CharacterID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (
			tournament_id, round, player1_id, player2_id, score, status,
			scheduled_at, player1_character_id, player2_character_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		match.TournamentID, match.Round, match.Player1ID, match.Player2ID,
		match.Score, match.Status, match.ScheduledAt,
		match.Player1CharacterID, match.Player2CharacterID,
	).Scan(&match.ID)

	if err != nil {
		return fmt.Errorf("failed to create match: %w", r.handleMatchError(err))
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanMatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, filter ListMatchesFilter) ([]*models.Match, int, error) {
	var conditions strings.Builder
	conditions.WriteString(" WHERE tournament_id = $1")
	args := []interface{}{tournamentID}
	placeholderIndex := 2

	if filter.Round != nil {
		conditions.WriteString(" AND round = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Round)
		placeholderIndex++
	}
	if filter.Status != nil {
		conditions.WriteString(" AND status = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Status)
		placeholderIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM matches"+conditions.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}

	query := `SELECT` + matchColumns + ` FROM matches` + conditions.String() +
		" ORDER BY round ASC, id ASC LIMIT $" + strconv.Itoa(placeholderIndex) +
		" OFFSET $" + strconv.Itoa(placeholderIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list matches by tournament: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, errScan := r.scanMatch(rows)
		if errScan != nil {
			return nil, 0, errScan
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return matches, total, nil
}

// ListCompletedByTournament возвращает только завершённые матчи —
// единственный вход агрегации рейтинга.
func (r *postgresMatchRepository) ListCompletedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND status = $2
		ORDER BY round ASC, id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID, models.MatchStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, errScan := r.scanMatch(rows)
		if errScan != nil {
			return nil, errScan
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountUndecidedByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT COUNT(*) FROM matches
		WHERE tournament_id = $1 AND status NOT IN ($2, $3)`

	var count int
	err := executor.QueryRowContext(ctx, query, tournamentID,
		models.MatchStatusCompleted, models.MatchStatusCanceled).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count undecided matches: %w", err)
	}
	return count, nil
}

func (r *postgresMatchRepository) UpdateResult(ctx context.Context, id int, score *string, winnerID, loserID *int, status models.MatchStatus) error {
	query := `
		UPDATE matches SET score = $1, winner_id = $2, loser_id = $3, status = $4
		WHERE id = $5`

	result, err := r.db.ExecContext(ctx, query, score, winnerID, loserID, status, id)
	if err != nil {
		return fmt.Errorf("failed to update match result: %w", r.handleMatchError(err))
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, id int, status models.MatchStatus) error {
	query := `UPDATE matches SET status = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update match status: %w", err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM matches WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
