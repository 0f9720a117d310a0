package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smashpoint/tournament-api/models"
)

var (
	ErrRankingEntryNotFound = errors.New("ranking entry not found")
)

// RankingRepository владеет строками rankings. Набор строк турнира (а также
// глобальный срез tournament_id IS NULL) заменяется только целиком:
// delete + insert внутри транзакции, которую передаёт вызывающий через exec.
type RankingRepository interface {
	ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, entries []*models.RankingEntry) error
	ReplaceGlobal(ctx context.Context, exec SQLExecutor, entries []*models.RankingEntry) error
	ListByTournament(ctx context.Context, tournamentID, limit, offset int) ([]*models.RankingEntry, int, error)
	ListByUser(ctx context.Context, userID, limit, offset int) ([]*models.RankingEntry, int, error)
	ListGlobal(ctx context.Context, limit, offset int) ([]*models.RankingEntry, int, error)
	ListAllTournamentEntries(ctx context.Context, exec SQLExecutor) ([]*models.RankingEntry, error)
	ListUserEvolution(ctx context.Context, userID int) ([]models.RankingEvolution, error)
}

type postgresRankingRepository struct {
	db *sql.DB
}

func NewPostgresRankingRepository(db *sql.DB) RankingRepository {
	return &postgresRankingRepository{db: db}
}

func (r *postgresRankingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const rankingColumns = `
	id, tournament_id, user_id, points, position, matches_played, matches_won,
	matches_lost, tournaments_played, average_position, first_places,
	second_places, third_places, updated_at`

const insertRankingQuery = `
	INSERT INTO rankings (
		tournament_id, user_id, points, position, matches_played, matches_won,
		matches_lost, tournaments_played, average_position, first_places,
		second_places, third_places, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING id`

func (r *postgresRankingRepository) insertEntries(ctx context.Context, exec SQLExecutor, entries []*models.RankingEntry) error {
	now := time.Now()
	for _, e := range entries {
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
		err := exec.QueryRowContext(ctx, insertRankingQuery,
			e.TournamentID, e.UserID, e.Points, e.Position,
			e.MatchesPlayed, e.MatchesWon, e.MatchesLost,
			e.TournamentsPlayed, e.AveragePosition,
			e.FirstPlaces, e.SecondPlaces, e.ThirdPlaces, e.UpdatedAt,
		).Scan(&e.ID)
		if err != nil {
			return fmt.Errorf("failed to insert ranking entry for user %d: %w", e.UserID, err)
		}
	}
	return nil
}

// ReplaceForTournament атомарно заменяет классификацию турнира. Вызывающий
// обязан передать исполнитель транзакции: частичная замена никогда не должна
// быть видна читателю.
func (r *postgresRankingRepository) ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, entries []*models.RankingEntry) error {
	if exec == nil {
		return errors.New("ReplaceForTournament requires a transaction executor")
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM rankings WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete rankings for tournament %d: %w", tournamentID, err)
	}
	return r.insertEntries(ctx, exec, entries)
}

// ReplaceGlobal атомарно заменяет глобальный срез (tournament_id IS NULL).
func (r *postgresRankingRepository) ReplaceGlobal(ctx context.Context, exec SQLExecutor, entries []*models.RankingEntry) error {
	if exec == nil {
		return errors.New("ReplaceGlobal requires a transaction executor")
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM rankings WHERE tournament_id IS NULL`); err != nil {
		return fmt.Errorf("failed to delete global rankings: %w", err)
	}
	return r.insertEntries(ctx, exec, entries)
}

func (r *postgresRankingRepository) scanEntry(rowScanner interface{ Scan(...interface{}) error }) (*models.RankingEntry, error) {
	e := &models.RankingEntry{}
	err := rowScanner.Scan(
		&e.ID, &e.TournamentID, &e.UserID, &e.Points, &e.Position,
		&e.MatchesPlayed, &e.MatchesWon, &e.MatchesLost,
		&e.TournamentsPlayed, &e.AveragePosition,
		&e.FirstPlaces, &e.SecondPlaces, &e.ThirdPlaces, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRankingEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *postgresRankingRepository) listPaged(ctx context.Context, countQuery, listQuery string, countArgs, listArgs []interface{}) ([]*models.RankingEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count ranking entries: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ranking entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.RankingEntry, 0)
	for rows.Next() {
		e, errScan := r.scanEntry(rows)
		if errScan != nil {
			return nil, 0, errScan
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *postgresRankingRepository) ListByTournament(ctx context.Context, tournamentID, limit, offset int) ([]*models.RankingEntry, int, error) {
	countQuery := `SELECT COUNT(*) FROM rankings WHERE tournament_id = $1`
	listQuery := `SELECT` + rankingColumns + `
		FROM rankings
		WHERE tournament_id = $1
		ORDER BY position ASC
		LIMIT $2 OFFSET $3`
	return r.listPaged(ctx, countQuery, listQuery,
		[]interface{}{tournamentID},
		[]interface{}{tournamentID, limit, offset})
}

func (r *postgresRankingRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]*models.RankingEntry, int, error) {
	countQuery := `SELECT COUNT(*) FROM rankings WHERE user_id = $1 AND tournament_id IS NOT NULL`
	listQuery := `SELECT` + rankingColumns + `
		FROM rankings
		WHERE user_id = $1 AND tournament_id IS NOT NULL
		ORDER BY position ASC, tournament_id ASC
		LIMIT $2 OFFSET $3`
	return r.listPaged(ctx, countQuery, listQuery,
		[]interface{}{userID},
		[]interface{}{userID, limit, offset})
}

func (r *postgresRankingRepository) ListGlobal(ctx context.Context, limit, offset int) ([]*models.RankingEntry, int, error) {
	countQuery := `SELECT COUNT(*) FROM rankings WHERE tournament_id IS NULL`
	listQuery := `SELECT` + rankingColumns + `
		FROM rankings
		WHERE tournament_id IS NULL
		ORDER BY position ASC
		LIMIT $1 OFFSET $2`
	return r.listPaged(ctx, countQuery, listQuery,
		nil,
		[]interface{}{limit, offset})
}

// ListAllTournamentEntries возвращает все турнирные строки — вход глобальной
// пересборки.
func (r *postgresRankingRepository) ListAllTournamentEntries(ctx context.Context, exec SQLExecutor) ([]*models.RankingEntry, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + rankingColumns + `
		FROM rankings
		WHERE tournament_id IS NOT NULL
		ORDER BY tournament_id ASC, position ASC`

	rows, err := executor.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament ranking entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.RankingEntry, 0)
	for rows.Next() {
		e, errScan := r.scanEntry(rows)
		if errScan != nil {
			return nil, errScan
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListUserEvolution возвращает историю позиций пользователя по турнирам,
// упорядоченную по дате начала турнира.
func (r *postgresRankingRepository) ListUserEvolution(ctx context.Context, userID int) ([]models.RankingEvolution, error) {
	query := `
		SELECT r.tournament_id, t.name, t.start_date, r.position, r.points
		FROM rankings r
		JOIN tournaments t ON r.tournament_id = t.id
		WHERE r.user_id = $1
		ORDER BY t.start_date ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ranking evolution: %w", err)
	}
	defer rows.Close()

	evolution := make([]models.RankingEvolution, 0)
	for rows.Next() {
		var ev models.RankingEvolution
		if err := rows.Scan(&ev.TournamentID, &ev.TournamentName, &ev.StartDate, &ev.Position, &ev.Points); err != nil {
			return nil, fmt.Errorf("failed to scan ranking evolution row: %w", err)
		}
		evolution = append(evolution, ev)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return evolution, nil
}
