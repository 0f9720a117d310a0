package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/smashpoint/tournament-api/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserEmailConflict = errors.New("email address is already in use")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByConfirmationToken(ctx context.Context, token string) (*models.User, error)
	GetByPasswordResetToken(ctx context.Context, token string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	ConfirmEmail(ctx context.Context, id int) error
	SetPasswordResetToken(ctx context.Context, id int, token string, expiresAt time.Time) error
	UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error
	List(ctx context.Context, limit, offset int) ([]*models.User, int, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `
	id, name, email, password_hash, role, country, state, is_active, created_at,
	avatar_key, email_confirmed, email_confirmation_token,
	password_reset_token, password_reset_expires_at`

func (r *postgresUserRepository) scanUser(rowScanner interface{ Scan(...interface{}) error }) (*models.User, error) {
	u := &models.User{}
	err := rowScanner.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Country, &u.State,
		&u.IsActive, &u.CreatedAt, &u.AvatarKey, &u.EmailConfirmed,
		&u.EmailConfirmationToken, &u.PasswordResetToken, &u.PasswordResetExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role, country, state, email_confirmation_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.Role,
		user.Country, user.State, user.EmailConfirmationToken,
	).Scan(&user.ID, &user.IsActive, &user.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrUserEmailConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *postgresUserRepository) GetByConfirmationToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE email_confirmation_token = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, token))
}

func (r *postgresUserRepository) GetByPasswordResetToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE password_reset_token = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, token))
}

func (r *postgresUserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			name = $1, email = $2, password_hash = $3, country = $4, state = $5,
			is_active = $6, password_reset_token = $7, password_reset_expires_at = $8
		WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.Country, user.State,
		user.IsActive, user.PasswordResetToken, user.PasswordResetExpiresAt,
		user.ID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrUserEmailConflict
		}
		return fmt.Errorf("failed to update user %d: %w", user.ID, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) ConfirmEmail(ctx context.Context, id int) error {
	query := `UPDATE users SET email_confirmed = TRUE, email_confirmation_token = NULL WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to confirm email for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) SetPasswordResetToken(ctx context.Context, id int, token string, expiresAt time.Time) error {
	query := `UPDATE users SET password_reset_token = $1, password_reset_expires_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, token, expiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to set password reset token for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) UpdateAvatarKey(ctx context.Context, id int, avatarKey *string) error {
	query := `UPDATE users SET avatar_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, avatarKey, id)
	if err != nil {
		return fmt.Errorf("failed to update avatar key for user %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT` + userColumns + ` FROM users ORDER BY id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, errScan := r.scanUser(rows)
		if errScan != nil {
			return nil, 0, errScan
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
