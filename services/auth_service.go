package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/repositories"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	ConfirmEmail(ctx context.Context, token string) error
	GeneratePasswordResetToken(ctx context.Context, email string) (string, error)
	ResetPasswordByToken(ctx context.Context, token string, newPassword string) error
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Country  string `json:"country,omitempty"`
	State    string `json:"state,omitempty"`
}

type LoginInput struct {
	Email    string
	Password string
}

type authService struct {
	userRepo repositories.UserRepository
	logger   *slog.Logger
}

func NewAuthService(userRepo repositories.UserRepository, logger *slog.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, string, error) {
	if input.Name == "" || input.Email == "" {
		return nil, "", ErrValidationFailed
	}
	if len(input.Password) < minPasswordLength {
		return nil, "", ErrPasswordTooShort
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	confirmationToken := generateRandomToken(32)

	user := &models.User{
		Name:                   input.Name,
		Email:                  input.Email,
		PasswordHash:           string(hashedPassword),
		Role:                   models.RolePlayer,
		IsActive:               true,
		EmailConfirmed:         false,
		EmailConfirmationToken: &confirmationToken,
	}
	if input.Country != "" {
		user.Country = &input.Country
	}
	if input.State != "" {
		user.State = &input.State
	}

	err = s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repositories.ErrUserEmailConflict) {
			return nil, "", ErrAuthEmailTaken
		}
		return nil, "", fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return user, confirmationToken, nil
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = ""

	return user, nil
}

func (s *authService) ConfirmEmail(ctx context.Context, token string) error {
	user, err := s.userRepo.GetByConfirmationToken(ctx, token)
	if err != nil {
		return fmt.Errorf("invalid or expired confirmation token: %w", err)
	}
	if user.EmailConfirmed {
		return fmt.Errorf("email already confirmed")
	}
	if err := s.userRepo.ConfirmEmail(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to confirm email: %w", err)
	}
	return nil
}

func (s *authService) GeneratePasswordResetToken(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Не раскрываем, зарегистрирован ли email
		return "", nil
	}
	resetToken := generateRandomToken(32)
	err = s.userRepo.SetPasswordResetToken(ctx, user.ID, resetToken, time.Now().Add(1*time.Hour))
	if err != nil {
		return "", err
	}
	return resetToken, nil
}

func (s *authService) ResetPasswordByToken(ctx context.Context, token string, newPassword string) error {
	user, err := s.userRepo.GetByPasswordResetToken(ctx, token)
	if err != nil {
		s.logger.Warn("password reset with unknown token", slog.Any("error", err))
		return errors.New("invalid or expired token")
	}
	if user.PasswordResetExpiresAt == nil || user.PasswordResetExpiresAt.Before(time.Now()) {
		return errors.New("token expired")
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooShort
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ошибка хеширования пароля: %w", err)
	}
	user.PasswordHash = string(hashedPassword)
	user.PasswordResetToken = nil
	user.PasswordResetExpiresAt = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	return nil
}

func generateRandomToken(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	randomBytes := make([]byte, length)
	_, err := rand.Read(randomBytes)
	if err != nil {
		for i := range b {
			b[i] = charset[int(time.Now().UnixNano())%len(charset)]
		}
		return string(b)
	}
	for i, rb := range randomBytes {
		b[i] = charset[int(rb)%len(charset)]
	}
	return string(b)
}
