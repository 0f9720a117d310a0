package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/repositories"
)

type RegistrationService interface {
	Register(ctx context.Context, userID, tournamentID int) (*models.Registration, error)
	GetRegistration(ctx context.Context, id int) (*models.Registration, error)
	ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error)
	ConfirmRegistration(ctx context.Context, id int, currentUser *models.User) (*models.Registration, error)
	CancelRegistration(ctx context.Context, id int, currentUser *models.User) error
	SetCharacter(ctx context.Context, id int, currentUser *models.User, characterID *int) error
}

type registrationService struct {
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	userRepo         repositories.UserRepository
	characterRepo    repositories.CharacterRepository
}

func NewRegistrationService(
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	characterRepo repositories.CharacterRepository,
) RegistrationService {
	return &registrationService{
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		userRepo:         userRepo,
		characterRepo:    characterRepo,
	}
}

func (s *registrationService) Register(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка при проверке пользователя: %w", err)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("ошибка при проверке турнира: %w", err)
	}
	if tournament.Status != models.StatusPreparing {
		return nil, ErrRegistrationNotOpen
	}

	existing, err := s.registrationRepo.FindByUserAndTournament(ctx, userID, tournamentID)
	if err != nil && !errors.Is(err, repositories.ErrRegistrationNotFound) {
		return nil, fmt.Errorf("ошибка при проверке участия: %w", err)
	}
	if existing != nil && existing.Status != models.RegistrationCanceled {
		return nil, ErrRegistrationConflict
	}

	status := models.RegistrationRegistered
	confirmed := models.RegistrationConfirmed
	confirmedCount, err := s.registrationRepo.CountByTournament(ctx, tournamentID, &confirmed)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта участников: %w", err)
	}
	if !tournament.RegistrationOpen(confirmedCount) {
		// Лимит подтверждённых мест исчерпан, регистрация уходит в лист ожидания.
		status = models.RegistrationWaitlisted
	}

	registration := &models.Registration{
		UserID:       userID,
		TournamentID: tournamentID,
		Status:       status,
	}
	if err := s.registrationRepo.Create(ctx, registration); err != nil {
		switch {
		case errors.Is(err, repositories.ErrRegistrationConflict):
			return nil, ErrRegistrationConflict
		case errors.Is(err, repositories.ErrRegistrationUserInvalid):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrRegistrationTournamentInvalid):
			return nil, ErrTournamentNotFound
		default:
			return nil, fmt.Errorf("ошибка создания регистрации: %w", err)
		}
	}
	return registration, nil
}

func (s *registrationService) GetRegistration(ctx context.Context, id int) (*models.Registration, error) {
	registration, err := s.registrationRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return registration, nil
}

func (s *registrationService) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus) ([]*models.Registration, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.registrationRepo.ListByTournament(ctx, tournamentID, statusFilter, true)
}

func (s *registrationService) ConfirmRegistration(ctx context.Context, id int, currentUser *models.User) (*models.Registration, error) {
	registration, tournament, err := s.loadRegistrationWithTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(tournament, currentUser) {
		return nil, ErrForbiddenOperation
	}
	if registration.Status == models.RegistrationConfirmed {
		return registration, nil
	}
	if registration.Status == models.RegistrationCanceled {
		return nil, ErrRegistrationNotOpen
	}

	confirmed := models.RegistrationConfirmed
	confirmedCount, err := s.registrationRepo.CountByTournament(ctx, tournament.ID, &confirmed)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта участников: %w", err)
	}
	if !tournament.RegistrationOpen(confirmedCount) {
		return nil, ErrTournamentFull
	}

	if err := s.registrationRepo.UpdateStatus(ctx, id, models.RegistrationConfirmed); err != nil {
		return nil, fmt.Errorf("ошибка подтверждения регистрации: %w", err)
	}
	registration.Status = models.RegistrationConfirmed
	return registration, nil
}

func (s *registrationService) CancelRegistration(ctx context.Context, id int, currentUser *models.User) error {
	registration, tournament, err := s.loadRegistrationWithTournament(ctx, id)
	if err != nil {
		return err
	}
	isOwner := currentUser != nil && currentUser.ID == registration.UserID
	if !isOwner && !canManageTournament(tournament, currentUser) {
		return ErrForbiddenOperation
	}
	if tournament.Status != models.StatusPreparing {
		return ErrRegistrationNotOpen
	}

	if err := s.registrationRepo.UpdateStatus(ctx, id, models.RegistrationCanceled); err != nil {
		return fmt.Errorf("ошибка отмены регистрации: %w", err)
	}
	return nil
}

func (s *registrationService) SetCharacter(ctx context.Context, id int, currentUser *models.User, characterID *int) error {
	registration, tournament, err := s.loadRegistrationWithTournament(ctx, id)
	if err != nil {
		return err
	}
	isOwner := currentUser != nil && currentUser.ID == registration.UserID
	if !isOwner && !canManageTournament(tournament, currentUser) {
		return ErrForbiddenOperation
	}

	if characterID != nil {
		if _, err := s.characterRepo.GetByID(ctx, *characterID); err != nil {
			if errors.Is(err, repositories.ErrCharacterNotFound) {
				return ErrCharacterNotFound
			}
			return err
		}
	}

	if err := s.registrationRepo.UpdateCharacter(ctx, id, characterID); err != nil {
		if errors.Is(err, repositories.ErrRegistrationCharacterInvalid) {
			return ErrCharacterNotFound
		}
		return fmt.Errorf("ошибка выбора персонажа: %w", err)
	}
	return nil
}

func (s *registrationService) loadRegistrationWithTournament(ctx context.Context, id int) (*models.Registration, *models.Tournament, error) {
	registration, err := s.registrationRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, nil, ErrRegistrationNotFound
		}
		return nil, nil, fmt.Errorf("ошибка при поиске регистрации: %w", err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, registration.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, nil, ErrTournamentNotFound
		}
		return nil, nil, err
	}
	return registration, tournament, nil
}
