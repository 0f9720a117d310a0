package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smashpoint/tournament-api/live"
	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/repositories"
)

type CreateTournamentInput struct {
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	Location        *string   `json:"location,omitempty"`
	Format          *string   `json:"format,omitempty"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	MaxParticipants *int      `json:"max_participants,omitempty"`
}

type UpdateTournamentInput struct {
	Name            *string    `json:"name,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Format          *string    `json:"format,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	MaxParticipants *int       `json:"max_participants,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter, page, perPage int) ([]models.Tournament, models.PageMeta, error)
	UpdateTournament(ctx context.Context, id int, currentUser *models.User, input UpdateTournamentInput) (*models.Tournament, error)
	ChangeStatus(ctx context.Context, id int, currentUser *models.User, newStatus models.TournamentStatus) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int, currentUser *models.User) error
	AutoUpdateTournamentStatusesByDates(ctx context.Context, now time.Time) error
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	userRepo       repositories.UserRepository
	rankingService RankingService
	hub            RankingNotifier
	logger         *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	rankingService RankingService,
	hub RankingNotifier,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		userRepo:       userRepo,
		rankingService: rankingService,
		hub:            hub,
		logger:         logger,
	}
}

func validateTournamentDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrTournamentInvalidDateRange
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start date (%s) must be before end date (%s)",
			ErrTournamentInvalidDateRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return nil
}

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusPreparing: {models.StatusOngoing, models.StatusCanceled},
		models.StatusOngoing:   {models.StatusCompleted, models.StatusCanceled},
		models.StatusCompleted: {},
		models.StatusCanceled:  {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

func canManageTournament(t *models.Tournament, user *models.User) bool {
	if user == nil {
		return false
	}
	return user.Role == models.RoleAdmin || t.OrganizerID == user.ID
}

func (s *tournamentService) CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if err := validateTournamentDates(input.StartDate, input.EndDate); err != nil {
		return nil, err
	}
	if input.MaxParticipants != nil && *input.MaxParticipants <= 0 {
		return nil, ErrTournamentInvalidCapacity
	}

	tournament := &models.Tournament{
		Name:            input.Name,
		Description:     input.Description,
		Location:        input.Location,
		Format:          input.Format,
		OrganizerID:     organizerID,
		StartDate:       input.StartDate,
		EndDate:         input.EndDate,
		Status:          models.StatusPreparing,
		MaxParticipants: input.MaxParticipants,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNameConflict):
			return nil, ErrTournamentNameConflict
		case errors.Is(err, repositories.ErrTournamentInvalidOrg):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("ошибка создания турнира: %w", err)
		}
	}
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("ошибка получения турнира: %w", err)
	}

	if tournament.Organizer == nil && tournament.OrganizerID > 0 {
		organizer, errOrg := s.userRepo.GetByID(ctx, tournament.OrganizerID)
		if errOrg == nil {
			organizer.PasswordHash = ""
			tournament.Organizer = organizer
		} else {
			s.logger.Warn("failed to populate tournament organizer",
				slog.Int("tournament_id", tournament.ID),
				slog.Int("organizer_id", tournament.OrganizerID),
				slog.Any("error", errOrg))
		}
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter, page, perPage int) ([]models.Tournament, models.PageMeta, error) {
	page, perPage, offset := normalizePagination(page, perPage)
	filter.Limit = perPage
	filter.Offset = offset

	tournaments, total, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("ошибка получения списка турниров: %w", err)
	}
	return tournaments, models.NewPageMeta(total, page, perPage), nil
}

func (s *tournamentService) UpdateTournament(ctx context.Context, id int, currentUser *models.User, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if !canManageTournament(tournament, currentUser) {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status == models.StatusCompleted || tournament.Status == models.StatusCanceled {
		return nil, ErrTournamentInvalidStatusTransition
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, ErrTournamentNameRequired
		}
		tournament.Name = *input.Name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.Location != nil {
		tournament.Location = input.Location
	}
	if input.Format != nil {
		tournament.Format = input.Format
	}
	if input.StartDate != nil {
		tournament.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = *input.EndDate
	}
	if err := validateTournamentDates(tournament.StartDate, tournament.EndDate); err != nil {
		return nil, err
	}
	if input.MaxParticipants != nil {
		if *input.MaxParticipants <= 0 {
			return nil, ErrTournamentInvalidCapacity
		}
		tournament.MaxParticipants = input.MaxParticipants
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("ошибка обновления турнира: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) ChangeStatus(ctx context.Context, id int, currentUser *models.User, newStatus models.TournamentStatus) (*models.Tournament, error) {
	switch newStatus {
	case models.StatusPreparing, models.StatusOngoing, models.StatusCompleted, models.StatusCanceled:
	default:
		return nil, ErrTournamentInvalidStatus
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if !canManageTournament(tournament, currentUser) {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status == newStatus {
		return tournament, nil
	}
	if !isValidStatusTransition(tournament.Status, newStatus) {
		return nil, ErrTournamentInvalidStatusTransition
	}

	// Завершить турнир можно только когда все матчи сыграны.
	if newStatus == models.StatusCompleted {
		undecided, errCount := s.matchRepo.CountUndecidedByTournament(ctx, nil, id)
		if errCount != nil {
			return nil, fmt.Errorf("ошибка проверки матчей турнира: %w", errCount)
		}
		if undecided > 0 {
			return nil, ErrTournamentHasUnfinishedMatches
		}
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, newStatus); err != nil {
		return nil, fmt.Errorf("ошибка смены статуса турнира: %w", err)
	}
	tournament.Status = newStatus

	s.broadcastStatusChange(tournament)

	if newStatus == models.StatusCompleted {
		s.recomputeAfterCompletion(ctx, id)
	}
	return tournament, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id int, currentUser *models.User) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	if !canManageTournament(tournament, currentUser) {
		return ErrForbiddenOperation
	}
	if tournament.Status == models.StatusOngoing {
		return ErrTournamentInvalidStatusTransition
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("ошибка удаления турнира: %w", err)
	}
	return nil
}

// AutoUpdateTournamentStatusesByDates переводит турниры по расписанию:
// preparing -> ongoing при наступлении даты старта, ongoing -> completed
// при наступлении даты окончания (если все матчи сыграны).
func (s *tournamentService) AutoUpdateTournamentStatusesByDates(ctx context.Context, now time.Time) error {
	tournaments, err := s.tournamentRepo.GetTournamentsForAutoStatusUpdate(ctx, nil, now)
	if err != nil {
		return fmt.Errorf("ошибка выборки турниров для автосмены статуса: %w", err)
	}

	for _, t := range tournaments {
		switch t.Status {
		case models.StatusPreparing:
			if !t.StartDate.After(now) {
				if err := s.tournamentRepo.UpdateStatus(ctx, nil, t.ID, models.StatusOngoing); err != nil {
					s.logger.Error("failed to auto-start tournament",
						slog.Int("tournament_id", t.ID), slog.Any("error", err))
					continue
				}
				t.Status = models.StatusOngoing
				s.broadcastStatusChange(t)
				s.logger.Info("tournament auto-started", slog.Int("tournament_id", t.ID))
			}
		case models.StatusOngoing:
			if !t.EndDate.After(now) {
				undecided, errCount := s.matchRepo.CountUndecidedByTournament(ctx, nil, t.ID)
				if errCount != nil {
					s.logger.Error("failed to count undecided matches",
						slog.Int("tournament_id", t.ID), slog.Any("error", errCount))
					continue
				}
				if undecided > 0 {
					// Ждём результатов: завершение с несыгранными матчами запрещено.
					continue
				}
				if err := s.tournamentRepo.UpdateStatus(ctx, nil, t.ID, models.StatusCompleted); err != nil {
					s.logger.Error("failed to auto-complete tournament",
						slog.Int("tournament_id", t.ID), slog.Any("error", err))
					continue
				}
				t.Status = models.StatusCompleted
				s.broadcastStatusChange(t)
				s.logger.Info("tournament auto-completed", slog.Int("tournament_id", t.ID))
				s.recomputeAfterCompletion(ctx, t.ID)
			}
		}
	}
	return nil
}

func (s *tournamentService) broadcastStatusChange(t *models.Tournament) {
	if s.hub == nil {
		return
	}
	room := live.TournamentRoom(t.ID)
	s.hub.BroadcastToRoom(room, live.Message{
		Type: live.MessageTournamentStatusChanged,
		Payload: map[string]interface{}{
			"tournament_id": t.ID,
			"status":        t.Status,
		},
		RoomID: room,
	})
}

func (s *tournamentService) recomputeAfterCompletion(ctx context.Context, tournamentID int) {
	if s.rankingService == nil {
		return
	}
	if _, err := s.rankingService.RecalculateTournament(ctx, tournamentID); err != nil {
		s.logger.Error("failed to recompute tournament ranking after completion",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return
	}
	if _, err := s.rankingService.RecalculateGlobal(ctx); err != nil {
		s.logger.Error("failed to recompute global ranking after completion",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
	}
}
