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

type CreateMatchInput struct {
	TournamentID       int        `json:"tournament_id"`
	Round              int        `json:"round"`
	Player1ID          int        `json:"player1_id"`
	Player2ID          int        `json:"player2_id"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
	Player1CharacterID *int       `json:"player1_character_id,omitempty"`
	Player2CharacterID *int       `json:"player2_character_id,omitempty"`
}

type ReportResultInput struct {
	WinnerID int     `json:"winner_id"`
	Score    *string `json:"score,omitempty"`
}

type MatchService interface {
	CreateMatch(ctx context.Context, currentUser *models.User, input CreateMatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int, filter repositories.ListMatchesFilter, page, perPage int) ([]*models.Match, models.PageMeta, error)
	ReportResult(ctx context.Context, matchID int, currentUser *models.User, input ReportResultInput) (*models.Match, error)
	CancelMatch(ctx context.Context, matchID int, currentUser *models.User) error
	DeleteMatch(ctx context.Context, matchID int, currentUser *models.User) error
}

type matchService struct {
	matchRepo        repositories.MatchRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	hub              RankingNotifier
	logger           *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	hub RankingNotifier,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:        matchRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		hub:              hub,
		logger:           logger,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, currentUser *models.User, input CreateMatchInput) (*models.Match, error) {
	if input.Player1ID == input.Player2ID {
		return nil, ErrMatchPlayersIdentical
	}
	if input.Round < 1 {
		return nil, ErrValidationFailed
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("ошибка при проверке турнира: %w", err)
	}
	if !canManageTournament(tournament, currentUser) {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status == models.StatusCompleted || tournament.Status == models.StatusCanceled {
		return nil, ErrTournamentInvalidStatusTransition
	}

	// Оба игрока должны быть подтверждёнными участниками турнира.
	for _, playerID := range []int{input.Player1ID, input.Player2ID} {
		registration, errReg := s.registrationRepo.FindByUserAndTournament(ctx, playerID, input.TournamentID)
		if errReg != nil {
			if errors.Is(errReg, repositories.ErrRegistrationNotFound) {
				return nil, ErrMatchPlayersUnregister
			}
			return nil, fmt.Errorf("ошибка при проверке участника %d: %w", playerID, errReg)
		}
		if registration.Status != models.RegistrationConfirmed {
			return nil, ErrMatchPlayersUnregister
		}
	}

	match := &models.Match{
		TournamentID:       input.TournamentID,
		Round:              input.Round,
		Player1ID:          input.Player1ID,
		Player2ID:          input.Player2ID,
		Status:             models.MatchStatusScheduled,
		ScheduledAt:        input.ScheduledAt,
		Player1CharacterID: input.Player1CharacterID,
		Player2CharacterID: input.Player2CharacterID,
	}
	if err := s.matchRepo.Create(ctx, match); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMatchTournamentInvalid):
			return nil, ErrTournamentNotFound
		case errors.Is(err, repositories.ErrMatchPlayerInvalid):
			return nil, ErrUserNotFound
		case errors.Is(err, repositories.ErrMatchCharacterInvalid):
			return nil, ErrCharacterNotFound
		default:
			return nil, fmt.Errorf("ошибка создания матча: %w", err)
		}
	}
	return match, nil
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, filter repositories.ListMatchesFilter, page, perPage int) ([]*models.Match, models.PageMeta, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, models.PageMeta{}, ErrTournamentNotFound
		}
		return nil, models.PageMeta{}, err
	}

	page, perPage, offset := normalizePagination(page, perPage)
	filter.Limit = perPage
	filter.Offset = offset

	matches, total, err := s.matchRepo.ListByTournament(ctx, tournamentID, filter)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("ошибка получения матчей: %w", err)
	}
	return matches, models.NewPageMeta(total, page, perPage), nil
}

func (s *matchService) ReportResult(ctx context.Context, matchID int, currentUser *models.User, input ReportResultInput) (*models.Match, error) {
	match, tournament, err := s.loadMatchWithTournament(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(tournament, currentUser) {
		return nil, ErrForbiddenOperation
	}
	if match.Status == models.MatchStatusCompleted {
		return nil, ErrMatchAlreadyCompleted
	}
	if input.WinnerID != match.Player1ID && input.WinnerID != match.Player2ID {
		return nil, ErrMatchWinnerNotPlayer
	}

	loserID := match.Player1ID
	if input.WinnerID == match.Player1ID {
		loserID = match.Player2ID
	}

	winnerID := input.WinnerID
	if err := s.matchRepo.UpdateResult(ctx, matchID, input.Score, &winnerID, &loserID, models.MatchStatusCompleted); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("ошибка сохранения результата матча: %w", err)
	}

	match.WinnerID = &winnerID
	match.LoserID = &loserID
	match.Score = input.Score
	match.Status = models.MatchStatusCompleted

	s.logger.Info("match result recorded",
		slog.Int("match_id", matchID),
		slog.Int("tournament_id", match.TournamentID),
		slog.Int("winner_id", winnerID))

	if s.hub != nil {
		room := live.TournamentRoom(match.TournamentID)
		s.hub.BroadcastToRoom(room, live.Message{
			Type:    live.MessageMatchUpdated,
			Payload: match,
			RoomID:  room,
		})
	}
	return match, nil
}

func (s *matchService) CancelMatch(ctx context.Context, matchID int, currentUser *models.User) error {
	match, tournament, err := s.loadMatchWithTournament(ctx, matchID)
	if err != nil {
		return err
	}
	if !canManageTournament(tournament, currentUser) {
		return ErrForbiddenOperation
	}
	if match.Status == models.MatchStatusCompleted {
		return ErrMatchAlreadyCompleted
	}
	return s.matchRepo.UpdateStatus(ctx, matchID, models.MatchStatusCanceled)
}

func (s *matchService) DeleteMatch(ctx context.Context, matchID int, currentUser *models.User) error {
	match, tournament, err := s.loadMatchWithTournament(ctx, matchID)
	if err != nil {
		return err
	}
	if !canManageTournament(tournament, currentUser) {
		return ErrForbiddenOperation
	}
	if match.Status == models.MatchStatusCompleted {
		return ErrMatchAlreadyCompleted
	}
	return s.matchRepo.Delete(ctx, matchID)
}

func (s *matchService) loadMatchWithTournament(ctx context.Context, matchID int) (*models.Match, *models.Tournament, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, nil, ErrMatchNotFound
		}
		return nil, nil, fmt.Errorf("ошибка при поиске матча: %w", err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, nil, ErrTournamentNotFound
		}
		return nil, nil, err
	}
	return match, tournament, nil
}
