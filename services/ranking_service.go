package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smashpoint/tournament-api/live"
	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/ranking"
	"github.com/smashpoint/tournament-api/repositories"
)

// RankingNotifier рассылает события пересчёта подписчикам live-хаба.
type RankingNotifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

type RankingService interface {
	// RecalculateTournament полностью пересобирает классификацию турнира.
	// Допустимо только для завершённого турнира; набор строк заменяется
	// атомарно, повторный вызов на неизменных данных даёт идентичный результат.
	RecalculateTournament(ctx context.Context, tournamentID int) ([]*models.RankingEntry, error)

	// RecalculateGlobal пересобирает глобальный срез из уже рассчитанных
	// турнирных строк. Валиден в любой момент.
	RecalculateGlobal(ctx context.Context) ([]*models.RankingEntry, error)

	GetTournamentRanking(ctx context.Context, tournamentID, page, perPage int) ([]*models.RankingEntry, models.PageMeta, error)
	GetUserRankings(ctx context.Context, userID, page, perPage int) ([]*models.RankingEntry, models.PageMeta, error)
	GetGlobalRanking(ctx context.Context, page, perPage int) ([]*models.RankingEntry, models.PageMeta, error)
}

type rankingService struct {
	txManager        repositories.TxManager
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	matchRepo        repositories.MatchRepository
	rankingRepo      repositories.RankingRepository
	userRepo         repositories.UserRepository
	policy           ranking.Policy
	hub              RankingNotifier
	logger           *slog.Logger

	// Не более одного одновременного пересчёта на турнир.
	mu         sync.Mutex
	inProgress map[int]struct{}
}

func NewRankingService(
	txManager repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	rankingRepo repositories.RankingRepository,
	userRepo repositories.UserRepository,
	policy ranking.Policy,
	hub RankingNotifier,
	logger *slog.Logger,
) RankingService {
	return &rankingService{
		txManager:        txManager,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		matchRepo:        matchRepo,
		rankingRepo:      rankingRepo,
		userRepo:         userRepo,
		policy:           policy,
		hub:              hub,
		logger:           logger,
		inProgress:       make(map[int]struct{}),
	}
}

func (s *rankingService) tryLock(tournamentID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inProgress[tournamentID]; busy {
		return false
	}
	s.inProgress[tournamentID] = struct{}{}
	return true
}

func (s *rankingService) unlock(tournamentID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inProgress, tournamentID)
}

func (s *rankingService) RecalculateTournament(ctx context.Context, tournamentID int) ([]*models.RankingEntry, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}
	if tournament.Status != models.StatusCompleted {
		return nil, ErrTournamentNotCompleted
	}

	if !s.tryLock(tournamentID) {
		return nil, ErrRankingRecomputeInProgress
	}
	defer s.unlock(tournamentID)

	confirmed := models.RegistrationConfirmed
	registrations, err := s.registrationRepo.ListByTournament(ctx, tournamentID, &confirmed, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed registrations for tournament %d: %w", tournamentID, err)
	}

	matches, err := s.matchRepo.ListCompletedByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed matches for tournament %d: %w", tournamentID, err)
	}

	participantIDs := make([]int, 0, len(registrations))
	for _, reg := range registrations {
		participantIDs = append(participantIDs, reg.UserID)
	}

	outcomes := make([]ranking.Outcome, 0, len(matches))
	for _, m := range matches {
		o := ranking.Outcome{Player1ID: m.Player1ID, Player2ID: m.Player2ID}
		if m.WinnerID != nil {
			o.WinnerID = *m.WinnerID
		}
		if m.LoserID != nil {
			o.LoserID = *m.LoserID
		}
		outcomes = append(outcomes, o)
	}

	table := ranking.BuildTable(participantIDs, outcomes, s.policy)

	entries := make([]*models.RankingEntry, 0, len(table))
	for _, row := range table {
		tid := tournamentID
		entries = append(entries, &models.RankingEntry{
			TournamentID:  &tid,
			UserID:        row.UserID,
			Points:        row.Points,
			Position:      row.Position,
			MatchesPlayed: row.MatchesPlayed,
			MatchesWon:    row.MatchesWon,
			MatchesLost:   row.MatchesLost,
		})
	}

	err = s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.rankingRepo.ReplaceForTournament(ctx, exec, tournamentID, entries)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace ranking for tournament %d: %w", tournamentID, err)
	}

	s.logger.Info("tournament ranking recomputed",
		slog.Int("tournament_id", tournamentID),
		slog.Int("entries", len(entries)))

	if s.hub != nil {
		room := live.TournamentRoom(tournamentID)
		s.hub.BroadcastToRoom(room, live.Message{
			Type:    live.MessageRankingUpdated,
			Payload: entries,
			RoomID:  room,
		})
	}
	return entries, nil
}

func (s *rankingService) RecalculateGlobal(ctx context.Context) ([]*models.RankingEntry, error) {
	rows, err := s.rankingRepo.ListAllTournamentEntries(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament ranking entries: %w", err)
	}

	results := make([]ranking.Entry, 0, len(rows))
	for _, row := range rows {
		results = append(results, ranking.Entry{
			UserID:        row.UserID,
			Points:        row.Points,
			Position:      row.Position,
			MatchesPlayed: row.MatchesPlayed,
			MatchesWon:    row.MatchesWon,
			MatchesLost:   row.MatchesLost,
		})
	}

	table := ranking.BuildGlobalTable(results)

	entries := make([]*models.RankingEntry, 0, len(table))
	for _, row := range table {
		tournamentsPlayed := row.TournamentsPlayed
		averagePosition := row.AveragePosition
		firstPlaces := row.FirstPlaces
		secondPlaces := row.SecondPlaces
		thirdPlaces := row.ThirdPlaces
		entries = append(entries, &models.RankingEntry{
			UserID:            row.UserID,
			Points:            row.TotalPoints,
			Position:          row.Position,
			MatchesPlayed:     row.MatchesPlayed,
			MatchesWon:        row.MatchesWon,
			MatchesLost:       row.MatchesLost,
			TournamentsPlayed: &tournamentsPlayed,
			AveragePosition:   &averagePosition,
			FirstPlaces:       &firstPlaces,
			SecondPlaces:      &secondPlaces,
			ThirdPlaces:       &thirdPlaces,
		})
	}

	err = s.txManager.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.rankingRepo.ReplaceGlobal(ctx, exec, entries)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace global ranking: %w", err)
	}

	s.logger.Info("global ranking recomputed", slog.Int("entries", len(entries)))

	if s.hub != nil {
		s.hub.BroadcastToRoom(live.GlobalRoom, live.Message{
			Type:    live.MessageGlobalRankingUpdated,
			Payload: entries,
			RoomID:  live.GlobalRoom,
		})
	}
	return entries, nil
}

func (s *rankingService) GetTournamentRanking(ctx context.Context, tournamentID, page, perPage int) ([]*models.RankingEntry, models.PageMeta, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, models.PageMeta{}, ErrTournamentNotFound
		}
		return nil, models.PageMeta{}, err
	}

	page, perPage, offset := normalizePagination(page, perPage)
	entries, total, err := s.rankingRepo.ListByTournament(ctx, tournamentID, perPage, offset)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("failed to get tournament ranking: %w", err)
	}
	return entries, models.NewPageMeta(total, page, perPage), nil
}

func (s *rankingService) GetUserRankings(ctx context.Context, userID, page, perPage int) ([]*models.RankingEntry, models.PageMeta, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, models.PageMeta{}, ErrUserNotFound
		}
		return nil, models.PageMeta{}, err
	}

	page, perPage, offset := normalizePagination(page, perPage)
	entries, total, err := s.rankingRepo.ListByUser(ctx, userID, perPage, offset)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("failed to get user rankings: %w", err)
	}
	return entries, models.NewPageMeta(total, page, perPage), nil
}

func (s *rankingService) GetGlobalRanking(ctx context.Context, page, perPage int) ([]*models.RankingEntry, models.PageMeta, error) {
	page, perPage, offset := normalizePagination(page, perPage)
	entries, total, err := s.rankingRepo.ListGlobal(ctx, perPage, offset)
	if err != nil {
		return nil, models.PageMeta{}, fmt.Errorf("failed to get global ranking: %w", err)
	}
	return entries, models.NewPageMeta(total, page, perPage), nil
}
