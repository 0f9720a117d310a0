package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/repositories"
	"golang.org/x/sync/errgroup"
)

type StatsService interface {
	// GetUserStats собирает сводную статистику игрока по всем турнирам,
	// включая историю позиций в хронологии.
	GetUserStats(ctx context.Context, userID int) (*models.UserRankingStats, error)
}

type statsService struct {
	userRepo    repositories.UserRepository
	rankingRepo repositories.RankingRepository
}

func NewStatsService(userRepo repositories.UserRepository, rankingRepo repositories.RankingRepository) StatsService {
	return &statsService{
		userRepo:    userRepo,
		rankingRepo: rankingRepo,
	}
}

func (s *statsService) GetUserStats(ctx context.Context, userID int) (*models.UserRankingStats, error) {
	var evolution []models.RankingEvolution

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := s.userRepo.GetByID(gctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("ошибка при проверке пользователя: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		evolution, err = s.rankingRepo.ListUserEvolution(gctx, userID)
		if err != nil {
			return fmt.Errorf("ошибка получения истории результатов: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &models.UserRankingStats{
		UserID:    userID,
		Evolution: evolution,
	}
	if len(evolution) == 0 {
		return stats, nil
	}

	positionsSum := 0
	for _, ev := range evolution {
		stats.TournamentsPlayed++
		stats.TotalPoints += ev.Points
		positionsSum += ev.Position
		switch ev.Position {
		case 1:
			stats.FirstPlaces++
		case 2:
			stats.SecondPlaces++
		case 3:
			stats.ThirdPlaces++
		}
	}
	stats.AveragePosition = float64(positionsSum) / float64(stats.TournamentsPlayed)

	return stats, nil
}
