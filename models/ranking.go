package models

import "time"

// RankingEntry — одна строка рассчитанного классификационного списка.
// TournamentID == nil означает глобальный (межтурнирный) срез.
type RankingEntry struct {
	ID            int       `json:"id" db:"id"`
	TournamentID  *int      `json:"tournament_id,omitempty" db:"tournament_id"`
	UserID        int       `json:"user_id" db:"user_id"`
	Points        int       `json:"points" db:"points"`
	Position      int       `json:"position" db:"position"`
	MatchesPlayed int       `json:"matches_played" db:"matches_played"`
	MatchesWon    int       `json:"matches_won" db:"matches_won"`
	MatchesLost   int       `json:"matches_lost" db:"matches_lost"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`

	// Заполняются только для глобального среза.
	TournamentsPlayed *int     `json:"tournaments_played,omitempty" db:"tournaments_played"`
	AveragePosition   *float64 `json:"average_position,omitempty" db:"average_position"`
	FirstPlaces       *int     `json:"first_places,omitempty" db:"first_places"`
	SecondPlaces      *int     `json:"second_places,omitempty" db:"second_places"`
	ThirdPlaces       *int     `json:"third_places,omitempty" db:"third_places"`

	// Optional linked data, not directly in DB table, populated by service
	User       *User       `json:"user,omitempty" db:"-"`
	Tournament *Tournament `json:"-" db:"-"`
}

// UserRankingStats — сводная статистика пользователя по всем турнирам.
type UserRankingStats struct {
	UserID            int                `json:"user_id"`
	TournamentsPlayed int                `json:"tournaments_played"`
	TotalPoints       int                `json:"total_points"`
	AveragePosition   float64            `json:"average_position"`
	FirstPlaces       int                `json:"first_places"`
	SecondPlaces      int                `json:"second_places"`
	ThirdPlaces       int                `json:"third_places"`
	Evolution         []RankingEvolution `json:"evolution"`
}

// RankingEvolution — позиция пользователя в отдельном турнире,
// упорядочено по дате начала турнира.
type RankingEvolution struct {
	TournamentID   int       `json:"tournament_id"`
	TournamentName string    `json:"tournament_name"`
	StartDate      time.Time `json:"start_date"`
	Position       int       `json:"position"`
	Points         int       `json:"points"`
}
