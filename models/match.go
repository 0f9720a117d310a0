package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCanceled   MatchStatus = "canceled"
)

type Match struct {
	ID           int         `json:"id"`
	TournamentID int         `json:"tournament_id"`
	Round        int         `json:"round"`
	Player1ID    int         `json:"player1_id"`
	Player2ID    int         `json:"player2_id"`
	WinnerID     *int        `json:"winner_id,omitempty"`
	LoserID      *int        `json:"loser_id,omitempty"`
	Score        *string     `json:"score,omitempty"`
	Status       MatchStatus `json:"status"`
	ScheduledAt  *time.Time  `json:"scheduled_at,omitempty"`

	Player1CharacterID *int `json:"player1_character_id,omitempty"`
	Player2CharacterID *int `json:"player2_character_id,omitempty"`

	Player1 *User `json:"player1,omitempty"`
	Player2 *User `json:"player2,omitempty"`
	Winner  *User `json:"winner,omitempty"`
}
