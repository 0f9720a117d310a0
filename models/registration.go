package models

import "time"

type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationConfirmed  RegistrationStatus = "confirmed"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
	RegistrationCanceled   RegistrationStatus = "canceled"
)

type Registration struct {
	ID           int                `json:"id"`
	UserID       int                `json:"user_id"`
	TournamentID int                `json:"tournament_id"`
	Status       RegistrationStatus `json:"status"`
	Seed         *int               `json:"seed,omitempty"`
	CharacterID  *int               `json:"character_id,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`

	User      *User      `json:"user,omitempty"`
	Character *Character `json:"character,omitempty"`
}
