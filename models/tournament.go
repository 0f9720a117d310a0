package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusPreparing TournamentStatus = "preparing"
	StatusOngoing   TournamentStatus = "ongoing"
	StatusCompleted TournamentStatus = "completed"
	StatusCanceled  TournamentStatus = "canceled"
)

// Tournament представляет турнир.
type Tournament struct {
	ID              int              `json:"id" db:"id"`
	Name            string           `json:"name" db:"name"`
	Description     *string          `json:"description,omitempty" db:"description"`
	Location        *string          `json:"location,omitempty" db:"location"`
	Format          *string          `json:"format,omitempty" db:"format"`
	OrganizerID     int              `json:"organizer_id" db:"organizer_id"`
	StartDate       time.Time        `json:"start_date" db:"start_date"`
	EndDate         time.Time        `json:"end_date" db:"end_date"`
	Status          TournamentStatus `json:"status" db:"status"`
	MaxParticipants *int             `json:"max_participants,omitempty" db:"max_participants"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Organizer     *User          `json:"organizer,omitempty" db:"-"`
	Registrations []Registration `json:"registrations,omitempty" db:"-"`
	Matches       []Match        `json:"matches,omitempty" db:"-"`
}

// RegistrationOpen сообщает, открыта ли запись на турнир.
func (t *Tournament) RegistrationOpen(confirmedCount int) bool {
	if t.Status != StatusPreparing {
		return false
	}
	return t.MaxParticipants == nil || confirmedCount < *t.MaxParticipants
}
