package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed    = errors.New("validation failed")
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrRegistrationNotOpen = errors.New("tournament registration is not open")
	ErrTournamentFull      = errors.New("tournament registration is full")

	// Ошибки конфликтов
	ErrUserEmailConflict      = errors.New("email address is already in use")
	ErrRegistrationConflict   = errors.New("user is already registered for this tournament")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrCharacterNameConflict  = errors.New("character name already exists for this game")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed   = errors.New("authentication failed")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound         = errors.New("user not found")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrCharacterNotFound    = errors.New("character not found")

	// Ошибки турниров
	ErrTournamentNameRequired            = errors.New("tournament name is required")
	ErrTournamentInvalidDateRange        = errors.New("tournament end date must be after start date")
	ErrTournamentInvalidCapacity         = errors.New("tournament max participants must be positive")
	ErrTournamentInvalidStatus           = errors.New("invalid tournament status provided")
	ErrTournamentInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrTournamentHasUnfinishedMatches    = errors.New("tournament has unfinished matches")

	// Ошибки матчей
	ErrMatchPlayersIdentical  = errors.New("match players must be different users")
	ErrMatchWinnerNotPlayer   = errors.New("winner must be one of the match players")
	ErrMatchAlreadyCompleted  = errors.New("match result has already been recorded")
	ErrMatchPlayersUnregister = errors.New("both players must be confirmed participants of the tournament")

	// Ошибки пересчёта рейтинга
	ErrTournamentNotCompleted     = errors.New("ranking can only be computed for a completed tournament")
	ErrRankingRecomputeInProgress = errors.New("ranking recompute already in progress for this tournament")
)
