package handlers

import (
	"net/http"

	"github.com/smashpoint/tournament-api/middleware"
	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(registrationService services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	registration, err := h.registrationService.Register(r.Context(), currentUser.ID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var statusFilter *models.RegistrationStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := models.RegistrationStatus(statusStr)
		statusFilter = &status
	}

	registrations, err := h.registrationService.ListByTournament(r.Context(), tournamentID, statusFilter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	registration, err := h.registrationService.ConfirmRegistration(r.Context(), id, currentUser)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": registration}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	if err := h.registrationService.CancelRegistration(r.Context(), id, currentUser); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RegistrationHandler) SetCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "registrationID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	var input struct {
		CharacterID *int `json:"character_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.registrationService.SetCharacter(r.Context(), id, currentUser, input.CharacterID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "character updated"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
