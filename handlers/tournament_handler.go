package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/smashpoint/tournament-api/middleware"
	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/repositories"
	"github.com/smashpoint/tournament-api/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
	matchService      services.MatchService
}

func NewTournamentHandler(tournamentService services.TournamentService, matchService services.MatchService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		matchService:      matchService,
	}
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	currentUser, ok := middleware.UserFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), currentUser.ID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repositories.ListTournamentsFilter{}

	if organizerStr := q.Get("organizer_id"); organizerStr != "" {
		organizerID, errConv := strconv.Atoi(organizerStr)
		if errConv != nil {
			badRequestResponse(w, r, errors.New("invalid organizer_id parameter"))
			return
		}
		filter.OrganizerID = &organizerID
	}
	if statusStr := q.Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		filter.Status = &status
	}
	if search := q.Get("search"); search != "" {
		filter.Search = &search
	}

	page, perPage := readPagination(r)
	tournaments, meta, err := h.tournamentService.ListTournaments(r.Context(), filter, page, perPage)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments, "meta": meta}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	var input services.UpdateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.UpdateTournament(r.Context(), id, currentUser, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	var input struct {
		Status models.TournamentStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.ChangeStatus(r.Context(), id, currentUser, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	if err := h.tournamentService.DeleteTournament(r.Context(), id, currentUser); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	q := r.URL.Query()
	filter := repositories.ListMatchesFilter{}
	if roundStr := q.Get("round"); roundStr != "" {
		round, errConv := strconv.Atoi(roundStr)
		if errConv != nil {
			badRequestResponse(w, r, errors.New("invalid round parameter"))
			return
		}
		filter.Round = &round
	}
	if statusStr := q.Get("status"); statusStr != "" {
		status := models.MatchStatus(statusStr)
		filter.Status = &status
	}

	page, perPage := readPagination(r)
	matches, meta, err := h.matchService.ListByTournament(r.Context(), id, filter, page, perPage)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches, "meta": meta}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
