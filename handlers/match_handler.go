package handlers

import (
	"net/http"

	"github.com/smashpoint/tournament-api/middleware"
	"github.com/smashpoint/tournament-api/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	var input services.CreateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.TournamentID = tournamentID

	match, err := h.matchService.CreateMatch(r.Context(), currentUser, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	var input services.ReportResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.ReportResult(r.Context(), id, currentUser, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	if err := h.matchService.CancelMatch(r.Context(), id, currentUser); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"message": "match canceled"}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := readIDParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	currentUser, _ := middleware.UserFromContext(r.Context())

	if err := h.matchService.DeleteMatch(r.Context(), id, currentUser); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
