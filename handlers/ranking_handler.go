package handlers

import (
	"net/http"

	"github.com/smashpoint/tournament-api/services"
)

type RankingHandler struct {
	rankingService services.RankingService
}

func NewRankingHandler(rankingService services.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

// GetTournamentRanking отдаёт классификацию турнира постранично.
func (h *RankingHandler) GetTournamentRanking(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	page, perPage := readPagination(r)
	entries, meta, err := h.rankingService.GetTournamentRanking(r.Context(), tournamentID, page, perPage)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": entries, "meta": meta}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecalculateTournamentRanking принудительно пересобирает классификацию турнира.
func (h *RankingHandler) RecalculateTournamentRanking(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := readIDParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entries, err := h.rankingService.RecalculateTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RankingHandler) GetGlobalRanking(w http.ResponseWriter, r *http.Request) {
	page, perPage := readPagination(r)
	entries, meta, err := h.rankingService.GetGlobalRanking(r.Context(), page, perPage)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": entries, "meta": meta}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RankingHandler) RecalculateGlobalRanking(w http.ResponseWriter, r *http.Request) {
	entries, err := h.rankingService.RecalculateGlobal(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": entries}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetUserRankings отдаёт турнирные результаты конкретного игрока.
func (h *RankingHandler) GetUserRankings(w http.ResponseWriter, r *http.Request) {
	userID, err := readIDParam(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	page, perPage := readPagination(r)
	entries, meta, err := h.rankingService.GetUserRankings(r.Context(), userID, page, perPage)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"rankings": entries, "meta": meta}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
