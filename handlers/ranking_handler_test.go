package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRankingService struct {
	services.RankingService

	entries []*models.RankingEntry
	meta    models.PageMeta
	err     error

	recalculated []int
}

func (s *fakeRankingService) GetTournamentRanking(ctx context.Context, tournamentID, page, perPage int) ([]*models.RankingEntry, models.PageMeta, error) {
	if s.err != nil {
		return nil, models.PageMeta{}, s.err
	}
	return s.entries, s.meta, nil
}

func (s *fakeRankingService) GetGlobalRanking(ctx context.Context, page, perPage int) ([]*models.RankingEntry, models.PageMeta, error) {
	if s.err != nil {
		return nil, models.PageMeta{}, s.err
	}
	return s.entries, s.meta, nil
}

func (s *fakeRankingService) RecalculateTournament(ctx context.Context, tournamentID int) ([]*models.RankingEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.recalculated = append(s.recalculated, tournamentID)
	return s.entries, nil
}

func newRankingRouter(svc services.RankingService) *chi.Mux {
	h := NewRankingHandler(svc)
	router := chi.NewRouter()
	router.Get("/tournaments/{tournamentID}/ranking", h.GetTournamentRanking)
	router.Post("/tournaments/{tournamentID}/ranking/recalculate", h.RecalculateTournamentRanking)
	router.Get("/rankings/global", h.GetGlobalRanking)
	return router
}

func TestGetTournamentRankingOK(t *testing.T) {
	tid := 7
	svc := &fakeRankingService{
		entries: []*models.RankingEntry{
			{TournamentID: &tid, UserID: 1, Points: 6, Position: 1},
			{TournamentID: &tid, UserID: 2, Points: 3, Position: 2},
		},
		meta: models.NewPageMeta(2, 1, 10),
	}
	router := newRankingRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/tournaments/7/ranking", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"ranking"`)
	assert.Contains(t, rec.Body.String(), `"meta"`)
}

func TestGetTournamentRankingInvalidID(t *testing.T) {
	router := newRankingRouter(&fakeRankingService{})

	req := httptest.NewRequest(http.MethodGet, "/tournaments/abc/ranking", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTournamentRankingNotFound(t *testing.T) {
	router := newRankingRouter(&fakeRankingService{err: services.ErrTournamentNotFound})

	req := httptest.NewRequest(http.MethodGet, "/tournaments/99/ranking", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecalculateTournamentRankingErrors(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"not completed", services.ErrTournamentNotCompleted, http.StatusBadRequest},
		{"recompute in progress", services.ErrRankingRecomputeInProgress, http.StatusConflict},
		{"not found", services.ErrTournamentNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRankingRouter(&fakeRankingService{err: tt.serviceErr})

			req := httptest.NewRequest(http.MethodPost, "/tournaments/5/ranking/recalculate", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRecalculateTournamentRankingOK(t *testing.T) {
	svc := &fakeRankingService{entries: []*models.RankingEntry{}}
	router := newRankingRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/tournaments/5/ranking/recalculate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{5}, svc.recalculated)
}

func TestGetGlobalRankingOK(t *testing.T) {
	tp := 2
	avg := 1.5
	svc := &fakeRankingService{
		entries: []*models.RankingEntry{
			{UserID: 1, Points: 9, Position: 1, TournamentsPlayed: &tp, AveragePosition: &avg},
		},
		meta: models.NewPageMeta(1, 1, 10),
	}
	router := newRankingRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/rankings/global?page=1&per_page=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tournaments_played"`)
	assert.Contains(t, rec.Body.String(), `"average_position"`)
}
