package services

import (
	"context"
	"testing"
	"time"

	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTournamentRepo struct {
	repositories.TournamentRepository

	tournament *models.Tournament
	err        error
	autoList   []*models.Tournament

	statusUpdates map[int]models.TournamentStatus
}

func (r *stubTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.tournament, nil
}

func (r *stubTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	if r.statusUpdates == nil {
		r.statusUpdates = make(map[int]models.TournamentStatus)
	}
	r.statusUpdates[id] = status
	return nil
}

func (r *stubTournamentRepo) GetTournamentsForAutoStatusUpdate(ctx context.Context, exec repositories.SQLExecutor, currentTime time.Time) ([]*models.Tournament, error) {
	return r.autoList, nil
}

type stubMatchRepo struct {
	repositories.MatchRepository
	undecided int
}

func (r *stubMatchRepo) CountUndecidedByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	return r.undecided, nil
}

type recordingRankingService struct {
	RankingService

	tournamentCalls []int
	globalCalls     int
	err             error
}

func (s *recordingRankingService) RecalculateTournament(ctx context.Context, tournamentID int) ([]*models.RankingEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.tournamentCalls = append(s.tournamentCalls, tournamentID)
	return nil, nil
}

func (s *recordingRankingService) RecalculateGlobal(ctx context.Context) ([]*models.RankingEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.globalCalls++
	return nil, nil
}

func newTestTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	rankingSvc RankingService,
	hub RankingNotifier,
) TournamentService {
	return NewTournamentService(tournamentRepo, matchRepo, nil, rankingSvc, hub, testLogger())
}

func organizerUser(id int) *models.User {
	return &models.User{ID: id, Role: models.RoleOrganizer}
}

func TestStatusTransitionTable(t *testing.T) {
	tests := []struct {
		current models.TournamentStatus
		next    models.TournamentStatus
		allowed bool
	}{
		{models.StatusPreparing, models.StatusOngoing, true},
		{models.StatusPreparing, models.StatusCanceled, true},
		{models.StatusPreparing, models.StatusCompleted, false},
		{models.StatusOngoing, models.StatusCompleted, true},
		{models.StatusOngoing, models.StatusCanceled, true},
		{models.StatusOngoing, models.StatusPreparing, false},
		{models.StatusCompleted, models.StatusOngoing, false},
		{models.StatusCanceled, models.StatusPreparing, false},
		{models.StatusCompleted, models.StatusCompleted, true},
	}

	for _, tt := range tests {
		got := isValidStatusTransition(tt.current, tt.next)
		assert.Equal(t, tt.allowed, got, "%s -> %s", tt.current, tt.next)
	}
}

func TestCreateTournamentValidation(t *testing.T) {
	svc := newTestTournamentService(&stubTournamentRepo{}, &stubMatchRepo{}, nil, nil)
	now := time.Now()

	_, err := svc.CreateTournament(context.Background(), 1, CreateTournamentInput{
		StartDate: now, EndDate: now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrTournamentNameRequired)

	_, err = svc.CreateTournament(context.Background(), 1, CreateTournamentInput{
		Name: "Weekly", StartDate: now.Add(time.Hour), EndDate: now,
	})
	assert.ErrorIs(t, err, ErrTournamentInvalidDateRange)

	badCap := 0
	_, err = svc.CreateTournament(context.Background(), 1, CreateTournamentInput{
		Name: "Weekly", StartDate: now, EndDate: now.Add(time.Hour), MaxParticipants: &badCap,
	})
	assert.ErrorIs(t, err, ErrTournamentInvalidCapacity)
}

func TestChangeStatusForbidden(t *testing.T) {
	repo := &stubTournamentRepo{tournament: &models.Tournament{
		ID: 1, OrganizerID: 2, Status: models.StatusPreparing,
	}}
	svc := newTestTournamentService(repo, &stubMatchRepo{}, nil, nil)

	// Чужой организатор не может управлять турниром.
	_, err := svc.ChangeStatus(context.Background(), 1, organizerUser(5), models.StatusOngoing)
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// Администратор — может.
	admin := &models.User{ID: 9, Role: models.RoleAdmin}
	updated, err := svc.ChangeStatus(context.Background(), 1, admin, models.StatusOngoing)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOngoing, updated.Status)
}

func TestChangeStatusInvalidTransition(t *testing.T) {
	repo := &stubTournamentRepo{tournament: &models.Tournament{
		ID: 1, OrganizerID: 2, Status: models.StatusCompleted,
	}}
	svc := newTestTournamentService(repo, &stubMatchRepo{}, nil, nil)

	_, err := svc.ChangeStatus(context.Background(), 1, organizerUser(2), models.StatusOngoing)
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)
	assert.Empty(t, repo.statusUpdates)
}

func TestChangeStatusCompletionBlockedByUnfinishedMatches(t *testing.T) {
	repo := &stubTournamentRepo{tournament: &models.Tournament{
		ID: 4, OrganizerID: 2, Status: models.StatusOngoing,
	}}
	rankingSvc := &recordingRankingService{}
	svc := newTestTournamentService(repo, &stubMatchRepo{undecided: 2}, rankingSvc, nil)

	_, err := svc.ChangeStatus(context.Background(), 4, organizerUser(2), models.StatusCompleted)
	assert.ErrorIs(t, err, ErrTournamentHasUnfinishedMatches)
	assert.Empty(t, repo.statusUpdates)
	assert.Empty(t, rankingSvc.tournamentCalls)
}

func TestChangeStatusCompletionTriggersRecompute(t *testing.T) {
	repo := &stubTournamentRepo{tournament: &models.Tournament{
		ID: 4, OrganizerID: 2, Status: models.StatusOngoing,
	}}
	rankingSvc := &recordingRankingService{}
	hub := &fakeNotifier{}
	svc := newTestTournamentService(repo, &stubMatchRepo{}, rankingSvc, hub)

	updated, err := svc.ChangeStatus(context.Background(), 4, organizerUser(2), models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, models.StatusCompleted, repo.statusUpdates[4])

	assert.Equal(t, []int{4}, rankingSvc.tournamentCalls)
	assert.Equal(t, 1, rankingSvc.globalCalls)
	require.Equal(t, 1, hub.count())
	assert.Equal(t, "tournament_4", hub.rooms[0])
}

func TestChangeStatusRecomputeFailureDoesNotFailTransition(t *testing.T) {
	repo := &stubTournamentRepo{tournament: &models.Tournament{
		ID: 4, OrganizerID: 2, Status: models.StatusOngoing,
	}}
	rankingSvc := &recordingRankingService{err: ErrRankingRecomputeInProgress}
	svc := newTestTournamentService(repo, &stubMatchRepo{}, rankingSvc, nil)

	// Сбой пересчёта логируется, но смена статуса уже состоялась.
	updated, err := svc.ChangeStatus(context.Background(), 4, organizerUser(2), models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
}

func TestAutoUpdateTournamentStatuses(t *testing.T) {
	now := time.Now()
	repo := &stubTournamentRepo{autoList: []*models.Tournament{
		{ID: 1, Status: models.StatusPreparing, StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour)},
		{ID: 2, Status: models.StatusOngoing, StartDate: now.Add(-2 * time.Hour), EndDate: now.Add(-time.Minute)},
	}}
	rankingSvc := &recordingRankingService{}
	svc := newTestTournamentService(repo, &stubMatchRepo{}, rankingSvc, nil)

	require.NoError(t, svc.AutoUpdateTournamentStatusesByDates(context.Background(), now))

	assert.Equal(t, models.StatusOngoing, repo.statusUpdates[1])
	assert.Equal(t, models.StatusCompleted, repo.statusUpdates[2])
	assert.Equal(t, []int{2}, rankingSvc.tournamentCalls)
	assert.Equal(t, 1, rankingSvc.globalCalls)
}

func TestAutoUpdateSkipsOngoingWithUnfinishedMatches(t *testing.T) {
	now := time.Now()
	repo := &stubTournamentRepo{autoList: []*models.Tournament{
		{ID: 3, Status: models.StatusOngoing, StartDate: now.Add(-2 * time.Hour), EndDate: now.Add(-time.Minute)},
	}}
	rankingSvc := &recordingRankingService{}
	svc := newTestTournamentService(repo, &stubMatchRepo{undecided: 1}, rankingSvc, nil)

	require.NoError(t, svc.AutoUpdateTournamentStatusesByDates(context.Background(), now))

	assert.Empty(t, repo.statusUpdates)
	assert.Empty(t, rankingSvc.tournamentCalls)
}

func TestDeleteTournamentOngoingForbidden(t *testing.T) {
	repo := &stubTournamentRepo{tournament: &models.Tournament{
		ID: 6, OrganizerID: 2, Status: models.StatusOngoing,
	}}
	svc := newTestTournamentService(repo, &stubMatchRepo{}, nil, nil)

	err := svc.DeleteTournament(context.Background(), 6, organizerUser(2))
	assert.ErrorIs(t, err, ErrTournamentInvalidStatusTransition)
}
