package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/smashpoint/tournament-api/models"
	"github.com/smashpoint/tournament-api/ranking"
	"github.com/smashpoint/tournament-api/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTxManager struct {
	err    error
	inside func()
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(repositories.SQLExecutor) error) error {
	if m.inside != nil {
		m.inside()
	}
	if m.err != nil {
		return m.err
	}
	return fn(nil)
}

type fakeTournamentRepo struct {
	repositories.TournamentRepository
	tournament *models.Tournament
	err        error
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.tournament, nil
}

type fakeRegistrationRepo struct {
	repositories.RegistrationRepository
	registrations []*models.Registration
}

func (r *fakeRegistrationRepo) ListByTournament(ctx context.Context, tournamentID int, statusFilter *models.RegistrationStatus, includeUser bool) ([]*models.Registration, error) {
	return r.registrations, nil
}

type fakeMatchRepo struct {
	repositories.MatchRepository
	matches []*models.Match
}

func (r *fakeMatchRepo) ListCompletedByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	return r.matches, nil
}

type fakeRankingRepo struct {
	repositories.RankingRepository

	mu             sync.Mutex
	replaced       map[int][]*models.RankingEntry
	globalReplaced []*models.RankingEntry
	tournamentRows []*models.RankingEntry
	listEntries    []*models.RankingEntry
	listTotal      int
	replaceErr     error
}

func (r *fakeRankingRepo) ReplaceForTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, entries []*models.RankingEntry) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaced == nil {
		r.replaced = make(map[int][]*models.RankingEntry)
	}
	r.replaced[tournamentID] = entries
	return nil
}

func (r *fakeRankingRepo) ReplaceGlobal(ctx context.Context, exec repositories.SQLExecutor, entries []*models.RankingEntry) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globalReplaced = entries
	return nil
}

func (r *fakeRankingRepo) ListAllTournamentEntries(ctx context.Context, exec repositories.SQLExecutor) ([]*models.RankingEntry, error) {
	return r.tournamentRows, nil
}

func (r *fakeRankingRepo) ListGlobal(ctx context.Context, limit, offset int) ([]*models.RankingEntry, int, error) {
	return r.listEntries, r.listTotal, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []interface{}
	rooms    []string
}

func (n *fakeNotifier) BroadcastToRoom(roomID string, message interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rooms = append(n.rooms, roomID)
	n.messages = append(n.messages, message)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func confirmedRegistrations(userIDs ...int) []*models.Registration {
	regs := make([]*models.Registration, 0, len(userIDs))
	for _, id := range userIDs {
		regs = append(regs, &models.Registration{
			UserID: id,
			Status: models.RegistrationConfirmed,
		})
	}
	return regs
}

func completedMatch(p1, p2, winner int) *models.Match {
	loser := p1
	if winner == p1 {
		loser = p2
	}
	return &models.Match{
		Player1ID: p1,
		Player2ID: p2,
		WinnerID:  &winner,
		LoserID:   &loser,
		Status:    models.MatchStatusCompleted,
	}
}

func newTestRankingService(
	txManager repositories.TxManager,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	matchRepo repositories.MatchRepository,
	rankingRepo repositories.RankingRepository,
	hub RankingNotifier,
) RankingService {
	return NewRankingService(
		txManager, tournamentRepo, registrationRepo, matchRepo, rankingRepo, nil,
		ranking.StandardPolicy{}, hub, testLogger(),
	)
}

func TestRecalculateTournamentNotFound(t *testing.T) {
	svc := newTestRankingService(
		&fakeTxManager{},
		&fakeTournamentRepo{err: repositories.ErrTournamentNotFound},
		&fakeRegistrationRepo{},
		&fakeMatchRepo{},
		&fakeRankingRepo{},
		nil,
	)

	_, err := svc.RecalculateTournament(context.Background(), 42)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestRecalculateTournamentNotCompleted(t *testing.T) {
	for _, status := range []models.TournamentStatus{
		models.StatusPreparing, models.StatusOngoing, models.StatusCanceled,
	} {
		t.Run(string(status), func(t *testing.T) {
			svc := newTestRankingService(
				&fakeTxManager{},
				&fakeTournamentRepo{tournament: &models.Tournament{ID: 1, Status: status}},
				&fakeRegistrationRepo{},
				&fakeMatchRepo{},
				&fakeRankingRepo{},
				nil,
			)

			_, err := svc.RecalculateTournament(context.Background(), 1)
			assert.ErrorIs(t, err, ErrTournamentNotCompleted)
		})
	}
}

func TestRecalculateTournamentReplacesRanking(t *testing.T) {
	rankingRepo := &fakeRankingRepo{}
	hub := &fakeNotifier{}
	svc := newTestRankingService(
		&fakeTxManager{},
		&fakeTournamentRepo{tournament: &models.Tournament{ID: 7, Status: models.StatusCompleted}},
		&fakeRegistrationRepo{registrations: confirmedRegistrations(1, 2, 3, 4)},
		&fakeMatchRepo{matches: []*models.Match{
			completedMatch(1, 2, 1),
			completedMatch(3, 4, 3),
		}},
		rankingRepo,
		hub,
	)

	entries, err := svc.RecalculateTournament(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	// Победители выше, при равенстве очков меньший id впереди.
	assert.Equal(t, 1, entries[0].UserID)
	assert.Equal(t, 3, entries[1].UserID)
	assert.Equal(t, 2, entries[2].UserID)
	assert.Equal(t, 4, entries[3].UserID)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Position)
		require.NotNil(t, e.TournamentID)
		assert.Equal(t, 7, *e.TournamentID)
	}
	assert.Equal(t, 3, entries[0].Points)
	assert.Equal(t, 0, entries[2].Points)

	assert.Equal(t, entries, rankingRepo.replaced[7])
	assert.Equal(t, 1, hub.count())
	assert.Equal(t, "tournament_7", hub.rooms[0])
}

func TestRecalculateTournamentIncludesPlayersWithoutMatches(t *testing.T) {
	rankingRepo := &fakeRankingRepo{}
	svc := newTestRankingService(
		&fakeTxManager{},
		&fakeTournamentRepo{tournament: &models.Tournament{ID: 3, Status: models.StatusCompleted}},
		&fakeRegistrationRepo{registrations: confirmedRegistrations(10, 20)},
		&fakeMatchRepo{},
		rankingRepo,
		nil,
	)

	entries, err := svc.RecalculateTournament(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 10, entries[0].UserID)
	assert.Equal(t, 1, entries[0].Position)
	assert.Equal(t, 20, entries[1].UserID)
	assert.Equal(t, 2, entries[1].Position)
	for _, e := range entries {
		assert.Zero(t, e.Points)
		assert.Zero(t, e.MatchesPlayed)
	}
}

func TestRecalculateTournamentConcurrentConflict(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var startedOnce sync.Once
	txManager := &fakeTxManager{inside: func() {
		startedOnce.Do(func() { close(started) })
		<-release
	}}
	svc := newTestRankingService(
		txManager,
		&fakeTournamentRepo{tournament: &models.Tournament{ID: 5, Status: models.StatusCompleted}},
		&fakeRegistrationRepo{registrations: confirmedRegistrations(1, 2)},
		&fakeMatchRepo{},
		&fakeRankingRepo{},
		nil,
	)

	done := make(chan error, 1)
	go func() {
		_, err := svc.RecalculateTournament(context.Background(), 5)
		done <- err
	}()

	<-started
	_, err := svc.RecalculateTournament(context.Background(), 5)
	assert.ErrorIs(t, err, ErrRankingRecomputeInProgress)

	close(release)
	require.NoError(t, <-done)

	// После завершения первого пересчёта замок снят.
	_, err = svc.RecalculateTournament(context.Background(), 5)
	assert.NoError(t, err)
}

func TestRecalculateTournamentStorageFailure(t *testing.T) {
	storageErr := errors.New("connection reset")
	hub := &fakeNotifier{}
	svc := newTestRankingService(
		&fakeTxManager{err: storageErr},
		&fakeTournamentRepo{tournament: &models.Tournament{ID: 9, Status: models.StatusCompleted}},
		&fakeRegistrationRepo{registrations: confirmedRegistrations(1, 2)},
		&fakeMatchRepo{},
		&fakeRankingRepo{},
		hub,
	)

	_, err := svc.RecalculateTournament(context.Background(), 9)
	assert.ErrorIs(t, err, storageErr)
	assert.Zero(t, hub.count(), "no broadcast on failed recompute")
}

func TestRecalculateGlobalAggregates(t *testing.T) {
	tid1, tid2 := 1, 2
	rankingRepo := &fakeRankingRepo{
		tournamentRows: []*models.RankingEntry{
			{TournamentID: &tid1, UserID: 100, Points: 3, Position: 2, MatchesPlayed: 2, MatchesWon: 1, MatchesLost: 1},
			{TournamentID: &tid1, UserID: 200, Points: 6, Position: 1, MatchesPlayed: 2, MatchesWon: 2},
			{TournamentID: &tid2, UserID: 100, Points: 6, Position: 1, MatchesPlayed: 2, MatchesWon: 2},
		},
	}
	hub := &fakeNotifier{}
	svc := newTestRankingService(
		&fakeTxManager{},
		&fakeTournamentRepo{},
		&fakeRegistrationRepo{},
		&fakeMatchRepo{},
		rankingRepo,
		hub,
	)

	entries, err := svc.RecalculateGlobal(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, 100, first.UserID)
	assert.Equal(t, 9, first.Points)
	assert.Equal(t, 1, first.Position)
	assert.Nil(t, first.TournamentID)
	require.NotNil(t, first.TournamentsPlayed)
	assert.Equal(t, 2, *first.TournamentsPlayed)
	require.NotNil(t, first.AveragePosition)
	assert.InDelta(t, 1.5, *first.AveragePosition, 1e-9)
	require.NotNil(t, first.FirstPlaces)
	assert.Equal(t, 1, *first.FirstPlaces)
	require.NotNil(t, first.SecondPlaces)
	assert.Equal(t, 1, *first.SecondPlaces)

	second := entries[1]
	assert.Equal(t, 200, second.UserID)
	assert.Equal(t, 6, second.Points)
	assert.Equal(t, 2, second.Position)

	assert.Equal(t, entries, rankingRepo.globalReplaced)
	assert.Equal(t, 1, hub.count())
	assert.Equal(t, "global", hub.rooms[0])
}

func TestRecalculateGlobalEmpty(t *testing.T) {
	rankingRepo := &fakeRankingRepo{}
	svc := newTestRankingService(
		&fakeTxManager{},
		&fakeTournamentRepo{},
		&fakeRegistrationRepo{},
		&fakeMatchRepo{},
		rankingRepo,
		nil,
	)

	entries, err := svc.RecalculateGlobal(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, rankingRepo.globalReplaced)
}

func TestGetGlobalRankingPagination(t *testing.T) {
	rankingRepo := &fakeRankingRepo{
		listEntries: []*models.RankingEntry{{UserID: 1, Position: 1}},
		listTotal:   25,
	}
	svc := newTestRankingService(
		&fakeTxManager{},
		&fakeTournamentRepo{},
		&fakeRegistrationRepo{},
		&fakeMatchRepo{},
		rankingRepo,
		nil,
	)

	_, meta, err := svc.GetGlobalRanking(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, meta.Total)
	assert.Equal(t, 3, meta.Pages)
	assert.Equal(t, 2, meta.CurrentPage)
	assert.Equal(t, 10, meta.PerPage)

	// Значения вне диапазона приводятся к значениям по умолчанию.
	_, meta, err = svc.GetGlobalRanking(context.Background(), 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.CurrentPage)
	assert.Equal(t, defaultPerPage, meta.PerPage)
}

func TestRecalculateTournamentIdempotent(t *testing.T) {
	rankingRepo := &fakeRankingRepo{}
	svc := newTestRankingService(
		&fakeTxManager{},
		&fakeTournamentRepo{tournament: &models.Tournament{ID: 11, Status: models.StatusCompleted, EndDate: time.Now()}},
		&fakeRegistrationRepo{registrations: confirmedRegistrations(1, 2, 3)},
		&fakeMatchRepo{matches: []*models.Match{completedMatch(1, 2, 2)}},
		rankingRepo,
		nil,
	)

	first, err := svc.RecalculateTournament(context.Background(), 11)
	require.NoError(t, err)
	second, err := svc.RecalculateTournament(context.Background(), 11)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].UserID, second[i].UserID)
		assert.Equal(t, first[i].Points, second[i].Points)
		assert.Equal(t, first[i].Position, second[i].Position)
	}
}
