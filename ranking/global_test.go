package ranking

import (
	"math"
	"reflect"
	"testing"
)

func TestBuildGlobalTableSingleUser(t *testing.T) {
	// Пользователь с результатами по трём турнирам:
	// очки [3, 0, 6], позиции [2, 4, 1].
	results := []Entry{
		{UserID: 1, Points: 3, Position: 2, MatchesPlayed: 2, MatchesWon: 1, MatchesLost: 1},
		{UserID: 1, Points: 0, Position: 4, MatchesPlayed: 1, MatchesLost: 1},
		{UserID: 1, Points: 6, Position: 1, MatchesPlayed: 2, MatchesWon: 2},
	}

	global := BuildGlobalTable(results)
	if len(global) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(global))
	}

	g := global[0]
	if g.TotalPoints != 9 {
		t.Errorf("total points = %d, want 9", g.TotalPoints)
	}
	if math.Abs(g.AveragePosition-7.0/3.0) > 1e-9 {
		t.Errorf("average position = %f, want %f", g.AveragePosition, 7.0/3.0)
	}
	if g.TournamentsPlayed != 3 || g.FirstPlaces != 1 || g.SecondPlaces != 1 || g.ThirdPlaces != 0 {
		t.Errorf("unexpected aggregates: %+v", g)
	}
	if g.MatchesPlayed != 5 || g.MatchesWon != 3 || g.MatchesLost != 2 {
		t.Errorf("unexpected match totals: %+v", g)
	}
	if g.Position != 1 {
		t.Errorf("position = %d, want 1", g.Position)
	}
}

func TestBuildGlobalTableOrdering(t *testing.T) {
	results := []Entry{
		{UserID: 1, Points: 6, Position: 1},
		{UserID: 2, Points: 6, Position: 2},
		{UserID: 3, Points: 3, Position: 3},
		{UserID: 1, Points: 0, Position: 3},
		{UserID: 2, Points: 0, Position: 2},
	}

	global := BuildGlobalTable(results)
	if len(global) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(global))
	}

	// Пользователи 1 и 2 имеют по 6 очков и одинаковую среднюю позицию (2.0),
	// побеждает меньший id.
	if global[0].UserID != 1 || global[0].Position != 1 {
		t.Errorf("unexpected first entry: %+v", global[0])
	}
	if global[1].UserID != 2 || global[1].Position != 2 {
		t.Errorf("unexpected second entry: %+v", global[1])
	}
	if global[2].UserID != 3 || global[2].Position != 3 {
		t.Errorf("unexpected third entry: %+v", global[2])
	}
}

func TestBuildGlobalTableAveragePositionTieBreak(t *testing.T) {
	results := []Entry{
		{UserID: 5, Points: 3, Position: 3},
		{UserID: 9, Points: 3, Position: 1},
	}

	global := BuildGlobalTable(results)
	// При равных очках выигрывает лучшая (меньшая) средняя позиция.
	if global[0].UserID != 9 {
		t.Errorf("expected user 9 first, got %+v", global[0])
	}
}

func TestBuildGlobalTableEmpty(t *testing.T) {
	if got := BuildGlobalTable(nil); len(got) != 0 {
		t.Fatalf("expected empty table, got %+v", got)
	}
}

func TestBuildGlobalTableIdempotent(t *testing.T) {
	results := []Entry{
		{UserID: 2, Points: 3, Position: 1, MatchesPlayed: 1, MatchesWon: 1},
		{UserID: 4, Points: 0, Position: 2, MatchesPlayed: 1, MatchesLost: 1},
		{UserID: 2, Points: 0, Position: 2, MatchesPlayed: 1, MatchesLost: 1},
		{UserID: 4, Points: 3, Position: 1, MatchesPlayed: 1, MatchesWon: 1},
	}

	first := BuildGlobalTable(results)
	for i := 0; i < 5; i++ {
		if again := BuildGlobalTable(results); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced a different table:\n%+v\n%+v", i, first, again)
		}
	}
}
