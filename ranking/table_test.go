package ranking

import (
	"reflect"
	"testing"
)

func TestBuildTableTwoPairs(t *testing.T) {
	// Четыре подтверждённых участника, два завершённых матча:
	// P1 побеждает P2, P3 побеждает P4, перекрёстных матчей нет.
	participants := []int{1, 2, 3, 4}
	outcomes := []Outcome{
		{Player1ID: 1, Player2ID: 2, WinnerID: 1, LoserID: 2},
		{Player1ID: 3, Player2ID: 4, WinnerID: 3, LoserID: 4},
	}

	entries := BuildTable(participants, outcomes, StandardPolicy{})
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	want := []Entry{
		{UserID: 1, Points: 3, Position: 1, MatchesPlayed: 1, MatchesWon: 1},
		{UserID: 3, Points: 3, Position: 2, MatchesPlayed: 1, MatchesWon: 1},
		{UserID: 2, Points: 0, Position: 3, MatchesPlayed: 1, MatchesLost: 1},
		{UserID: 4, Points: 0, Position: 4, MatchesPlayed: 1, MatchesLost: 1},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("unexpected table:\n got %+v\nwant %+v", entries, want)
	}
}

func TestBuildTableNoMatches(t *testing.T) {
	// Оба участника должны попасть в таблицу даже без сыгранных матчей.
	entries := BuildTable([]int{7, 2}, nil, StandardPolicy{})
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != 2 || entries[0].Position != 1 || entries[0].Points != 0 {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].UserID != 7 || entries[1].Position != 2 || entries[1].Points != 0 {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestBuildTableEmptyUniverse(t *testing.T) {
	entries := BuildTable(nil, []Outcome{{Player1ID: 1, Player2ID: 2, WinnerID: 1, LoserID: 2}}, StandardPolicy{})
	if len(entries) != 0 {
		t.Fatalf("expected empty table, got %d entries", len(entries))
	}
}

func TestBuildTableSkipsUndecidedAndForeignOutcomes(t *testing.T) {
	participants := []int{1, 2}
	outcomes := []Outcome{
		{Player1ID: 1, Player2ID: 2}, // нет победителя — не учитывается
		{Player1ID: 8, Player2ID: 9, WinnerID: 8, LoserID: 9}, // чужие игроки
		{Player1ID: 2, Player2ID: 1, WinnerID: 2, LoserID: 1},
	}

	entries := BuildTable(participants, outcomes, StandardPolicy{})
	if entries[0].UserID != 2 || entries[0].Points != 3 || entries[0].MatchesPlayed != 1 {
		t.Errorf("unexpected winner entry: %+v", entries[0])
	}
	if entries[1].UserID != 1 || entries[1].Points != 0 || entries[1].MatchesPlayed != 1 {
		t.Errorf("unexpected loser entry: %+v", entries[1])
	}
}

func TestBuildTableBye(t *testing.T) {
	participants := []int{1, 2, 3}
	outcomes := []Outcome{
		{Player1ID: 1, Player2ID: 2, WinnerID: 1, LoserID: 2},
		{Player1ID: 3}, // bye: раунд засчитан, очко начислено
	}

	entries := BuildTable(participants, outcomes, StandardPolicy{})
	var bye Entry
	for _, e := range entries {
		if e.UserID == 3 {
			bye = e
		}
	}
	if bye.Points != 1 || bye.MatchesPlayed != 1 || bye.MatchesWon != 0 || bye.MatchesLost != 0 {
		t.Errorf("unexpected bye entry: %+v", bye)
	}
}

func TestBuildTablePositionTotality(t *testing.T) {
	participants := []int{5, 3, 9, 1, 4, 8}
	outcomes := []Outcome{
		{Player1ID: 5, Player2ID: 3, WinnerID: 5, LoserID: 3},
		{Player1ID: 9, Player2ID: 1, WinnerID: 1, LoserID: 9},
		{Player1ID: 4, Player2ID: 8, WinnerID: 4, LoserID: 8},
		{Player1ID: 5, Player2ID: 1, WinnerID: 5, LoserID: 1},
	}

	entries := BuildTable(participants, outcomes, StandardPolicy{})
	if len(entries) != len(participants) {
		t.Fatalf("expected %d entries, got %d", len(participants), len(entries))
	}
	seen := make(map[int]bool)
	for i, e := range entries {
		if e.Position != i+1 {
			t.Errorf("position gap at index %d: %+v", i, e)
		}
		if seen[e.UserID] {
			t.Errorf("duplicate entry for user %d", e.UserID)
		}
		seen[e.UserID] = true
		if e.Points < 0 {
			t.Errorf("negative points for user %d", e.UserID)
		}
	}
}

func TestBuildTableDeterministicTieBreak(t *testing.T) {
	// Участники с равными очками упорядочиваются по возрастанию id,
	// независимо от порядка на входе.
	outcomes := []Outcome{
		{Player1ID: 6, Player2ID: 2, WinnerID: 6, LoserID: 2},
		{Player1ID: 4, Player2ID: 8, WinnerID: 4, LoserID: 8},
	}

	first := BuildTable([]int{8, 6, 4, 2}, outcomes, StandardPolicy{})
	second := BuildTable([]int{2, 4, 6, 8}, outcomes, StandardPolicy{})

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("tables differ for identical input:\n%+v\n%+v", first, second)
	}
	if first[0].UserID != 4 || first[1].UserID != 6 {
		t.Errorf("tie not resolved by ascending user id: %+v", first[:2])
	}
}

func TestBuildTableIdempotent(t *testing.T) {
	participants := []int{1, 2, 3, 4}
	outcomes := []Outcome{
		{Player1ID: 1, Player2ID: 2, WinnerID: 1, LoserID: 2},
		{Player1ID: 3, Player2ID: 4, WinnerID: 3, LoserID: 4},
		{Player1ID: 1, Player2ID: 3, WinnerID: 3, LoserID: 1},
	}

	first := BuildTable(participants, outcomes, StandardPolicy{})
	for i := 0; i < 10; i++ {
		again := BuildTable(participants, outcomes, StandardPolicy{})
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced a different table:\n%+v\n%+v", i, first, again)
		}
	}
}
