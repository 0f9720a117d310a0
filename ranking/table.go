package ranking

import (
	"cmp"
	"slices"
)

// Outcome — неизменяемый факт завершённого матча.
// Player2ID == 0 означает bye: Player1 прошёл раунд без соперника.
// Outcome без победителя (WinnerID == 0) исключается из агрегации.
type Outcome struct {
	Player1ID int
	Player2ID int
	WinnerID  int
	LoserID   int
}

// Bye reports whether the outcome is a bye round for Player1.
func (o Outcome) Bye() bool {
	return o.Player2ID == 0
}

// Entry is one computed row of a tournament table.
type Entry struct {
	UserID        int
	Points        int
	Position      int
	MatchesPlayed int
	MatchesWon    int
	MatchesLost   int
}

// Compare encodes the tournament ordering contract: points descending,
// then user id ascending as the deterministic tie-break. Ties are never
// left unresolved, so repeated builds over identical input produce
// identical tables.
func Compare(a, b Entry) int {
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	return cmp.Compare(a.UserID, b.UserID)
}

// BuildTable derives the ordered ranking table for a single tournament.
//
// participantIDs is the universe of rankable users (confirmed registrations);
// every participant appears in the result even with zero matches played.
// Outcomes referencing users outside the universe, and outcomes without a
// recorded winner, are skipped. Positions are assigned 1..N with no gaps.
func BuildTable(participantIDs []int, outcomes []Outcome, policy Policy) []Entry {
	byUser := make(map[int]*Entry, len(participantIDs))
	for _, id := range participantIDs {
		if _, ok := byUser[id]; ok {
			continue
		}
		byUser[id] = &Entry{UserID: id}
	}

	for _, o := range outcomes {
		if o.Bye() {
			if e, ok := byUser[o.Player1ID]; ok {
				e.Points += policy.Score(RoleBye)
				e.MatchesPlayed++
			}
			continue
		}
		if o.WinnerID == 0 {
			// Матч без определённого победителя не учитывается.
			continue
		}
		if e, ok := byUser[o.WinnerID]; ok {
			e.Points += policy.Score(RoleWin)
			e.MatchesPlayed++
			e.MatchesWon++
		}
		if e, ok := byUser[o.LoserID]; ok {
			e.Points += policy.Score(RoleLoss)
			e.MatchesPlayed++
			e.MatchesLost++
		}
	}

	entries := make([]Entry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}
	slices.SortFunc(entries, Compare)

	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}
