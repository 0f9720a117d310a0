package ranking

import (
	"cmp"
	"slices"
)

// GlobalEntry is one computed row of the cross-tournament standing.
type GlobalEntry struct {
	UserID            int
	TotalPoints       int
	Position          int
	TournamentsPlayed int
	AveragePosition   float64
	MatchesPlayed     int
	MatchesWon        int
	MatchesLost       int
	FirstPlaces       int
	SecondPlaces      int
	ThirdPlaces       int
}

// CompareGlobal encodes the global ordering contract: total points
// descending, then average position ascending, then user id ascending.
func CompareGlobal(a, b GlobalEntry) int {
	if c := cmp.Compare(b.TotalPoints, a.TotalPoints); c != 0 {
		return c
	}
	if c := cmp.Compare(a.AveragePosition, b.AveragePosition); c != 0 {
		return c
	}
	return cmp.Compare(a.UserID, b.UserID)
}

// BuildGlobalTable aggregates per-tournament table rows into a global
// standing. The global view is layered on already-computed tournament
// entries, not on raw match history, so it is always consistent with
// whatever policy produced those entries. An empty input yields an empty
// table, not an error.
func BuildGlobalTable(results []Entry) []GlobalEntry {
	byUser := make(map[int]*GlobalEntry)
	positionSum := make(map[int]int)

	for _, r := range results {
		g, ok := byUser[r.UserID]
		if !ok {
			g = &GlobalEntry{UserID: r.UserID}
			byUser[r.UserID] = g
		}
		g.TotalPoints += r.Points
		g.TournamentsPlayed++
		g.MatchesPlayed += r.MatchesPlayed
		g.MatchesWon += r.MatchesWon
		g.MatchesLost += r.MatchesLost
		positionSum[r.UserID] += r.Position

		switch r.Position {
		case 1:
			g.FirstPlaces++
		case 2:
			g.SecondPlaces++
		case 3:
			g.ThirdPlaces++
		}
	}

	entries := make([]GlobalEntry, 0, len(byUser))
	for id, g := range byUser {
		g.AveragePosition = float64(positionSum[id]) / float64(g.TournamentsPlayed)
		entries = append(entries, *g)
	}
	slices.SortFunc(entries, CompareGlobal)

	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}
