package app

import (
	"sort"

	"quizlive/internal/domain"
)

// computeLeaderboard derives ranked standings from the answer records of one
// game. Every roster member appears, zero-record players included. Sorting is
// score descending with ties broken by roster (join) order, so the ranking is
// a total order and repeated calls over the same records are identical.
func computeLeaderboard(roster []domain.RosterMember, records []domain.AnswerRecord) []domain.LeaderboardEntry {
	totals := make(map[string]int, len(roster))
	for _, rec := range records {
		totals[rec.Key.PlayerID] += rec.Points
	}

	ordered := make([]domain.RosterMember, len(roster))
	copy(ordered, roster)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].JoinedAt.Before(ordered[j].JoinedAt)
	})

	entries := make([]domain.LeaderboardEntry, 0, len(ordered))
	for _, member := range ordered {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID:    member.UserID,
			DisplayName: member.DisplayName,
			Team:        member.Team,
			Score:       totals[member.UserID],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
