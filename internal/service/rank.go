package service

import (
	"time"

	"github.com/withyou-app/withyou/internal/model"
)

type RankThreshold struct {
	Count int    `json:"count"`
	Name  string `json:"name"`
}

// Ranks is ordered by ascending threshold.
var Ranks = []RankThreshold{
	{Count: 1, Name: "Seedling"},
	{Count: 3, Name: "Sprout"},
	{Count: 7, Name: "Sapling"},
	{Count: 14, Name: "Tree"},
	{Count: 30, Name: "Forest"},
	{Count: 60, Name: "Guardian"},
	{Count: 90, Name: "Ancient"},
}

// Rank returns the highest rank whose threshold is at most count.
func Rank(count int) string {
	for i := len(Ranks) - 1; i >= 0; i-- {
		if count >= Ranks[i].Count {
			return Ranks[i].Name
		}
	}
	return Ranks[0].Name
}

// RankAchieved reports the rank reached on exactly this count, if any.
func RankAchieved(count int) (string, bool) {
	for _, r := range Ranks {
		if r.Count == count {
			return r.Name, true
		}
	}
	return "", false
}

// Streak counts consecutive calendar days with at least one proof, ending
// today or yesterday in loc.
func Streak(history []model.ProofEntry, now time.Time, loc *time.Location) int {
	if len(history) == 0 {
		return 0
	}

	days := make(map[string]bool, len(history))
	for _, h := range history {
		days[model.DateKey(h.CompletedAt, loc)] = true
	}

	day := now.In(loc)
	if !days[model.DateKey(day, loc)] {
		day = day.AddDate(0, 0, -1)
		if !days[model.DateKey(day, loc)] {
			return 0
		}
	}

	streak := 0
	for days[model.DateKey(day, loc)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
