package search

import (
	"sort"
	"time"

	"github.com/iin-community/kehila/pkg/model"
)

// daysOld converts a creation timestamp to whole days before now,
// clamped at zero. A zero timestamp counts as MissingAgeDays so posts
// without dates sink to the bottom instead of ranking as fresh.
func daysOld(createdAt, now time.Time, tuning Tuning) int {
	if createdAt.IsZero() {
		return tuning.MissingAgeDays
	}
	days := int(now.Sub(createdAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// RecencyBonus decays hyperbolically with age. A post of age DecayDays
// receives exactly half of MaxBonus.
func RecencyBonus(days int, tuning Tuning) float64 {
	return tuning.MaxBonus * float64(tuning.DecayDays) / float64(tuning.DecayDays+days)
}

// Rerank scores candidates as similarity plus recency bonus and sorts
// them by final score, descending. Ties keep the retrieval order.
func Rerank(matches []*model.PostMatch, now time.Time, tuning Tuning) []*model.Candidate {
	candidates := make([]*model.Candidate, 0, len(matches))
	for _, m := range matches {
		age := daysOld(m.Post.SentAt, now, tuning)
		candidates = append(candidates, &model.Candidate{
			Post:       m.Post,
			Similarity: m.Similarity,
			DaysOld:    age,
			FinalScore: m.Similarity + RecencyBonus(age, tuning),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FinalScore > candidates[j].FinalScore
	})
	return candidates
}
