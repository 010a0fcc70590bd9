package search_test

import (
	"testing"
	"time"

	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/usecase/search"
	"github.com/m-mizutani/gt"
)

func TestRecencyBonus(t *testing.T) {
	tuning := search.DefaultTuning()

	t.Run("fresh post gets the full bonus", func(t *testing.T) {
		gt.Equal(t, search.RecencyBonus(0, tuning), tuning.MaxBonus)
	})

	t.Run("bonus halves at the decay window", func(t *testing.T) {
		gt.Equal(t, search.RecencyBonus(tuning.DecayDays, tuning), tuning.MaxBonus/2)
	})

	t.Run("bonus decreases monotonically with age", func(t *testing.T) {
		prev := search.RecencyBonus(0, tuning)
		for days := 1; days <= 1000; days += 13 {
			bonus := search.RecencyBonus(days, tuning)
			gt.True(t, bonus < prev)
			gt.True(t, bonus > 0)
			prev = bonus
		}
	})
}

func TestRerank(t *testing.T) {
	tuning := search.DefaultTuning()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	match := func(sim float64, age time.Duration) *model.PostMatch {
		return &model.PostMatch{
			Post:       &model.Post{ID: model.NewPostID(), SentAt: now.Add(-age)},
			Similarity: sim,
		}
	}

	t.Run("final score stays within similarity plus max bonus", func(t *testing.T) {
		matches := []*model.PostMatch{
			match(0.9, 0),
			match(0.5, 90*24*time.Hour),
			match(0.3, 900*24*time.Hour),
		}
		for _, c := range search.Rerank(matches, now, tuning) {
			gt.True(t, c.FinalScore >= c.Similarity)
			gt.True(t, c.FinalScore <= c.Similarity+tuning.MaxBonus)
		}
	})

	t.Run("recent post overtakes a slightly more similar old one", func(t *testing.T) {
		old := match(0.80, 700*24*time.Hour)
		fresh := match(0.72, 24*time.Hour)
		ranked := search.Rerank([]*model.PostMatch{old, fresh}, now, tuning)

		gt.A(t, ranked).Length(2)
		gt.Equal(t, ranked[0].Post.ID, fresh.Post.ID)
	})

	t.Run("large similarity gap is not closed by recency", func(t *testing.T) {
		old := match(0.90, 700*24*time.Hour)
		fresh := match(0.40, 24*time.Hour)
		ranked := search.Rerank([]*model.PostMatch{old, fresh}, now, tuning)

		gt.Equal(t, ranked[0].Post.ID, old.Post.ID)
	})

	t.Run("missing timestamp is treated as very old", func(t *testing.T) {
		undated := &model.PostMatch{
			Post:       &model.Post{ID: model.NewPostID()},
			Similarity: 0.6,
		}
		ranked := search.Rerank([]*model.PostMatch{undated}, now, tuning)

		gt.Equal(t, ranked[0].DaysOld, tuning.MissingAgeDays)
	})

	t.Run("future timestamps clamp to zero days", func(t *testing.T) {
		ahead := match(0.6, -48*time.Hour)
		ranked := search.Rerank([]*model.PostMatch{ahead}, now, tuning)

		gt.Equal(t, ranked[0].DaysOld, 0)
		gt.Equal(t, ranked[0].FinalScore, 0.6+tuning.MaxBonus)
	})

	t.Run("equal scores keep retrieval order", func(t *testing.T) {
		first := match(0.5, 10*24*time.Hour)
		second := match(0.5, 10*24*time.Hour)
		ranked := search.Rerank([]*model.PostMatch{first, second}, now, tuning)

		gt.Equal(t, ranked[0].Post.ID, first.Post.ID)
		gt.Equal(t, ranked[1].Post.ID, second.Post.ID)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		ranked := search.Rerank(nil, now, tuning)
		gt.A(t, ranked).Length(0)
	})
}
