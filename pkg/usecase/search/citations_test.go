package search_test

import (
	"testing"

	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/usecase/search"
	"github.com/m-mizutani/gt"
)

func enrichedPosts(n int) []*model.EnrichedPost {
	posts := make([]*model.EnrichedPost, n)
	for i := range posts {
		posts[i] = &model.EnrichedPost{
			Post:     &model.Post{ID: model.NewPostID()},
			Comments: []*model.CommentWithAuthor{},
		}
	}
	return posts
}

func TestReconcile(t *testing.T) {
	t.Run("cited sources come first, rest keep their order", func(t *testing.T) {
		sources := enrichedPosts(5)
		used, all := search.Reconcile(sources, []int{2, 4})

		gt.A(t, used).Length(2)
		gt.A(t, all).Length(5)
		gt.Equal(t, used[0].ID, sources[1].ID)
		gt.Equal(t, used[1].ID, sources[3].ID)
		gt.Equal(t, all[0].ID, sources[1].ID)
		gt.Equal(t, all[1].ID, sources[3].ID)
		gt.Equal(t, all[2].ID, sources[0].ID)
		gt.Equal(t, all[3].ID, sources[2].ID)
		gt.Equal(t, all[4].ID, sources[4].ID)
	})

	t.Run("out of range indices are ignored", func(t *testing.T) {
		sources := enrichedPosts(5)
		used, all := search.Reconcile(sources, []int{1, 3, 99})

		gt.A(t, used).Length(2)
		gt.A(t, all).Length(5)
		gt.Equal(t, used[0].ID, sources[0].ID)
		gt.Equal(t, used[1].ID, sources[2].ID)
	})

	t.Run("zero and negative indices are ignored", func(t *testing.T) {
		sources := enrichedPosts(3)
		used, all := search.Reconcile(sources, []int{0, -1})

		gt.A(t, used).Length(0)
		gt.A(t, all).Length(3)
	})

	t.Run("duplicate indices count once", func(t *testing.T) {
		sources := enrichedPosts(3)
		used, all := search.Reconcile(sources, []int{2, 2, 2})

		gt.A(t, used).Length(1)
		gt.A(t, all).Length(3)
	})

	t.Run("no citations leaves all sources in input order", func(t *testing.T) {
		sources := enrichedPosts(3)
		used, all := search.Reconcile(sources, nil)

		gt.A(t, used).Length(0)
		gt.A(t, all).Length(3)
		for i := range sources {
			gt.Equal(t, all[i].ID, sources[i].ID)
		}
	})

	t.Run("empty sources yield non-nil empty slices", func(t *testing.T) {
		used, all := search.Reconcile(nil, []int{1})

		gt.False(t, used == nil)
		gt.False(t, all == nil)
		gt.A(t, used).Length(0)
		gt.A(t, all).Length(0)
	})
}
