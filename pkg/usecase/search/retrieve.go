package search

import (
	"context"
	"strings"

	"github.com/iin-community/kehila/pkg/model"
	"github.com/iin-community/kehila/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// floorFor picks the similarity floor for a normalized query. Single-word
// queries get the broad floor: they are usually topic lookups where the
// strict floor returns nothing.
func (u *UseCase) floorFor(query string) float64 {
	if len(strings.Fields(query)) <= 1 {
		return u.tuning.BroadFloor
	}
	return u.tuning.StrictFloor
}

// retrieve embeds the normalized query and fetches candidates above the
// dynamic similarity floor. Failures here are retrieval failures and
// propagate; there is no retry.
func (u *UseCase) retrieve(ctx context.Context, query string) ([]*model.PostMatch, error) {
	vector, err := u.gemini.Embedding(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed search query")
	}

	floor := u.floorFor(query)
	matches, err := u.repo.SearchSimilarPosts(ctx, vector, floor, u.tuning.FetchLimit)
	if err != nil {
		return nil, goerr.Wrap(err, "vector search failed", goerr.V("floor", floor))
	}

	logging.From(ctx).Debug("retrieved candidates",
		"query", query, "floor", floor, "count", len(matches))
	return matches, nil
}
