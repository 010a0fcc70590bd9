package search

import (
	"github.com/iin-community/kehila/pkg/model"
)

// Reconcile splits sources into the cited subset and a full list with cited
// sources first. Indices are 1-based; out-of-range and duplicate indices are
// ignored. Both returned slices are non-nil and relative order within each
// partition follows the input.
func Reconcile(sources []*model.EnrichedPost, indices []int) (used, all []*model.EnrichedPost) {
	cited := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx >= 1 && idx <= len(sources) {
			cited[idx-1] = true
		}
	}

	used = make([]*model.EnrichedPost, 0, len(cited))
	rest := make([]*model.EnrichedPost, 0, len(sources)-len(cited))
	for i, src := range sources {
		if cited[i] {
			used = append(used, src)
		} else {
			rest = append(rest, src)
		}
	}

	all = make([]*model.EnrichedPost, 0, len(sources))
	all = append(all, used...)
	all = append(all, rest...)
	return used, all
}
