package categorize

import (
	"context"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

// EntriesOf returns the subjects of kind subjectType tagged directly with
// category, one entry per association row.
func EntriesOf(ctx context.Context, store types.Store, category *types.Category, subjectType string) ([]types.Entry, error) {
	if category == nil {
		return nil, types.Invalid("category", "must not be nil")
	}
	kind, err := store.Subjects().Lookup(ctx, subjectType)
	if err != nil {
		return nil, err
	}
	return store.Associations().Entries(ctx, kind, []int64{category.ID})
}

// AllEntriesOf returns the subjects of kind subjectType tagged with category
// or with any of its descendants. A subject tagged at several matching
// categories, or tagged twice, appears once per association row; the result
// is not deduplicated.
func AllEntriesOf(ctx context.Context, store types.Store, category *types.Category, subjectType string) ([]types.Entry, error) {
	if category == nil {
		return nil, types.Invalid("category", "must not be nil")
	}
	kind, err := store.Subjects().Lookup(ctx, subjectType)
	if err != nil {
		return nil, err
	}
	descendants, err := store.Categories().DescendantsOf(ctx, category.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(descendants)+1)
	ids = append(ids, category.ID)
	for _, d := range descendants {
		ids = append(ids, d.ID)
	}
	return store.Associations().Entries(ctx, kind, ids)
}
