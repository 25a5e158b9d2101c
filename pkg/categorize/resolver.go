package categorize

import (
	"context"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

// Resolver turns a category reference into a category record.
type Resolver struct {
	store types.Store
}

// NewResolver returns a Resolver reading from store.
func NewResolver(store types.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve looks up a single reference.
//
// ID finds by id and Name matches an exact name or slug; both return a
// NotFoundError when nothing matches. Resolved is returned as is without
// touching the store. A nil reference, a Refs list and a Resolved wrapping
// nil are ValidationErrors.
func (r *Resolver) Resolve(ctx context.Context, ref types.CategoryRef) (*types.Category, error) {
	switch v := ref.(type) {
	case nil:
		return nil, types.Invalid("reference", "must not be nil")
	case types.Resolved:
		if v.Category == nil {
			return nil, types.Invalid("reference", "resolved category is nil")
		}
		return v.Category, nil
	case types.ID:
		return r.store.Categories().FindByID(ctx, int64(v))
	case types.Name:
		return r.store.Categories().FindByName(ctx, string(v))
	case types.Refs:
		return nil, types.Invalid("reference", "a list does not name a single category")
	default:
		return nil, types.Invalidf("reference", "unsupported type %T", ref)
	}
}

// ResolveAll flattens refs and resolves each element in order. The first
// failure aborts the call.
func (r *Resolver) ResolveAll(ctx context.Context, refs ...types.CategoryRef) ([]*types.Category, error) {
	flat := types.Flatten(refs...)
	out := make([]*types.Category, 0, len(flat))
	for _, ref := range flat {
		c, err := r.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
