package categorize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

// countingStore serves categories from memory and counts lookups. Only the
// methods the resolver uses are implemented; the embedded interfaces are
// nil.
type countingStore struct {
	types.Store
	categories *countingCategories
}

func (s *countingStore) Categories() types.CategoryStore { return s.categories }

type countingCategories struct {
	types.CategoryStore
	rows  []types.Category
	calls int
}

func (c *countingCategories) FindByID(_ context.Context, id int64) (*types.Category, error) {
	c.calls++
	for i := range c.rows {
		if c.rows[i].ID == id {
			cat := c.rows[i]
			return &cat, nil
		}
	}
	return nil, types.NotFound(types.ID(id))
}

func (c *countingCategories) FindByName(_ context.Context, name string) (*types.Category, error) {
	c.calls++
	for i := range c.rows {
		if c.rows[i].Name == name || c.rows[i].Slug == name {
			cat := c.rows[i]
			return &cat, nil
		}
	}
	return nil, types.NotFound(types.Name(name))
}

func newCountingStore() *countingStore {
	return &countingStore{categories: &countingCategories{rows: []types.Category{
		{ID: 1, Name: "News", Slug: "news"},
		{ID: 2, Name: "x", Slug: "other"},
		{ID: 3, Name: "Elsewhere", Slug: "x"},
		{ID: 4, Name: "Tech", Slug: "tech"},
	}}}
}

func TestResolver_Resolve(t *testing.T) {
	resolved := &types.Category{ID: 42, Name: "Loaded"}

	tests := []struct {
		name      string
		ref       types.CategoryRef
		wantID    int64
		wantErr   error
		wantCalls int
	}{
		{name: "id", ref: types.ID(4), wantID: 4, wantCalls: 1},
		{name: "name", ref: types.Name("News"), wantID: 1, wantCalls: 1},
		{name: "slug", ref: types.Name("tech"), wantID: 4, wantCalls: 1},
		{name: "name or slug, first match wins", ref: types.Name("x"), wantID: 2, wantCalls: 1},
		{name: "resolved passes through", ref: resolved.Ref(), wantID: 42, wantCalls: 0},
		{name: "unknown id", ref: types.ID(99), wantErr: types.ErrNotFound, wantCalls: 1},
		{name: "unknown name", ref: types.Name("missing"), wantErr: types.ErrNotFound, wantCalls: 1},
		{name: "nil", ref: nil, wantErr: types.ErrValidation},
		{name: "resolved nil", ref: types.Resolved{}, wantErr: types.ErrValidation},
		{name: "zero id", ref: types.ID(0), wantErr: types.ErrNotFound, wantCalls: 1},
		{name: "negative id", ref: types.ID(-1), wantErr: types.ErrNotFound, wantCalls: 1},
		{name: "list", ref: types.Names("News"), wantErr: types.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newCountingStore()
			got, err := NewResolver(store).Resolve(context.Background(), tt.ref)
			assert.Equal(t, tt.wantCalls, store.categories.calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestResolver_ResolvedIsReturnedAsIs(t *testing.T) {
	store := newCountingStore()
	c := &types.Category{ID: 7, Name: "Stale copy"}

	got, err := NewResolver(store).Resolve(context.Background(), c.Ref())
	require.NoError(t, err)
	assert.Same(t, c, got)
	assert.Zero(t, store.categories.calls)
}

func TestResolver_ResolveAll(t *testing.T) {
	store := newCountingStore()
	r := NewResolver(store)
	ctx := context.Background()

	cats, err := r.ResolveAll(ctx, types.Name("tech"), types.Refs{types.ID(1), types.Refs{types.Name("x")}})
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, int64(4), cats[0].ID)
	assert.Equal(t, int64(1), cats[1].ID)
	assert.Equal(t, int64(2), cats[2].ID)

	store.categories.calls = 0
	_, err = r.ResolveAll(ctx, types.Name("missing"), types.ID(1))
	assert.ErrorIs(t, err, types.ErrNotFound)
	var nf *types.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Ref, "missing")
	assert.Equal(t, 1, store.categories.calls, "resolution stops at the first failure")

	empty, err := r.ResolveAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
