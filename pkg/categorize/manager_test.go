package categorize

import (
	"context"
	"database/sql"
	"path/filepath"
	"sort"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taxa/pkg/sqlite"
	"github.com/mesh-intelligence/taxa/pkg/types"
)

// newTestStore attaches a SQLite backend in a temp dir with a posts table
// holding posts 1 to 5 registered as subject kind "post".
func newTestStore(t *testing.T, mutate func(*types.Config)) types.Backend {
	t.Helper()
	cfg := types.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Subjects = map[string]string{"post": "posts"}
	if mutate != nil {
		mutate(&cfg)
	}

	db, err := sql.Open("sqlite", filepath.Join(cfg.DataDir, sqlite.DatabaseFile))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO posts (id, title) VALUES (1, 'A'), (2, 'B'), (3, 'C'), (4, 'D'), (5, 'E')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	b := sqlite.NewBackend(sqlite.WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, b.Attach(context.Background(), cfg))
	t.Cleanup(func() { b.Detach() })
	return b
}

// createCategories creates root categories by name.
func createCategories(t *testing.T, store types.Store, names ...string) map[string]*types.Category {
	t.Helper()
	out := make(map[string]*types.Category, len(names))
	for _, name := range names {
		c := &types.Category{Name: name}
		require.NoError(t, store.Categories().Create(context.Background(), c))
		out[name] = c
	}
	return out
}

func sorted(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func TestManager_Attach(t *testing.T) {
	tests := []struct {
		name    string
		policy  types.AttachPolicy
		refs    func(c map[string]*types.Category) []types.CategoryRef
		wantIDs func(c map[string]*types.Category) []int64
		wantErr error
	}{
		{
			name: "mixed reference forms",
			refs: func(c map[string]*types.Category) []types.CategoryRef {
				return []types.CategoryRef{types.ID(c["News"].ID), types.Name("tech"), c["Sports"].Ref()}
			},
			wantIDs: func(c map[string]*types.Category) []int64 {
				return []int64{c["News"].ID, c["Tech"].ID, c["Sports"].ID}
			},
		},
		{
			name: "nested lists are flattened in order",
			refs: func(c map[string]*types.Category) []types.CategoryRef {
				return []types.CategoryRef{types.Refs{types.Name("Tech"), types.Refs{types.Name("News")}}}
			},
			wantIDs: func(c map[string]*types.Category) []int64 {
				return []int64{c["Tech"].ID, c["News"].ID}
			},
		},
		{
			name:   "duplicate policy keeps repeated attaches",
			policy: types.AttachDuplicate,
			refs: func(c map[string]*types.Category) []types.CategoryRef {
				return []types.CategoryRef{types.Name("News"), types.Name("News")}
			},
			wantIDs: func(c map[string]*types.Category) []int64 {
				return []int64{c["News"].ID, c["News"].ID}
			},
		},
		{
			name:   "ignore policy makes attach idempotent",
			policy: types.AttachIgnore,
			refs: func(c map[string]*types.Category) []types.CategoryRef {
				return []types.CategoryRef{types.Name("News"), types.Name("News")}
			},
			wantIDs: func(c map[string]*types.Category) []int64 {
				return []int64{c["News"].ID}
			},
		},
		{
			name: "unknown name writes nothing",
			refs: func(c map[string]*types.Category) []types.CategoryRef {
				return []types.CategoryRef{types.Name("News"), types.Name("Missing")}
			},
			wantIDs: func(c map[string]*types.Category) []int64 { return []int64{} },
			wantErr: types.ErrNotFound,
		},
		{
			name: "nil reference is a validation error",
			refs: func(c map[string]*types.Category) []types.CategoryRef {
				return []types.CategoryRef{types.Name("News"), nil}
			},
			wantIDs: func(c map[string]*types.Category) []int64 { return []int64{} },
			wantErr: types.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, func(cfg *types.Config) {
				if tt.policy != "" {
					cfg.AttachPolicy = tt.policy
				}
			})
			ctx := context.Background()
			cats := createCategories(t, store, "News", "Tech", "Sports")
			m := NewManager(store, types.Subject{Type: "post", ID: 1})

			subject, err := m.Attach(ctx, tt.refs(cats)...)
			assert.Equal(t, m.Subject(), subject)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			ids, err := m.CategoriesIDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs(cats), ids)
		})
	}
}

func TestManager_AttachRejectsInvalidSubject(t *testing.T) {
	store := newTestStore(t, nil)
	createCategories(t, store, "News")

	_, err := NewManager(store, types.Subject{Type: "post"}).Attach(context.Background(), types.Name("News"))
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestManager_Detach(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()
	cats := createCategories(t, store, "News", "Tech")
	m := NewManager(store, types.Subject{Type: "post", ID: 2})
	other := NewManager(store, types.Subject{Type: "post", ID: 3})

	_, err := m.Attach(ctx, types.Names("News", "Tech", "News"))
	require.NoError(t, err)
	_, err = other.Attach(ctx, types.Name("News"))
	require.NoError(t, err)

	n, err := m.Detach(ctx, types.Name("news"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := store.Associations().Count(ctx, cats["News"].ID, m.Subject())
	require.NoError(t, err)
	assert.Zero(t, count)

	ids, err := m.CategoriesIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{cats["Tech"].ID}, ids)

	otherIDs, err := other.CategoriesIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{cats["News"].ID}, otherIDs, "other subjects keep their rows")

	n, err = m.Detach(ctx, types.Name("News"))
	require.NoError(t, err, "detaching an absent category is a no-op")
	assert.Zero(t, n)

	_, err = m.Detach(ctx, types.ID(999))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestManager_Sync(t *testing.T) {
	tests := []struct {
		name    string
		refs    []types.CategoryRef
		want    []string
		wantErr error
	}{
		{name: "replaces the set", refs: []types.CategoryRef{types.Names("Tech", "Sports")}, want: []string{"Tech", "Sports"}},
		{name: "keeps overlapping categories", refs: []types.CategoryRef{types.Name("News"), types.Name("Sports")}, want: []string{"News", "Sports"}},
		{name: "empty input clears", refs: nil, want: nil},
		{name: "failure leaves the set unchanged", refs: []types.CategoryRef{types.Name("Tech"), types.ID(404)}, want: []string{"News", "Tech"}, wantErr: types.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, nil)
			ctx := context.Background()
			cats := createCategories(t, store, "News", "Tech", "Sports")
			m := NewManager(store, types.Subject{Type: "post", ID: 4})
			_, err := m.Attach(ctx, types.Names("News", "Tech"))
			require.NoError(t, err)

			_, err = m.Sync(ctx, tt.refs...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			want := make([]int64, 0, len(tt.want))
			for _, name := range tt.want {
				want = append(want, cats[name].ID)
			}
			ids, err := m.CategoriesIDs(ctx)
			require.NoError(t, err)
			assert.Equal(t, sorted(want), sorted(ids))
		})
	}
}

func TestManager_Has(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()
	cats := createCategories(t, store, "News", "Tech", "Sports")
	m := NewManager(store, types.Subject{Type: "post", ID: 5})
	_, err := m.Attach(ctx, types.Names("News", "Tech"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		refs    []types.CategoryRef
		wantAny bool
		wantAll bool
		wantErr error
	}{
		{name: "no references", refs: nil, wantAny: false, wantAll: true},
		{name: "single attached name", refs: []types.CategoryRef{types.Name("News")}, wantAny: true, wantAll: true},
		{name: "single attached slug", refs: []types.CategoryRef{types.Name("tech")}, wantAny: true, wantAll: true},
		{name: "single missing category", refs: []types.CategoryRef{types.Name("Sports")}, wantAny: false, wantAll: false},
		{name: "list with one attached", refs: []types.CategoryRef{types.Names("Sports", "Tech")}, wantAny: true, wantAll: false},
		{name: "list all attached", refs: []types.CategoryRef{types.IDs(cats["Tech"].ID, cats["News"].ID)}, wantAny: true, wantAll: true},
		{name: "resolved category", refs: []types.CategoryRef{cats["Sports"].Ref()}, wantAny: false, wantAll: false},
		{name: "unknown reference", refs: []types.CategoryRef{types.Name("Nope")}, wantErr: types.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			has, err := m.Has(ctx, tt.refs...)
			hasAny, anyErr := m.HasAny(ctx, tt.refs...)
			hasAll, allErr := m.HasAll(ctx, tt.refs...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, anyErr, tt.wantErr)
				assert.ErrorIs(t, allErr, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, anyErr)
			require.NoError(t, allErr)
			assert.Equal(t, tt.wantAny, has)
			assert.Equal(t, tt.wantAny, hasAny)
			assert.Equal(t, tt.wantAll, hasAll)
		})
	}
}

func TestManager_HasWithDuplicateNames(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()
	first := &types.Category{Name: "Dup"}
	second := &types.Category{Name: "Dup"}
	require.NoError(t, store.Categories().Create(ctx, first))
	require.NoError(t, store.Categories().Create(ctx, second))
	require.Equal(t, "dup-1", second.Slug)

	m := NewManager(store, types.Subject{Type: "post", ID: 1})
	_, err := m.Attach(ctx, second.Ref())
	require.NoError(t, err)

	tests := []struct {
		name    string
		ref     types.CategoryRef
		wantAny bool
		wantAll bool
	}{
		{name: "name matches the attached namesake", ref: types.Name("Dup"), wantAny: true, wantAll: true},
		{name: "slug of the attached category", ref: types.Name("dup-1"), wantAny: true, wantAll: true},
		{name: "id of the other namesake", ref: types.ID(first.ID), wantAny: false, wantAll: true},
		{name: "resolved other namesake", ref: first.Ref(), wantAny: false, wantAll: true},
		{name: "id of the attached category", ref: types.ID(second.ID), wantAny: true, wantAll: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			has, err := m.Has(ctx, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAny, has)

			all, err := m.HasAll(ctx, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAll, all)
		})
	}
}

func TestManager_CategoriesList(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()
	cats := createCategories(t, store, "News", "Tech")
	m := NewManager(store, types.Subject{Type: "post", ID: 1})
	_, err := m.Attach(ctx, types.Names("Tech", "News", "Tech"))
	require.NoError(t, err)

	list, err := m.CategoriesList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.CategoryLabel{
		{ID: cats["Tech"].ID, Name: "Tech"},
		{ID: cats["News"].ID, Name: "News"},
	}, list)

	ids, err := m.CategoriesIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{cats["Tech"].ID, cats["News"].ID, cats["Tech"].ID}, ids)

	full, err := m.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, full, 3)
	assert.Equal(t, "tech", full[0].Slug)

	empty, err := NewManager(store, types.Subject{Type: "post", ID: 2}).CategoriesList(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestManager_Taggable(t *testing.T) {
	type post struct {
		*Manager
		Title string
	}

	store := newTestStore(t, nil)
	ctx := context.Background()
	createCategories(t, store, "News")

	p := post{Manager: NewManager(store, types.Subject{Type: "post", ID: 3}), Title: "C"}
	var tg Taggable = p
	_, err := tg.Attach(ctx, types.Name("News"))
	require.NoError(t, err)

	has, err := p.Has(ctx, types.Name("News"))
	require.NoError(t, err)
	assert.True(t, has)
}
