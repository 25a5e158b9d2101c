package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

// createPosts adds a posts subject table with three rows and registers it.
func createPosts(t *testing.T, b *Backend) {
	t.Helper()
	_, err := b.db.Exec(`CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT NOT NULL, views INTEGER)`)
	require.NoError(t, err)
	_, err = b.db.Exec(`INSERT INTO posts (id, title, views) VALUES (1, 'first', 10), (2, 'second', 20), (3, 'third', NULL)`)
	require.NoError(t, err)
	require.NoError(t, b.Subjects().Register(types.SubjectKind{Name: "post", Table: "posts"}))
}

func TestAssociationsTable_InsertPolicies(t *testing.T) {
	post := types.Subject{Type: "post", ID: 7}

	tests := []struct {
		name         string
		policy       types.AttachPolicy
		wantInserted []bool
		wantRows     int
	}{
		{name: "duplicate policy keeps every row", policy: types.AttachDuplicate, wantInserted: []bool{true, true}, wantRows: 2},
		{name: "ignore policy skips existing pairs", policy: types.AttachIgnore, wantInserted: []bool{true, false}, wantRows: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBackend(t, func(cfg *types.Config) { cfg.AttachPolicy = tt.policy })
			ctx := context.Background()
			c := mustCreate(t, b, "News")

			for i, want := range tt.wantInserted {
				got, err := b.Associations().Insert(ctx, types.Association{CategoryID: c.ID, Subject: post})
				require.NoError(t, err)
				assert.Equal(t, want, got, "insert %d", i)
			}

			n, err := b.Associations().Count(ctx, c.ID, post)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.wantRows), n)
		})
	}
}

func TestAssociationsTable_InsertValidation(t *testing.T) {
	b := newTestBackend(t, nil)
	ctx := context.Background()

	_, err := b.Associations().Insert(ctx, types.Association{CategoryID: 1, Subject: types.Subject{ID: 1}})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = b.Associations().Insert(ctx, types.Association{CategoryID: 0, Subject: types.Subject{Type: "post", ID: 1}})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestAssociationsTable_ListAndDelete(t *testing.T) {
	b := newTestBackend(t, nil)
	ctx := context.Background()
	news := mustCreate(t, b, "News")
	tech := mustCreate(t, b, "Tech")
	post := types.Subject{Type: "post", ID: 1}
	other := types.Subject{Type: "video", ID: 1}

	for _, a := range []types.Association{
		{CategoryID: tech.ID, Subject: post},
		{CategoryID: news.ID, Subject: post},
		{CategoryID: tech.ID, Subject: post},
		{CategoryID: news.ID, Subject: other},
	} {
		_, err := b.Associations().Insert(ctx, a)
		require.NoError(t, err)
	}

	rows, err := b.Associations().List(ctx, post)
	require.NoError(t, err)
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CategoryID)
	}
	assert.Equal(t, []int64{tech.ID, news.ID, tech.ID}, ids, "rows come back in insertion order")

	cats, err := b.Associations().Categories(ctx, post)
	require.NoError(t, err)
	require.Len(t, cats, 3)
	assert.Equal(t, "Tech", cats[0].Name)

	total, err := b.Associations().Count(ctx, 0, post)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	n, err := b.Associations().Delete(ctx, tech.ID, post)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "every row for the pair goes")

	n, err = b.Associations().Delete(ctx, tech.ID, post)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = b.Associations().DeleteSubject(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := b.Associations().All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Association{{CategoryID: news.ID, Subject: other}}, left)

	n, err = b.Associations().DeleteCategories(ctx, []int64{news.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = b.Associations().DeleteCategories(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAssociationsTable_Entries(t *testing.T) {
	b := newTestBackend(t, nil)
	ctx := context.Background()
	createPosts(t, b)
	news := mustCreate(t, b, "News")
	tech := mustCreate(t, b, "Tech")

	links := []types.Association{
		{CategoryID: news.ID, Subject: types.Subject{Type: "post", ID: 2}},
		{CategoryID: tech.ID, Subject: types.Subject{Type: "post", ID: 1}},
		{CategoryID: news.ID, Subject: types.Subject{Type: "post", ID: 1}},
		{CategoryID: news.ID, Subject: types.Subject{Type: "video", ID: 3}},
		{CategoryID: news.ID, Subject: types.Subject{Type: "post", ID: 3}},
	}
	for _, a := range links {
		_, err := b.Associations().Insert(ctx, a)
		require.NoError(t, err)
	}

	kind, err := b.Subjects().Lookup(ctx, "post")
	require.NoError(t, err)

	entries, err := b.Associations().Entries(ctx, kind, []int64{news.ID, tech.ID})
	require.NoError(t, err)
	require.Len(t, entries, 4, "video rows never join posts and nothing is deduplicated")

	assert.Equal(t, int64(2), entries[0].SubjectID)
	assert.Equal(t, news.ID, entries[0].CategoryID)
	assert.Equal(t, "second", entries[0].Columns["title"])
	assert.Equal(t, int64(20), entries[0].Columns["views"])

	assert.Equal(t, int64(1), entries[1].SubjectID)
	assert.Equal(t, tech.ID, entries[1].CategoryID)
	assert.Equal(t, int64(1), entries[2].SubjectID)
	assert.Equal(t, news.ID, entries[2].CategoryID)

	assert.Nil(t, entries[3].Columns["views"])
	assert.NotContains(t, entries[3].Columns, matchedCategoryColumn)
	assert.NotContains(t, entries[3].Columns, matchedSubjectColumn)

	empty, err := b.Associations().Entries(ctx, kind, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = b.Associations().Entries(ctx, types.SubjectKind{Name: "post", Table: "posts; DROP"}, []int64{news.ID})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestAssociationsTable_EntriesTextSubjectIDs(t *testing.T) {
	b := newTestBackend(t, nil)
	ctx := context.Background()
	_, err := b.db.Exec(`CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT)`)
	require.NoError(t, err)
	_, err = b.db.Exec(`INSERT INTO notes (id, body) VALUES ('7', 'seven'), ('12', 'twelve')`)
	require.NoError(t, err)
	require.NoError(t, b.Subjects().Register(types.SubjectKind{Name: "note", Table: "notes"}))
	news := mustCreate(t, b, "News")

	for _, id := range []int64{12, 7} {
		_, err := b.Associations().Insert(ctx, types.Association{CategoryID: news.ID, Subject: types.Subject{Type: "note", ID: id}})
		require.NoError(t, err)
	}

	kind, err := b.Subjects().Lookup(ctx, "note")
	require.NoError(t, err)
	entries, err := b.Associations().Entries(ctx, kind, []int64{news.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(12), entries[0].SubjectID)
	assert.Equal(t, "12", entries[0].Columns["id"])
	assert.Equal(t, "twelve", entries[0].Columns["body"])
	assert.Equal(t, int64(7), entries[1].SubjectID)
	assert.Equal(t, news.ID, entries[1].CategoryID)
}
