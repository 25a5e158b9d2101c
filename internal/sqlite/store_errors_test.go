package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/taxa/internal/nestedset"
	"github.com/mesh-intelligence/taxa/internal/slug"
	"github.com/mesh-intelligence/taxa/pkg/categorize"
	"github.com/mesh-intelligence/taxa/pkg/types"
)

// newMockBackend wires an attached backend to a sqlmock connection.
func newMockBackend(t *testing.T) (*Backend, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := types.DefaultConfig()
	b := NewBackend()
	b.db = db
	b.config = cfg
	b.tree = nestedset.New(cfg.Tables.Categories)
	b.slugs = slug.New(nil)
	b.attached = true
	return b, mock
}

func TestStoreErrors_ReadFailureKeepsDriverError(t *testing.T) {
	b, mock := newMockBackend(t)
	boom := errors.New("disk I/O error")

	mock.ExpectQuery(`SELECT (.+) FROM categories WHERE id = \?`).
		WithArgs(int64(5)).
		WillReturnError(boom)

	_, err := b.Categories().FindByID(context.Background(), 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStore)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, types.ErrNotFound)

	var se *types.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "categories find_by_id", se.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreErrors_WriteFailureRollsBack(t *testing.T) {
	b, mock := newMockBackend(t)
	boom := errors.New("database is locked")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO categories_models`).
		WithArgs(int64(1), int64(2), "post").
		WillReturnError(boom)
	mock.ExpectRollback()

	_, err := b.Associations().Insert(context.Background(), types.Association{
		CategoryID: 1,
		Subject:    types.Subject{Type: "post", ID: 2},
	})
	assert.ErrorIs(t, err, types.ErrStore)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreErrors_ValidationNeedsNoStore(t *testing.T) {
	b, mock := newMockBackend(t)

	_, err := b.Associations().List(context.Background(), types.Subject{Type: "", ID: 1})
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreErrors_ResolvedRefsSkipStore(t *testing.T) {
	b, mock := newMockBackend(t)
	news := &types.Category{ID: 1, Name: "News"}
	tech := &types.Category{ID: 2, Name: "Tech"}

	cats, err := categorize.NewResolver(b).ResolveAll(context.Background(), news.Ref(), types.Refs{tech.Ref()})
	require.NoError(t, err)
	assert.Equal(t, []*types.Category{news, tech}, cats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreErrors_CanceledReadSkipsStore(t *testing.T) {
	b, mock := newMockBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	post := types.Subject{Type: "post", ID: 1}

	tests := []struct {
		name string
		read func() error
	}{
		{name: "find by id", read: func() error { _, err := b.Categories().FindByID(ctx, 1); return err }},
		{name: "find by name", read: func() error { _, err := b.Categories().FindByName(ctx, "news"); return err }},
		{name: "all", read: func() error { _, err := b.Categories().All(ctx); return err }},
		{name: "descendants", read: func() error { _, err := b.Categories().DescendantsOf(ctx, 1); return err }},
		{name: "subject categories", read: func() error { _, err := b.Associations().Categories(ctx, post); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read()
			assert.ErrorIs(t, err, context.Canceled)
			assert.ErrorIs(t, err, types.ErrStore)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
