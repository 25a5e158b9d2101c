package categorize

import (
	"context"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

// Taggable is the capability of a subject that carries categories. Host
// types gain it by embedding a *Manager bound to themselves:
//
//	type Post struct {
//	    *categorize.Manager
//	    ID    int64
//	    Title string
//	}
type Taggable interface {
	Subject() types.Subject
	Attach(ctx context.Context, refs ...types.CategoryRef) (types.Subject, error)
	Detach(ctx context.Context, ref types.CategoryRef) (int64, error)
	Sync(ctx context.Context, refs ...types.CategoryRef) (types.Subject, error)
	Has(ctx context.Context, refs ...types.CategoryRef) (bool, error)
	HasAny(ctx context.Context, refs ...types.CategoryRef) (bool, error)
	HasAll(ctx context.Context, refs ...types.CategoryRef) (bool, error)
	Categories(ctx context.Context) ([]types.Category, error)
	CategoriesList(ctx context.Context) ([]types.CategoryLabel, error)
	CategoriesIDs(ctx context.Context) ([]int64, error)
}

var _ Taggable = (*Manager)(nil)

// Manager maintains the associations of one subject. It holds no state
// besides the subject; every call reads the store.
type Manager struct {
	store   types.Store
	subject types.Subject
	logger  *zap.SugaredLogger
}

// NewManager binds a Manager to subject.
func NewManager(store types.Store, subject types.Subject, opts ...Option) *Manager {
	o := buildOptions(opts)
	return &Manager{store: store, subject: subject, logger: o.logger}
}

// Subject returns the subject the manager is bound to.
func (m *Manager) Subject() types.Subject { return m.subject }

// Attach resolves every reference (lists may nest) and inserts one
// association row per category, in order. Under the duplicate policy a
// category attached twice gets two rows. All rows are written in one
// transaction; if any reference fails to resolve nothing is written.
func (m *Manager) Attach(ctx context.Context, refs ...types.CategoryRef) (types.Subject, error) {
	if err := m.subject.Validate(); err != nil {
		return m.subject, err
	}
	err := m.store.Atomic(ctx, func(tx types.Store) error {
		return m.attach(ctx, tx, refs)
	})
	return m.subject, err
}

func (m *Manager) attach(ctx context.Context, tx types.Store, refs []types.CategoryRef) error {
	cats, err := NewResolver(tx).ResolveAll(ctx, refs...)
	if err != nil {
		return err
	}
	for _, c := range cats {
		inserted, err := tx.Associations().Insert(ctx, types.Association{CategoryID: c.ID, Subject: m.subject})
		if err != nil {
			return err
		}
		m.logger.Debugw("Category attached",
			"subject", m.subject.String(),
			"category_id", c.ID,
			"inserted", inserted)
	}
	return nil
}

// Detach removes every association row between the subject and the
// referenced category and returns how many went. Detaching a category that
// is not attached is not an error.
func (m *Manager) Detach(ctx context.Context, ref types.CategoryRef) (int64, error) {
	if err := m.subject.Validate(); err != nil {
		return 0, err
	}
	c, err := NewResolver(m.store).Resolve(ctx, ref)
	if err != nil {
		return 0, err
	}
	n, err := m.store.Associations().Delete(ctx, c.ID, m.subject)
	if err != nil {
		return 0, err
	}
	m.logger.Debugw("Category detached", "subject", m.subject.String(), "category_id", c.ID, "rows", n)
	return n, nil
}

// Sync replaces the subject's associations with the referenced categories.
// With no references it clears them. The delete and the inserts share one
// transaction: afterwards the association set equals the resolved input,
// and on failure it is unchanged.
func (m *Manager) Sync(ctx context.Context, refs ...types.CategoryRef) (types.Subject, error) {
	if err := m.subject.Validate(); err != nil {
		return m.subject, err
	}
	err := m.store.Atomic(ctx, func(tx types.Store) error {
		n, err := tx.Associations().DeleteSubject(ctx, m.subject)
		if err != nil {
			return err
		}
		m.logger.Debugw("Associations cleared", "subject", m.subject.String(), "rows", n)
		return m.attach(ctx, tx, refs)
	})
	return m.subject, err
}

// Has reports whether the subject carries at least one of the referenced
// categories. Name references match any attached category with the same
// name, while ID and Resolved references match by id. An empty reference
// list yields false.
func (m *Manager) Has(ctx context.Context, refs ...types.CategoryRef) (bool, error) {
	flat := types.Flatten(refs...)
	cats, err := NewResolver(m.store).ResolveAll(ctx, flat...)
	if err != nil {
		return false, err
	}
	if len(cats) == 0 {
		return false, nil
	}
	current, err := m.Categories(ctx)
	if err != nil {
		return false, err
	}
	ids := make(map[int64]bool, len(current))
	names := make(map[string]bool, len(current))
	for _, c := range current {
		ids[c.ID] = true
		names[c.Name] = true
	}
	for i, c := range cats {
		if _, byName := flat[i].(types.Name); byName {
			if names[c.Name] {
				return true, nil
			}
			continue
		}
		if ids[c.ID] {
			return true, nil
		}
	}
	return false, nil
}

// HasAny is Has.
func (m *Manager) HasAny(ctx context.Context, refs ...types.CategoryRef) (bool, error) {
	return m.Has(ctx, refs...)
}

// HasAll reports whether the name of every referenced category is among the
// names of the subject's categories. It holds vacuously for no references.
func (m *Manager) HasAll(ctx context.Context, refs ...types.CategoryRef) (bool, error) {
	cats, err := NewResolver(m.store).ResolveAll(ctx, refs...)
	if err != nil {
		return false, err
	}
	if len(cats) == 0 {
		return true, nil
	}
	current, err := m.Categories(ctx)
	if err != nil {
		return false, err
	}
	names := make(map[string]bool, len(current))
	for _, c := range current {
		names[c.Name] = true
	}
	for _, c := range cats {
		if !names[c.Name] {
			return false, nil
		}
	}
	return true, nil
}

// Categories returns the subject's categories, one per association row, in
// attach order.
func (m *Manager) Categories(ctx context.Context) ([]types.Category, error) {
	return m.store.Associations().Categories(ctx, m.subject)
}

// CategoriesList maps the subject's category ids to names, in attach order,
// one entry per distinct id.
func (m *Manager) CategoriesList(ctx context.Context) ([]types.CategoryLabel, error) {
	cats, err := m.Categories(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool, len(cats))
	labels := make([]types.CategoryLabel, 0, len(cats))
	for _, c := range cats {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		labels = append(labels, types.CategoryLabel{ID: c.ID, Name: c.Name})
	}
	return labels, nil
}

// CategoriesIDs returns the category id of every association row of the
// subject, in attach order.
func (m *Manager) CategoriesIDs(ctx context.Context) ([]int64, error) {
	rows, err := m.store.Associations().List(ctx, m.subject)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(rows))
	for _, a := range rows {
		ids = append(ids, a.CategoryID)
	}
	return ids, nil
}
