package categorize

import (
	"context"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

// Catalog is the category side of the core: lookups, the tree, hierarchy
// moves, and entry queries, all addressed by CategoryRef.
type Catalog struct {
	store  types.Store
	opts   []Option
	logger *zap.SugaredLogger
}

// NewCatalog returns a Catalog over store. The options are also passed to
// the managers it hands out.
func NewCatalog(store types.Store, opts ...Option) *Catalog {
	o := buildOptions(opts)
	return &Catalog{store: store, opts: opts, logger: o.logger}
}

// Subject returns a Manager bound to subject.
func (c *Catalog) Subject(subject types.Subject) *Manager {
	return NewManager(c.store, subject, c.opts...)
}

// Resolve resolves a single reference.
func (c *Catalog) Resolve(ctx context.Context, ref types.CategoryRef) (*types.Category, error) {
	return NewResolver(c.store).Resolve(ctx, ref)
}

// FindByID returns the category with the given id.
func (c *Catalog) FindByID(ctx context.Context, id int64) (*types.Category, error) {
	return c.Resolve(ctx, types.ID(id))
}

// FindByName returns the first category whose name or slug equals name.
func (c *Catalog) FindByName(ctx context.Context, name string) (*types.Category, error) {
	return c.Resolve(ctx, types.Name(name))
}

// Create adds a category. With a non-nil parent the new category becomes the
// parent's last child; otherwise it is the last root.
func (c *Catalog) Create(ctx context.Context, cat *types.Category, parent types.CategoryRef) error {
	err := c.store.Atomic(ctx, func(tx types.Store) error {
		if err := tx.Categories().Create(ctx, cat); err != nil {
			return err
		}
		if parent == nil {
			return nil
		}
		p, err := NewResolver(tx).Resolve(ctx, parent)
		if err != nil {
			return err
		}
		if err := tx.Categories().AppendChild(ctx, p.ID, cat.ID); err != nil {
			return err
		}
		moved, err := tx.Categories().FindByID(ctx, cat.ID)
		if err != nil {
			return err
		}
		*cat = *moved
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Infow("Category created", "id", cat.ID, "name", cat.Name, "slug", cat.Slug)
	return nil
}

// Update persists changes to a category's name, slug and type.
func (c *Catalog) Update(ctx context.Context, cat *types.Category) error {
	return c.store.Atomic(ctx, func(tx types.Store) error {
		return tx.Categories().Update(ctx, cat)
	})
}

// Delete removes the referenced category and its descendants and returns
// the removed ids.
func (c *Catalog) Delete(ctx context.Context, ref types.CategoryRef) ([]int64, error) {
	var removed []int64
	err := c.store.Atomic(ctx, func(tx types.Store) error {
		cat, err := NewResolver(tx).Resolve(ctx, ref)
		if err != nil {
			return err
		}
		removed, err = tx.Categories().Delete(ctx, cat.ID)
		return err
	})
	return removed, err
}

// Move makes the referenced category the last child of parent, or the last
// root when parent is nil. Its subtree moves with it.
func (c *Catalog) Move(ctx context.Context, ref, parent types.CategoryRef) error {
	return c.store.Atomic(ctx, func(tx types.Store) error {
		r := NewResolver(tx)
		cat, err := r.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		if parent == nil {
			return tx.Categories().MakeRoot(ctx, cat.ID)
		}
		p, err := r.Resolve(ctx, parent)
		if err != nil {
			return err
		}
		return tx.Categories().AppendChild(ctx, p.ID, cat.ID)
	})
}

// Tree returns every category nested under its parent, roots first.
func (c *Catalog) Tree(ctx context.Context) ([]*types.TreeNode, error) {
	return c.store.Categories().Tree(ctx)
}

// FlatTree returns every category in depth-first order with its depth.
func (c *Catalog) FlatTree(ctx context.Context) ([]types.FlatNode, error) {
	return c.store.Categories().FlatTree(ctx)
}

// Ancestors returns the ancestors of the referenced category, root first.
func (c *Catalog) Ancestors(ctx context.Context, ref types.CategoryRef) ([]types.Category, error) {
	cat, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return c.store.Categories().AncestorsOf(ctx, cat.ID)
}

// Descendants returns the descendants of the referenced category in
// depth-first order.
func (c *Catalog) Descendants(ctx context.Context, ref types.CategoryRef) ([]types.Category, error) {
	cat, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return c.store.Categories().DescendantsOf(ctx, cat.ID)
}

// Entries returns the subjects of kind subjectType tagged directly with the
// referenced category.
func (c *Catalog) Entries(ctx context.Context, ref types.CategoryRef, subjectType string) ([]types.Entry, error) {
	cat, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return EntriesOf(ctx, c.store, cat, subjectType)
}

// AllEntries returns the subjects of kind subjectType tagged with the
// referenced category or any of its descendants.
func (c *Catalog) AllEntries(ctx context.Context, ref types.CategoryRef, subjectType string) ([]types.Entry, error) {
	cat, err := c.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return AllEntriesOf(ctx, c.store, cat, subjectType)
}

// Check counts tree integrity errors. With fix set and a broken tree it
// rebuilds the bounds and returns the counts found before the repair.
func (c *Catalog) Check(ctx context.Context, fix bool) (types.TreeErrors, error) {
	errs, err := c.store.Categories().CountErrors(ctx)
	if err != nil || !fix || errs.Total() == 0 {
		return errs, err
	}
	if err := c.store.Atomic(ctx, func(tx types.Store) error {
		return tx.Categories().FixTree(ctx)
	}); err != nil {
		return errs, err
	}
	c.logger.Warnw("Category tree repaired",
		"oddness", errs.Oddness,
		"duplicates", errs.Duplicates,
		"wrong_parent", errs.WrongParent,
		"missing_parent", errs.MissingParent)
	return errs, nil
}
