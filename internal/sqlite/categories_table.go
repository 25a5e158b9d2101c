package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/taxa/internal/nestedset"
	"github.com/mesh-intelligence/taxa/internal/slug"
	"github.com/mesh-intelligence/taxa/pkg/types"
)

// Metric label for category operations.
const categoriesLabel = "categories"

var _ types.CategoryStore = (*categoriesTable)(nil)

type categoriesTable struct {
	s *session
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (ct *categoriesTable) table() string {
	return ct.s.b.config.Tables.Categories
}

// Create inserts c as the last root.
func (ct *categoriesTable) Create(ctx context.Context, c *types.Category) error {
	if c == nil {
		return types.Invalid("category", "must not be nil")
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalidName()
	}

	return ct.s.write(ctx, categoriesLabel, "create", func(q querier) error {
		b := ct.s.b
		kind := c.Type
		if kind == "" {
			kind = b.config.DefaultCategoryType
		}
		slugValue, err := b.slugs.Unique(ctx, c.Name, c.Slug, ct.slugTaken(q, 0))
		if err != nil {
			return err
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := q.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (name, slug, type, created_at, updated_at) VALUES (?, ?, ?, ?, ?)", ct.table()),
			c.Name, slugValue, kind, now, now)
		if err != nil {
			return errors.Wrap(err, "inserting category")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "reading category id")
		}
		if err := b.tree.Insert(ctx, q, id); err != nil {
			return treeError(err, id)
		}

		created, err := ct.get(ctx, q, id)
		if err != nil {
			return err
		}
		*c = *created
		b.logger.Debugw("Category created", "id", id, "slug", slugValue)
		return nil
	})
}

// FindByID returns the category with id.
func (ct *categoriesTable) FindByID(ctx context.Context, id int64) (*types.Category, error) {
	var out *types.Category
	err := ct.s.read(ctx, categoriesLabel, "find_by_id", func(q querier) error {
		c, err := ct.get(ctx, q, id)
		out = c
		return err
	})
	return out, err
}

// FindByName returns the lowest-id category whose name or slug equals name.
func (ct *categoriesTable) FindByName(ctx context.Context, name string) (*types.Category, error) {
	var out *types.Category
	err := ct.s.read(ctx, categoriesLabel, "find_by_name", func(q querier) error {
		row := q.QueryRowContext(ctx,
			fmt.Sprintf("SELECT %s FROM %s WHERE name = ? OR slug = ? ORDER BY id LIMIT 1", categoryColumns, ct.table()),
			name, name)
		c, err := hydrateCategory(row)
		if err == sql.ErrNoRows {
			return types.NotFound(types.Name(name))
		}
		if err != nil {
			return errors.Wrapf(err, "finding category %q", name)
		}
		out = c
		return nil
	})
	return out, err
}

// Update persists Name, Type and Slug of an existing category.
func (ct *categoriesTable) Update(ctx context.Context, c *types.Category) error {
	if c == nil {
		return types.Invalid("category", "must not be nil")
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalidName()
	}

	return ct.s.write(ctx, categoriesLabel, "update", func(q querier) error {
		b := ct.s.b
		existing, err := ct.get(ctx, q, c.ID)
		if err != nil {
			return err
		}

		slugValue := existing.Slug
		switch {
		case c.Slug != "" && c.Slug != existing.Slug:
			slugValue, err = b.slugs.Unique(ctx, c.Name, c.Slug, ct.slugTaken(q, c.ID))
		case c.Name != existing.Name:
			slugValue, err = b.slugs.Unique(ctx, c.Name, "", ct.slugTaken(q, c.ID))
		}
		if err != nil {
			return err
		}
		kind := c.Type
		if kind == "" {
			kind = existing.Type
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		_, err = q.ExecContext(ctx,
			fmt.Sprintf("UPDATE %s SET name = ?, slug = ?, type = ?, updated_at = ? WHERE id = ?", ct.table()),
			c.Name, slugValue, kind, now, c.ID)
		if err != nil {
			return errors.Wrapf(err, "updating category %d", c.ID)
		}

		updated, err := ct.get(ctx, q, c.ID)
		if err != nil {
			return err
		}
		*c = *updated
		return nil
	})
}

// Delete removes the category and its descendants, and their association
// rows when CascadeDelete is on.
func (ct *categoriesTable) Delete(ctx context.Context, id int64) ([]int64, error) {
	var removed []int64
	err := ct.s.write(ctx, categoriesLabel, "delete", func(q querier) error {
		b := ct.s.b
		if _, err := ct.get(ctx, q, id); err != nil {
			return err
		}
		ids, err := b.tree.DeleteSubtree(ctx, q, id)
		if err != nil {
			return treeError(err, id)
		}

		var unlinked int64
		if b.config.CascadeDelete {
			unlinked, err = deleteByCategories(ctx, q, b.config.Tables.Associations, ids)
			if err != nil {
				return err
			}
		}
		removed = ids
		b.logger.Infow("Category deleted",
			"id", id,
			"removed_categories", len(ids),
			"removed_associations", unlinked)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// All returns every category ordered by left bound.
func (ct *categoriesTable) All(ctx context.Context) ([]types.Category, error) {
	var out []types.Category
	err := ct.s.read(ctx, categoriesLabel, "all", func(q querier) error {
		rows, err := q.QueryContext(ctx,
			fmt.Sprintf("SELECT %s FROM %s ORDER BY _lft, id", categoryColumns, ct.table()))
		if err != nil {
			return errors.Wrap(err, "querying categories")
		}
		out, err = collectCategories(rows)
		return err
	})
	return out, err
}

// Tree returns the categories as a forest linked by parent id.
func (ct *categoriesTable) Tree(ctx context.Context) ([]*types.TreeNode, error) {
	cats, err := ct.All(ctx)
	if err != nil {
		return nil, err
	}
	branches, byID := branchesOf(cats)
	return treeNodes(branches, byID), nil
}

// FlatTree returns the categories in depth-first order with their depth.
func (ct *categoriesTable) FlatTree(ctx context.Context) ([]types.FlatNode, error) {
	cats, err := ct.All(ctx)
	if err != nil {
		return nil, err
	}
	branches, byID := branchesOf(cats)
	out := make([]types.FlatNode, 0, len(cats))
	var walk func(bs []*nestedset.Branch)
	walk = func(bs []*nestedset.Branch) {
		for _, br := range bs {
			out = append(out, types.FlatNode{Category: byID[br.ID], Depth: br.Depth})
			walk(br.Children)
		}
	}
	walk(branches)
	return out, nil
}

func (ct *categoriesTable) AncestorsOf(ctx context.Context, id int64) ([]types.Category, error) {
	return ct.related(ctx, "ancestors", id, (*nestedset.Tree).AncestorIDs)
}

func (ct *categoriesTable) DescendantsOf(ctx context.Context, id int64) ([]types.Category, error) {
	return ct.related(ctx, "descendants", id, (*nestedset.Tree).DescendantIDs)
}

func (ct *categoriesTable) Siblings(ctx context.Context, id int64) ([]types.Category, error) {
	return ct.related(ctx, "siblings", id, (*nestedset.Tree).SiblingIDs)
}

type idsFunc func(t *nestedset.Tree, ctx context.Context, q nestedset.Querier, id int64) ([]int64, error)

func (ct *categoriesTable) related(ctx context.Context, op string, id int64, fn idsFunc) ([]types.Category, error) {
	var out []types.Category
	err := ct.s.read(ctx, categoriesLabel, op, func(q querier) error {
		ids, err := fn(ct.s.b.tree, ctx, q, id)
		if err != nil {
			return treeError(err, id)
		}
		out, err = ct.loadMany(ctx, q, ids)
		return err
	})
	return out, err
}

// AppendChild moves child and its subtree under parent.
func (ct *categoriesTable) AppendChild(ctx context.Context, parentID, childID int64) error {
	return ct.s.write(ctx, categoriesLabel, "append_child", func(q querier) error {
		for _, id := range []int64{parentID, childID} {
			if _, err := ct.get(ctx, q, id); err != nil {
				return err
			}
		}
		if err := ct.s.b.tree.AppendChild(ctx, q, parentID, childID); err != nil {
			return treeError(err, childID)
		}
		return ct.touch(ctx, q, childID)
	})
}

// MakeRoot turns id into the last root.
func (ct *categoriesTable) MakeRoot(ctx context.Context, id int64) error {
	return ct.s.write(ctx, categoriesLabel, "make_root", func(q querier) error {
		if _, err := ct.get(ctx, q, id); err != nil {
			return err
		}
		if err := ct.s.b.tree.MakeRoot(ctx, q, id); err != nil {
			return treeError(err, id)
		}
		return ct.touch(ctx, q, id)
	})
}

func (ct *categoriesTable) CountErrors(ctx context.Context) (types.TreeErrors, error) {
	var out types.TreeErrors
	err := ct.s.read(ctx, categoriesLabel, "count_errors", func(q querier) error {
		e, err := ct.s.b.tree.CountErrors(ctx, q)
		if err != nil {
			return err
		}
		out = types.TreeErrors{
			Oddness:       e.Oddness,
			Duplicates:    e.Duplicates,
			WrongParent:   e.WrongParent,
			MissingParent: e.MissingParent,
		}
		return nil
	})
	return out, err
}

func (ct *categoriesTable) IsBroken(ctx context.Context) (bool, error) {
	e, err := ct.CountErrors(ctx)
	if err != nil {
		return false, err
	}
	return e.Total() > 0, nil
}

// FixTree rebuilds the bounds from the parent links.
func (ct *categoriesTable) FixTree(ctx context.Context) error {
	return ct.s.write(ctx, categoriesLabel, "fix_tree", func(q querier) error {
		before, err := ct.s.b.tree.CountErrors(ctx, q)
		if err != nil {
			return err
		}
		if err := ct.s.b.tree.Fix(ctx, q); err != nil {
			return err
		}
		ct.s.b.logger.Infow("Tree rebuilt", "problems_before", before.Total())
		return nil
	})
}

// get loads one category on q.
func (ct *categoriesTable) get(ctx context.Context, q querier, id int64) (*types.Category, error) {
	row := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", categoryColumns, ct.table()), id)
	c, err := hydrateCategory(row)
	if err == sql.ErrNoRows {
		return nil, types.NotFound(types.ID(id))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting category %d", id)
	}
	return c, nil
}

// loadMany loads the categories with ids, ordered by left bound.
func (ct *categoriesTable) loadMany(ctx context.Context, q querier, ids []int64) ([]types.Category, error) {
	if len(ids) == 0 {
		return []types.Category{}, nil
	}
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id IN (%s) ORDER BY _lft, id", categoryColumns, ct.table(), placeholders(len(ids))),
		int64Args(ids)...)
	if err != nil {
		return nil, errors.Wrap(err, "querying categories by id")
	}
	return collectCategories(rows)
}

func (ct *categoriesTable) touch(ctx context.Context, q querier, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := q.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET updated_at = ? WHERE id = ?", ct.table()), now, id)
	return errors.Wrapf(err, "touching category %d", id)
}

// slugTaken reports whether another category than exclude uses a slug.
func (ct *categoriesTable) slugTaken(q querier, exclude int64) slug.ExistsFunc {
	return func(ctx context.Context, s string) (bool, error) {
		var n int
		err := q.QueryRowContext(ctx,
			fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE slug = ? AND id != ?", ct.table()),
			s, exclude).Scan(&n)
		return n > 0, err
	}
}

// hydrateCategory scans one row selected with categoryColumns.
func hydrateCategory(row scanner) (*types.Category, error) {
	var c types.Category
	var parent sql.NullInt64
	var created, updated string
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Type,
		&c.Position.Left, &c.Position.Right, &parent, &created, &updated); err != nil {
		return nil, err
	}
	if parent.Valid {
		p := parent.Int64
		c.Position.ParentID = &p
	}

	var err error
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, errors.Wrapf(err, "parsing created_at of category %d", c.ID)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, errors.Wrapf(err, "parsing updated_at of category %d", c.ID)
	}
	return &c, nil
}

func collectCategories(rows *sql.Rows) ([]types.Category, error) {
	defer rows.Close()
	out := []types.Category{}
	for rows.Next() {
		c, err := hydrateCategory(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning category")
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating categories")
	}
	return out, nil
}

// branchesOf links categories into a forest.
func branchesOf(cats []types.Category) ([]*nestedset.Branch, map[int64]types.Category) {
	nodes := make([]nestedset.Node, 0, len(cats))
	byID := make(map[int64]types.Category, len(cats))
	for _, c := range cats {
		byID[c.ID] = c
		nodes = append(nodes, nestedset.Node{
			ID:       c.ID,
			Left:     c.Position.Left,
			Right:    c.Position.Right,
			ParentID: c.Position.ParentID,
		})
	}
	return nestedset.Build(nodes), byID
}

func treeNodes(bs []*nestedset.Branch, byID map[int64]types.Category) []*types.TreeNode {
	out := make([]*types.TreeNode, 0, len(bs))
	for _, br := range bs {
		c := byID[br.ID]
		out = append(out, &types.TreeNode{
			ID:       c.ID,
			Name:     c.Name,
			Slug:     c.Slug,
			Type:     c.Type,
			Depth:    br.Depth,
			Children: treeNodes(br.Children, byID),
		})
	}
	return out
}

// treeError maps tree engine failures onto the error classes.
func treeError(err error, id int64) error {
	switch {
	case errors.Is(err, nestedset.ErrNodeNotFound):
		return types.NotFound(types.ID(id))
	case errors.Is(err, nestedset.ErrCycle):
		return errors.WithStack(&types.ValidationError{
			Field:  "parent",
			Reason: fmt.Sprintf("category %d cannot move under itself or its descendant", id),
			Err:    types.ErrCyclicMove,
		})
	default:
		return err
	}
}

func invalidName() error {
	return errors.WithStack(&types.ValidationError{
		Field:  "name",
		Reason: "must not be empty",
		Err:    types.ErrInvalidName,
	})
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
