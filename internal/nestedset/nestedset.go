// Package nestedset maintains nested-set bounds (_lft, _rgt) and parent
// links for the rows of one SQL table. It answers ancestor and descendant
// queries with range predicates, moves subtrees, and detects and repairs
// broken structure.
//
// Every operation takes a Querier so callers can run it inside their own
// transaction. The package never begins or commits transactions.
package nestedset

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Column names owned by the tree engine.
const (
	LeftColumn   = "_lft"
	RightColumn  = "_rgt"
	ParentColumn = "parent_id"
)

var (
	// ErrNodeNotFound is returned when an operation names a missing row.
	ErrNodeNotFound = errors.New("node not found")
	// ErrCycle is returned when a move would place a node under itself.
	ErrCycle = errors.New("node cannot be moved under itself or its descendant")
)

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Node is a row's position in the tree.
type Node struct {
	ID       int64
	Left     int64
	Right    int64
	ParentID *int64
	Depth    int
}

// Tree operates on the nested-set columns of table. The table must have an
// integer "id" primary key and the three columns named above.
type Tree struct {
	table string
}

// New returns a Tree for table. The name is interpolated into SQL and must
// be validated by the caller.
func New(table string) *Tree {
	return &Tree{table: table}
}

// Table returns the table name the tree operates on.
func (t *Tree) Table() string { return t.table }

// ColumnsDDL returns the column definitions to include in CREATE TABLE.
func ColumnsDDL() string {
	return fmt.Sprintf("%s INTEGER NOT NULL DEFAULT 0,\n    %s INTEGER NOT NULL DEFAULT 0,\n    %s INTEGER",
		LeftColumn, RightColumn, ParentColumn)
}

// IndexDDL returns the index statements for the tree columns.
func (t *Tree) IndexDDL() []string {
	return []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_bounds ON %s(%s, %s)", t.table, t.table, LeftColumn, RightColumn),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_parent ON %s(%s)", t.table, t.table, ParentColumn),
	}
}

// DepthExpr returns a scalar subquery computing the depth of the row
// aliased as alias.
func (t *Tree) DepthExpr(alias string) string {
	return fmt.Sprintf("(SELECT COUNT(*) FROM %[1]s anc WHERE anc.%[2]s < %[4]s.%[2]s AND anc.%[3]s > %[4]s.%[3]s)",
		t.table, LeftColumn, RightColumn, alias)
}

// Insert places the existing row id, whose bounds are still unset, as the
// last root.
func (t *Tree) Insert(ctx context.Context, q Querier, id int64) error {
	var maxRight int64
	query := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s WHERE id != ?", RightColumn, t.table)
	if err := q.QueryRowContext(ctx, query, id).Scan(&maxRight); err != nil {
		return errors.Wrap(err, "reading max right bound")
	}
	update := fmt.Sprintf("UPDATE %s SET %s = ?, %s = ?, %s = NULL WHERE id = ?",
		t.table, LeftColumn, RightColumn, ParentColumn)
	res, err := q.ExecContext(ctx, update, maxRight+1, maxRight+2, id)
	if err != nil {
		return errors.Wrapf(err, "positioning %d", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Wrapf(ErrNodeNotFound, "id %d", id)
	}
	return nil
}

// Get returns the position of id.
func (t *Tree) Get(ctx context.Context, q Querier, id int64) (Node, error) {
	query := fmt.Sprintf("SELECT id, %s, %s, %s FROM %s WHERE id = ?",
		LeftColumn, RightColumn, ParentColumn, t.table)
	var n Node
	var parent sql.NullInt64
	err := q.QueryRowContext(ctx, query, id).Scan(&n.ID, &n.Left, &n.Right, &parent)
	if err == sql.ErrNoRows {
		return Node{}, errors.Wrapf(ErrNodeNotFound, "id %d", id)
	}
	if err != nil {
		return Node{}, errors.Wrapf(err, "reading bounds of %d", id)
	}
	if parent.Valid {
		p := parent.Int64
		n.ParentID = &p
	}
	return n, nil
}

// DescendantIDs returns the ids strictly inside id's bounds, ordered by left
// bound.
func (t *Tree) DescendantIDs(ctx context.Context, q Querier, id int64) ([]int64, error) {
	n, err := t.Get(ctx, q, id)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s > ? AND %s < ? ORDER BY %s",
		t.table, LeftColumn, RightColumn, LeftColumn)
	return t.ids(ctx, q, query, n.Left, n.Right)
}

// AncestorIDs returns the ids whose bounds strictly contain id's, root
// first.
func (t *Tree) AncestorIDs(ctx context.Context, q Querier, id int64) ([]int64, error) {
	n, err := t.Get(ctx, q, id)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s < ? AND %s > ? ORDER BY %s",
		t.table, LeftColumn, RightColumn, LeftColumn)
	return t.ids(ctx, q, query, n.Left, n.Right)
}

// SiblingIDs returns the other children of id's parent (or the other roots),
// ordered by left bound.
func (t *Tree) SiblingIDs(ctx context.Context, q Querier, id int64) ([]int64, error) {
	n, err := t.Get(ctx, q, id)
	if err != nil {
		return nil, err
	}
	var parent any
	if n.ParentID != nil {
		parent = *n.ParentID
	}
	query := fmt.Sprintf("SELECT id FROM %s WHERE %s IS ? AND id != ? ORDER BY %s",
		t.table, ParentColumn, LeftColumn)
	return t.ids(ctx, q, query, parent, id)
}

func (t *Tree) ids(ctx context.Context, q Querier, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying node ids")
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scanning node id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating node ids")
	}
	return ids, nil
}

// AppendChild moves child and its subtree to be the last child of parent.
func (t *Tree) AppendChild(ctx context.Context, q Querier, parentID, childID int64) error {
	parent, err := t.Get(ctx, q, parentID)
	if err != nil {
		return err
	}
	child, err := t.Get(ctx, q, childID)
	if err != nil {
		return err
	}
	if parent.ID == child.ID || (child.Left < parent.Left && parent.Right < child.Right) {
		return errors.Wrapf(ErrCycle, "append %d under %d", childID, parentID)
	}

	query := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", t.table, ParentColumn)
	if _, err := q.ExecContext(ctx, query, parentID, childID); err != nil {
		return errors.Wrapf(err, "setting parent of %d", childID)
	}
	return t.rebuild(ctx, q, childID)
}

// MakeRoot detaches id from its parent and appends it as the last root.
func (t *Tree) MakeRoot(ctx context.Context, q Querier, id int64) error {
	if _, err := t.Get(ctx, q, id); err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE %s SET %s = NULL WHERE id = ?", t.table, ParentColumn)
	if _, err := q.ExecContext(ctx, query, id); err != nil {
		return errors.Wrapf(err, "clearing parent of %d", id)
	}
	return t.rebuild(ctx, q, id)
}

// DeleteSubtree removes id and its descendants, closes the gap in the
// bounds, and returns the removed ids in left-bound order.
func (t *Tree) DeleteSubtree(ctx context.Context, q Querier, id int64) ([]int64, error) {
	n, err := t.Get(ctx, q, id)
	if err != nil {
		return nil, err
	}

	selectQuery := fmt.Sprintf("SELECT id FROM %s WHERE %s >= ? AND %s <= ? ORDER BY %s",
		t.table, LeftColumn, RightColumn, LeftColumn)
	removed, err := t.ids(ctx, q, selectQuery, n.Left, n.Right)
	if err != nil {
		return nil, err
	}

	deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE %s >= ? AND %s <= ?", t.table, LeftColumn, RightColumn)
	if _, err := q.ExecContext(ctx, deleteQuery, n.Left, n.Right); err != nil {
		return nil, errors.Wrapf(err, "deleting subtree of %d", id)
	}

	width := n.Right - n.Left + 1
	shifts := []string{
		fmt.Sprintf("UPDATE %s SET %s = %s - ? WHERE %s > ?", t.table, LeftColumn, LeftColumn, LeftColumn),
		fmt.Sprintf("UPDATE %s SET %s = %s - ? WHERE %s > ?", t.table, RightColumn, RightColumn, RightColumn),
	}
	for _, s := range shifts {
		if _, err := q.ExecContext(ctx, s, width, n.Right); err != nil {
			return nil, errors.Wrap(err, "closing bounds gap")
		}
	}
	return removed, nil
}

// Fix rebuilds every bound from the parent links. Rows whose parent is
// missing, and rows caught in a parent cycle, become roots.
func (t *Tree) Fix(ctx context.Context, q Querier) error {
	return t.rebuild(ctx, q, 0)
}
