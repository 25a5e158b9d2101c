package nestedset

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Branch is a node with its children, as produced by Build.
type Branch struct {
	Node
	Children []*Branch
}

// Nodes returns every row ordered by left bound, with depth computed from
// the bounds.
func (t *Tree) Nodes(ctx context.Context, q Querier) ([]Node, error) {
	query := fmt.Sprintf("SELECT n.id, n.%s, n.%s, n.%s, %s FROM %s n ORDER BY n.%s, n.id",
		LeftColumn, RightColumn, ParentColumn, t.DepthExpr("n"), t.table, LeftColumn)
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "querying nodes")
	}
	defer rows.Close()

	nodes := []Node{}
	for rows.Next() {
		var n Node
		var parent sql.NullInt64
		if err := rows.Scan(&n.ID, &n.Left, &n.Right, &parent, &n.Depth); err != nil {
			return nil, errors.Wrap(err, "scanning node")
		}
		if parent.Valid {
			p := parent.Int64
			n.ParentID = &p
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating nodes")
	}
	return nodes, nil
}

// Build links nodes into a forest through their parent ids. Sibling order
// follows input order. Nodes whose parent is absent from the input become
// roots. Depth is reset from the nesting.
func Build(nodes []Node) []*Branch {
	byID := make(map[int64]*Branch, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = &Branch{Node: n, Children: []*Branch{}}
	}

	roots := []*Branch{}
	for _, n := range nodes {
		b := byID[n.ID]
		if n.ParentID != nil {
			if parent, ok := byID[*n.ParentID]; ok && parent != b {
				parent.Children = append(parent.Children, b)
				continue
			}
		}
		roots = append(roots, b)
	}

	var setDepth func(bs []*Branch, depth int)
	setDepth = func(bs []*Branch, depth int) {
		for _, b := range bs {
			b.Depth = depth
			setDepth(b.Children, depth+1)
		}
	}
	setDepth(roots, 0)
	return roots
}

type position struct {
	left, right int64
	parent      *int64
}

// rebuild recomputes every bound from the parent links with a depth-first
// walk. Children keep their current left-bound order, except moved, which is
// placed last among its siblings.
func (t *Tree) rebuild(ctx context.Context, q Querier, moved int64) error {
	query := fmt.Sprintf("SELECT id, %s, %s, %s FROM %s ORDER BY %s, id",
		LeftColumn, RightColumn, ParentColumn, t.table, LeftColumn)
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return errors.Wrap(err, "loading tree")
	}

	var order []int64
	current := map[int64]position{}
	for rows.Next() {
		var id int64
		var p position
		var parent sql.NullInt64
		if err := rows.Scan(&id, &p.left, &p.right, &parent); err != nil {
			rows.Close()
			return errors.Wrap(err, "scanning tree row")
		}
		if parent.Valid {
			v := parent.Int64
			p.parent = &v
		}
		order = append(order, id)
		current[id] = p
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return errors.Wrap(err, "iterating tree rows")
	}
	rows.Close()

	// Key 0 holds the roots; ids are positive.
	children := map[int64][]int64{}
	orphaned := map[int64]bool{}
	for _, id := range order {
		key := int64(0)
		if p := current[id].parent; p != nil {
			if _, ok := current[*p]; ok && *p != id {
				key = *p
			} else {
				orphaned[id] = true
			}
		}
		children[key] = append(children[key], id)
	}

	if moved != 0 {
		key := int64(0)
		if p := current[moved].parent; p != nil && !orphaned[moved] {
			key = *p
		}
		children[key] = moveLast(children[key], moved)
	}

	next := map[int64]position{}
	visited := map[int64]bool{}
	counter := int64(0)
	var walk func(id int64)
	walk = func(id int64) {
		visited[id] = true
		counter++
		left := counter
		for _, c := range children[id] {
			if !visited[c] {
				walk(c)
			}
		}
		counter++
		next[id] = position{left: left, right: counter, parent: current[id].parent}
	}
	for _, id := range children[0] {
		walk(id)
	}
	// Rows left unvisited sit on a parent cycle; the first one seen becomes
	// a root.
	for _, id := range order {
		if !visited[id] {
			orphaned[id] = true
			walk(id)
		}
	}

	update := fmt.Sprintf("UPDATE %s SET %s = ?, %s = ? WHERE id = ?", t.table, LeftColumn, RightColumn)
	reroot := fmt.Sprintf("UPDATE %s SET %s = ?, %s = ?, %s = NULL WHERE id = ?",
		t.table, LeftColumn, RightColumn, ParentColumn)
	for _, id := range order {
		was, now := current[id], next[id]
		switch {
		case orphaned[id]:
			if _, err := q.ExecContext(ctx, reroot, now.left, now.right, id); err != nil {
				return errors.Wrapf(err, "re-rooting %d", id)
			}
		case was.left != now.left || was.right != now.right:
			if _, err := q.ExecContext(ctx, update, now.left, now.right, id); err != nil {
				return errors.Wrapf(err, "updating bounds of %d", id)
			}
		}
	}
	return nil
}

func moveLast(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	found := false
	for _, v := range ids {
		if v == id {
			found = true
			continue
		}
		out = append(out, v)
	}
	if found {
		out = append(out, id)
	}
	return out
}
