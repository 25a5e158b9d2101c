package nestedset

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Errors counts structural problems in a stored tree.
type Errors struct {
	// Oddness counts nodes whose left bound is not below their right bound
	// or whose width is odd.
	Oddness int
	// Duplicates counts pairs of nodes sharing a bound value.
	Duplicates int
	// WrongParent counts nodes that are not directly inside their parent's
	// bounds.
	WrongParent int
	// MissingParent counts nodes whose parent row does not exist.
	MissingParent int
}

// Total returns the number of problems.
func (e Errors) Total() int {
	return e.Oddness + e.Duplicates + e.WrongParent + e.MissingParent
}

type check struct {
	name  string
	query string
	dest  *int
}

// CountErrors inspects the whole table.
func (t *Tree) CountErrors(ctx context.Context, q Querier) (Errors, error) {
	l, r, p, tbl := LeftColumn, RightColumn, ParentColumn, t.table
	var out Errors
	checks := []check{
		{"oddness", fmt.Sprintf(
			"SELECT COUNT(*) FROM %[1]s WHERE %[2]s >= %[3]s OR (%[3]s - %[2]s) %% 2 = 0",
			tbl, l, r), &out.Oddness},
		{"duplicates", fmt.Sprintf(
			"SELECT COUNT(*) FROM %[1]s c1, %[1]s c2 WHERE c1.id < c2.id AND "+
				"(c1.%[2]s = c2.%[2]s OR c1.%[3]s = c2.%[3]s OR c1.%[2]s = c2.%[3]s OR c1.%[3]s = c2.%[2]s)",
			tbl, l, r), &out.Duplicates},
		{"wrong_parent", fmt.Sprintf(
			"SELECT COUNT(*) FROM %[1]s c, %[1]s p WHERE c.%[4]s = p.id AND "+
				"(p.%[2]s >= c.%[2]s OR p.%[3]s <= c.%[3]s OR EXISTS ("+
				"SELECT 1 FROM %[1]s m WHERE m.%[2]s > p.%[2]s AND m.%[2]s < c.%[2]s "+
				"AND m.%[3]s > c.%[3]s AND m.%[3]s < p.%[3]s))",
			tbl, l, r, p), &out.WrongParent},
		{"missing_parent", fmt.Sprintf(
			"SELECT COUNT(*) FROM %[1]s c WHERE c.%[2]s IS NOT NULL AND "+
				"NOT EXISTS (SELECT 1 FROM %[1]s p WHERE p.id = c.%[2]s)",
			tbl, p), &out.MissingParent},
	}

	for _, c := range checks {
		if err := q.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return Errors{}, errors.Wrapf(err, "counting %s", c.name)
		}
	}
	return out, nil
}

// IsBroken reports whether CountErrors finds any problem.
func (t *Tree) IsBroken(ctx context.Context, q Querier) (bool, error) {
	e, err := t.CountErrors(ctx, q)
	if err != nil {
		return false, err
	}
	return e.Total() > 0, nil
}
