package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

const associationsLabel = "associations"

// matchedCategoryColumn aliases the association's category id in entry
// queries so it cannot collide with a subject column.
// Columns appended to entry rows from the association table.
const (
	matchedCategoryColumn = "__taxa_category_id"
	matchedSubjectColumn  = "__taxa_subject_id"
)

var _ types.AssociationStore = (*associationsTable)(nil)

type associationsTable struct {
	s *session
}

func (at *associationsTable) table() string {
	return at.s.b.config.Tables.Associations
}

// Insert adds one association row. Under AttachIgnore the row is skipped
// when the pair already exists.
func (at *associationsTable) Insert(ctx context.Context, a types.Association) (bool, error) {
	if err := a.Subject.Validate(); err != nil {
		return false, err
	}
	if a.CategoryID <= 0 {
		return false, types.Invalidf("category id", "must be positive, got %d", a.CategoryID)
	}

	var inserted bool
	err := at.s.write(ctx, associationsLabel, "insert", func(q querier) error {
		var res sql.Result
		var err error
		if at.s.b.config.AttachPolicy == types.AttachIgnore {
			res, err = q.ExecContext(ctx, fmt.Sprintf(
				`INSERT INTO %[1]s (category_id, subject_id, subject_type)
SELECT ?, ?, ? WHERE NOT EXISTS (
    SELECT 1 FROM %[1]s WHERE category_id = ? AND subject_id = ? AND subject_type = ?
)`, at.table()),
				a.CategoryID, a.Subject.ID, a.Subject.Type,
				a.CategoryID, a.Subject.ID, a.Subject.Type)
		} else {
			res, err = q.ExecContext(ctx,
				fmt.Sprintf("INSERT INTO %s (category_id, subject_id, subject_type) VALUES (?, ?, ?)", at.table()),
				a.CategoryID, a.Subject.ID, a.Subject.Type)
		}
		if err != nil {
			return errors.Wrapf(err, "inserting association %d -> %s", a.CategoryID, a.Subject)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "reading affected rows")
		}
		inserted = n > 0
		return nil
	})
	return inserted, err
}

// Delete removes every row for the pair.
func (at *associationsTable) Delete(ctx context.Context, categoryID int64, subject types.Subject) (int64, error) {
	if err := subject.Validate(); err != nil {
		return 0, err
	}
	return at.exec(ctx, "delete",
		fmt.Sprintf("DELETE FROM %s WHERE category_id = ? AND subject_type = ? AND subject_id = ?", at.table()),
		categoryID, subject.Type, subject.ID)
}

// DeleteSubject removes every row for the subject.
func (at *associationsTable) DeleteSubject(ctx context.Context, subject types.Subject) (int64, error) {
	if err := subject.Validate(); err != nil {
		return 0, err
	}
	return at.exec(ctx, "delete_subject",
		fmt.Sprintf("DELETE FROM %s WHERE subject_type = ? AND subject_id = ?", at.table()),
		subject.Type, subject.ID)
}

// DeleteCategories removes every row pointing at any of the ids.
func (at *associationsTable) DeleteCategories(ctx context.Context, categoryIDs []int64) (int64, error) {
	var n int64
	err := at.s.write(ctx, associationsLabel, "delete_categories", func(q querier) error {
		var err error
		n, err = deleteByCategories(ctx, q, at.table(), categoryIDs)
		return err
	})
	return n, err
}

func (at *associationsTable) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	var n int64
	err := at.s.write(ctx, associationsLabel, op, func(q querier) error {
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return errors.Wrap(err, "deleting associations")
		}
		n, err = res.RowsAffected()
		return errors.Wrap(err, "reading affected rows")
	})
	return n, err
}

// List returns the subject's rows in insertion order.
func (at *associationsTable) List(ctx context.Context, subject types.Subject) ([]types.Association, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}
	return at.list(ctx, "list",
		fmt.Sprintf("SELECT category_id, subject_type, subject_id FROM %s WHERE subject_type = ? AND subject_id = ? ORDER BY rowid", at.table()),
		subject.Type, subject.ID)
}

// All returns every row in insertion order.
func (at *associationsTable) All(ctx context.Context) ([]types.Association, error) {
	return at.list(ctx, "all",
		fmt.Sprintf("SELECT category_id, subject_type, subject_id FROM %s ORDER BY rowid", at.table()))
}

func (at *associationsTable) list(ctx context.Context, op, query string, args ...any) ([]types.Association, error) {
	var out []types.Association
	err := at.s.read(ctx, associationsLabel, op, func(q querier) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return errors.Wrap(err, "querying associations")
		}
		defer rows.Close()

		out = []types.Association{}
		for rows.Next() {
			var a types.Association
			if err := rows.Scan(&a.CategoryID, &a.Subject.Type, &a.Subject.ID); err != nil {
				return errors.Wrap(err, "scanning association")
			}
			out = append(out, a)
		}
		return errors.Wrap(rows.Err(), "iterating associations")
	})
	return out, err
}

// Categories joins the subject's rows with the categories table, one result
// per row, in insertion order. Rows pointing at missing categories are
// skipped.
func (at *associationsTable) Categories(ctx context.Context, subject types.Subject) ([]types.Category, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}
	var out []types.Category
	err := at.s.read(ctx, associationsLabel, "categories", func(q querier) error {
		rows, err := q.QueryContext(ctx, fmt.Sprintf(
			`SELECT c.id, c.name, c.slug, c.type, c._lft, c._rgt, c.parent_id, c.created_at, c.updated_at
FROM %s a JOIN %s c ON c.id = a.category_id
WHERE a.subject_type = ? AND a.subject_id = ?
ORDER BY a.rowid`, at.table(), at.s.b.config.Tables.Categories),
			subject.Type, subject.ID)
		if err != nil {
			return errors.Wrap(err, "querying subject categories")
		}
		out, err = collectCategories(rows)
		return err
	})
	return out, err
}

// Count returns the number of rows for the subject, restricted to
// categoryID when it is not zero.
func (at *associationsTable) Count(ctx context.Context, categoryID int64, subject types.Subject) (int64, error) {
	if err := subject.Validate(); err != nil {
		return 0, err
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE subject_type = ? AND subject_id = ?", at.table())
	args := []any{subject.Type, subject.ID}
	if categoryID != 0 {
		query += " AND category_id = ?"
		args = append(args, categoryID)
	}

	var n int64
	err := at.s.read(ctx, associationsLabel, "count", func(q querier) error {
		return errors.Wrap(q.QueryRowContext(ctx, query, args...).Scan(&n), "counting associations")
	})
	return n, err
}

// Entries joins the rows whose category id is in categoryIDs with the
// subject table of kind. Every subject column is returned, plus the matched
// category id. SubjectID comes from the association row, so subject tables
// with text ids still report it. Nothing is deduplicated.
func (at *associationsTable) Entries(ctx context.Context, kind types.SubjectKind, categoryIDs []int64) ([]types.Entry, error) {
	if !types.ValidIdentifier(kind.Table) {
		return nil, types.Invalidf("subject table", "%q is not a valid identifier", kind.Table)
	}
	if len(categoryIDs) == 0 {
		return []types.Entry{}, nil
	}

	query := fmt.Sprintf(`SELECT s.*, a.category_id AS %s, a.subject_id AS %s
FROM %s s JOIN %s a ON s.id = a.subject_id AND a.subject_type = ?
WHERE a.category_id IN (%s)
ORDER BY a.rowid`, matchedCategoryColumn, matchedSubjectColumn, kind.Table, at.table(), placeholders(len(categoryIDs)))
	args := append([]any{kind.Name}, int64Args(categoryIDs)...)

	var out []types.Entry
	err := at.s.read(ctx, associationsLabel, "entries", func(q querier) error {
		rows, err := q.QueryContext(ctx, query, args...)
		if err != nil {
			return errors.Wrapf(err, "querying %s entries", kind.Name)
		}
		out, err = scanEntries(rows)
		return err
	})
	return out, err
}

// scanEntries reads rows of unknown shape. The last two columns are the
// matched category and subject ids.
func scanEntries(rows *sql.Rows) ([]types.Entry, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "reading entry columns")
	}

	out := []types.Entry{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "scanning entry")
		}

		e := types.Entry{Columns: make(map[string]any, len(cols)-2)}
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			switch col {
			case matchedCategoryColumn:
				e.CategoryID = toInt64(v)
			case matchedSubjectColumn:
				e.SubjectID = toInt64(v)
			default:
				e.Columns[col] = v
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating entries")
	}
	return out, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// deleteByCategories removes the rows pointing at ids on q.
func deleteByCategories(ctx context.Context, q querier, table string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := q.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE category_id IN (%s)", table, placeholders(len(ids))),
		int64Args(ids)...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting associations by category")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "reading affected rows")
	}
	return n, nil
}
