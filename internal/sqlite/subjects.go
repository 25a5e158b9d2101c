package sqlite

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

const subjectsLabel = "subjects"

var _ types.SubjectRegistry = (*subjectRegistry)(nil)

// subjectRegistry maps subject type discriminators to their tables. The
// mapping lives on the Backend; lookups check the table on the session's
// querier.
type subjectRegistry struct {
	s *session
}

// Register adds or replaces a subject kind.
func (r *subjectRegistry) Register(kind types.SubjectKind) error {
	if kind.Name == "" {
		return types.Invalid("subject type", "must not be empty")
	}
	if !types.ValidIdentifier(kind.Table) {
		return types.Invalidf("subject table", "%q is not a valid identifier", kind.Table)
	}

	b := r.s.b
	b.kindsMu.Lock()
	b.kinds[kind.Name] = kind
	b.kindsMu.Unlock()
	b.logger.Debugw("Subject kind registered", "type", kind.Name, "table", kind.Table)
	return nil
}

// Lookup returns the kind registered under name after checking that its
// table exists.
func (r *subjectRegistry) Lookup(ctx context.Context, name string) (types.SubjectKind, error) {
	b := r.s.b
	b.kindsMu.RLock()
	kind, ok := b.kinds[name]
	b.kindsMu.RUnlock()
	if !ok {
		return types.SubjectKind{}, types.Invalidf("subject type", "%q is not registered", name)
	}

	err := r.s.read(ctx, subjectsLabel, "lookup", func(q querier) error {
		var n int
		err := q.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?",
			kind.Table).Scan(&n)
		if err != nil {
			return errors.Wrapf(err, "checking table %s", kind.Table)
		}
		if n == 0 {
			return types.Invalidf("subject type", "table %q for %q does not exist", kind.Table, name)
		}
		return nil
	})
	if err != nil {
		return types.SubjectKind{}, err
	}
	return kind, nil
}

// Kinds returns the registered kinds sorted by name.
func (r *subjectRegistry) Kinds() []types.SubjectKind {
	return r.s.b.kindsSnapshot()
}
