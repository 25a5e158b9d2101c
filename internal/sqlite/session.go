package sqlite

import (
	"context"
	"database/sql"

	"github.com/mesh-intelligence/taxa/internal/nestedset"
	"github.com/mesh-intelligence/taxa/pkg/types"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier = nestedset.Querier

// session is a view of the backend that either runs each call on the pool or
// runs everything on one transaction.
type session struct {
	b  *Backend
	tx *sql.Tx
}

var _ types.Store = (*session)(nil)

func (s *session) Categories() types.CategoryStore {
	return &categoriesTable{s: s}
}

func (s *session) Associations() types.AssociationStore {
	return &associationsTable{s: s}
}

func (s *session) Subjects() types.SubjectRegistry {
	return &subjectRegistry{s: s}
}

// Atomic runs fn in a new transaction, or in the current one when the
// session is already transactional.
func (s *session) Atomic(ctx context.Context, fn func(types.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return s.withTx(ctx, func(tx *session) error { return fn(tx) })
}

// acquire returns the querier for one call and a release func. Outside a
// transaction it holds the backend's read lock until release.
func (s *session) acquire() (querier, func(), error) {
	if s.tx != nil {
		return s.tx, func() {}, nil
	}
	s.b.mu.RLock()
	if !s.b.attached {
		s.b.mu.RUnlock()
		return nil, nil, types.ErrBackendDetached
	}
	return s.b.db, s.b.mu.RUnlock, nil
}

// withTx begins a transaction, runs fn on a session bound to it, and commits
// when fn succeeds. The read lock is held for the whole transaction.
func (s *session) withTx(ctx context.Context, fn func(*session) error) error {
	s.b.mu.RLock()
	defer s.b.mu.RUnlock()

	if !s.b.attached {
		return types.ErrBackendDetached
	}

	tx, err := s.b.db.BeginTx(ctx, nil)
	if err != nil {
		return types.StoreFailure("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := fn(&session{b: s.b, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return types.StoreFailure("committing transaction", err)
	}
	return nil
}

// read runs fn with a querier and records the outcome. A done ctx fails
// before a querier is taken.
func (s *session) read(ctx context.Context, table, op string, fn func(q querier) error) error {
	if err := ctx.Err(); err != nil {
		err = types.StoreFailure(table+" "+op, err)
		s.b.metrics.observe(table, op, err)
		return err
	}
	q, release, err := s.acquire()
	if err != nil {
		s.b.metrics.observe(table, op, err)
		return err
	}
	defer release()

	err = types.StoreFailure(table+" "+op, fn(q))
	s.b.metrics.observe(table, op, err)
	return err
}

// write runs fn inside a transaction, reusing the session's own when
// present, and records the outcome.
func (s *session) write(ctx context.Context, table, op string, fn func(q querier) error) error {
	var err error
	if s.tx != nil {
		err = fn(s.tx)
	} else {
		err = s.withTx(ctx, func(tx *session) error { return fn(tx.tx) })
	}
	err = types.StoreFailure(table+" "+op, err)
	s.b.metrics.observe(table, op, err)
	if err != nil {
		s.b.logger.Debugw("Store write failed", "table", table, "op", op, "error", err)
	}
	return err
}
