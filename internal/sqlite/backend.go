// Package sqlite implements the taxa store on SQLite: a categories table kept
// as a nested set, an associations table linking categories to subjects, and
// a registry of subject kinds.
package sqlite

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/taxa/internal/nestedset"
	"github.com/mesh-intelligence/taxa/internal/slug"
	"github.com/mesh-intelligence/taxa/pkg/types"
)

// DatabaseFile is the file name of the database inside DataDir.
const DatabaseFile = "taxa.db"

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRegisterer registers the backend's operation counters with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(b *Backend) { b.registerer = reg }
}

// Backend implements types.Store on a SQLite database. Create one with
// NewBackend and call Attach before use.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	path     string

	logger     *zap.SugaredLogger
	registerer prometheus.Registerer
	metrics    *metrics

	tree  *nestedset.Tree
	slugs *slug.Generator

	kindsMu sync.RWMutex
	kinds   map[string]types.SubjectKind
}

var _ types.Backend = (*Backend)(nil)

// NewBackend creates a detached backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		logger: zap.NewNop().Sugar(),
		kinds:  make(map[string]types.SubjectKind),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach opens the database in config.DataDir, creating the directory and
// the schema as needed, and registers the configured subject kinds.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(ctx context.Context, config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}

	config = config.WithDefaults()
	if err := config.Validate(); err != nil {
		return err
	}
	buildDSN, ok := dsnBuilders[config.Driver]
	if !ok {
		return errors.WithHint(
			errors.Wrapf(types.ErrDriverUnknown, "driver %q is not available in this build", config.Driver),
			"the sqlite3 driver needs a cgo build; use driver \"sqlite\" otherwise")
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating data dir %s", dataDir)
	}
	path := filepath.Join(dataDir, DatabaseFile)

	db, err := sql.Open(config.Driver, buildDSN(path))
	if err != nil {
		return types.StoreFailure("open database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return types.StoreFailure("open database", err)
	}

	tree := nestedset.New(config.Tables.Categories)
	for _, stmt := range schemaDDL(config, tree) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return types.StoreFailure("create schema", err)
		}
	}

	if b.metrics == nil {
		m, err := newMetrics(b.registerer)
		if err != nil {
			db.Close()
			return err
		}
		b.metrics = m
	}

	b.db = db
	b.path = path
	b.config = config
	b.tree = tree
	b.slugs = slug.New(slug.ForLocale(config.SlugLocale))

	b.kindsMu.Lock()
	b.kinds = make(map[string]types.SubjectKind, len(config.Subjects))
	for name, table := range config.Subjects {
		b.kinds[name] = types.SubjectKind{Name: name, Table: table}
	}
	b.kindsMu.Unlock()

	b.attached = true
	b.logger.Infow("Backend attached",
		"path", path,
		"driver", config.Driver,
		"categories_table", config.Tables.Categories,
		"associations_table", config.Tables.Associations)
	return nil
}

// Detach closes the database. After Detach every operation returns
// ErrBackendDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return types.StoreFailure("close database", err)
	}
	b.db = nil
	b.attached = false
	b.logger.Infow("Backend detached", "path", b.path)
	return nil
}

// Config returns the effective configuration, with defaults applied.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// Path returns the database file path of the attached backend.
func (b *Backend) Path() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.path
}

// Categories returns the category store.
func (b *Backend) Categories() types.CategoryStore { return b.session().Categories() }

// Associations returns the association store.
func (b *Backend) Associations() types.AssociationStore { return b.session().Associations() }

// Subjects returns the subject registry.
func (b *Backend) Subjects() types.SubjectRegistry { return b.session().Subjects() }

// Atomic runs fn against a Store bound to one transaction. fn must use the
// Store it is given; calling back into the Backend from fn can deadlock with
// a concurrent Detach.
func (b *Backend) Atomic(ctx context.Context, fn func(types.Store) error) error {
	return b.session().Atomic(ctx, fn)
}

func (b *Backend) session() *session {
	return &session{b: b}
}

// kindsSnapshot returns the registered kinds sorted by name.
func (b *Backend) kindsSnapshot() []types.SubjectKind {
	b.kindsMu.RLock()
	defer b.kindsMu.RUnlock()
	out := make([]types.SubjectKind, 0, len(b.kinds))
	for _, k := range b.kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
