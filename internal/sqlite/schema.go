package sqlite

import (
	"fmt"

	"github.com/mesh-intelligence/taxa/internal/nestedset"
	"github.com/mesh-intelligence/taxa/pkg/types"
)

// Table layouts. Table names come from Config and are validated
// identifiers before they reach these templates.
const (
	createCategories = `CREATE TABLE IF NOT EXISTS %s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    slug TEXT NOT NULL,
    type TEXT NOT NULL DEFAULT 'default',
    %s,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

	// No primary key and no uniqueness; rowid order is insertion order.
	createAssociations = `CREATE TABLE IF NOT EXISTS %s (
    category_id INTEGER NOT NULL,
    subject_id INTEGER NOT NULL,
    subject_type TEXT NOT NULL
)`
)

// categoryColumns is the select list hydrateCategory expects.
const categoryColumns = "id, name, slug, type, _lft, _rgt, parent_id, created_at, updated_at"

// schemaDDL returns the statements creating every table and index for cfg.
func schemaDDL(cfg types.Config, tree *nestedset.Tree) []string {
	cats, assoc := cfg.Tables.Categories, cfg.Tables.Associations
	ddl := []string{
		fmt.Sprintf(createCategories, cats, nestedset.ColumnsDDL()),
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_slug ON %s(slug)", cats, cats),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_name ON %s(name)", cats, cats),
		fmt.Sprintf(createAssociations, assoc),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_subject ON %s(subject_type, subject_id)", assoc, assoc),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_category ON %s(category_id)", assoc, assoc),
	}
	return append(ddl, tree.IndexDDL()...)
}
