package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/taxa/pkg/types"
)

// Snapshot file names inside the snapshot directory.
const (
	ManifestFile     = "manifest.json"
	CategoriesFile   = "categories.jsonl"
	AssociationsFile = "associations.jsonl"
)

const snapshotLabel = "snapshot"

// Manifest describes one snapshot.
type Manifest struct {
	ID           string           `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	Tables       types.TableNames `json:"tables"`
	Categories   int              `json:"categories"`
	Associations int              `json:"associations"`
}

// Export writes every category and association to dir, read in one
// transaction so the two files agree.
func (b *Backend) Export(ctx context.Context, dir string) (Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, errors.Wrapf(err, "creating snapshot dir %s", dir)
	}

	var cats []types.Category
	var assocs []types.Association
	err := b.Atomic(ctx, func(tx types.Store) error {
		var err error
		if cats, err = tx.Categories().All(ctx); err != nil {
			return err
		}
		assocs, err = tx.Associations().All(ctx)
		return err
	})
	if err != nil {
		return Manifest{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Manifest{}, errors.Wrap(err, "generating snapshot id")
	}
	m := Manifest{
		ID:           id.String(),
		CreatedAt:    time.Now().UTC(),
		Tables:       b.Config().Tables,
		Categories:   len(cats),
		Associations: len(assocs),
	}

	if err := writeJSONL(filepath.Join(dir, CategoriesFile), cats); err != nil {
		return Manifest{}, errors.Wrap(err, "writing categories")
	}
	if err := writeJSONL(filepath.Join(dir, AssociationsFile), assocs); err != nil {
		return Manifest{}, errors.Wrap(err, "writing associations")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, errors.Wrap(err, "encoding manifest")
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), append(data, '\n'), 0o644); err != nil {
		return Manifest{}, errors.Wrap(err, "writing manifest")
	}

	b.logger.Infow("Snapshot exported",
		"id", m.ID,
		"dir", dir,
		"categories", m.Categories,
		"associations", m.Associations)
	return m, nil
}

// Import replaces the contents of both tables with the snapshot in dir. Ids,
// positions and timestamps are restored as written. The replacement runs in
// one transaction; the tree is rebuilt if the snapshot's bounds are broken.
func (b *Backend) Import(ctx context.Context, dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Manifest{}, errors.Wrap(err, "reading manifest")
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, types.Invalidf("manifest", "malformed: %v", err)
	}

	cats, err := readJSONL[types.Category](filepath.Join(dir, CategoriesFile))
	if err != nil {
		return Manifest{}, types.Invalidf("snapshot", "%v", err)
	}
	assocs, err := readJSONL[types.Association](filepath.Join(dir, AssociationsFile))
	if err != nil {
		return Manifest{}, types.Invalidf("snapshot", "%v", err)
	}
	if len(cats) != m.Categories || len(assocs) != m.Associations {
		return Manifest{}, types.Invalidf("snapshot",
			"manifest lists %d categories and %d associations, files hold %d and %d",
			m.Categories, m.Associations, len(cats), len(assocs))
	}

	s := b.session()
	err = s.write(ctx, snapshotLabel, "import", func(q querier) error {
		catTable, assocTable := b.config.Tables.Categories, b.config.Tables.Associations
		for _, table := range []string{assocTable, catTable} {
			if _, err := q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return errors.Wrapf(err, "clearing %s", table)
			}
		}

		insertCat := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, catTable, categoryColumns)
		for _, c := range cats {
			var parent any
			if c.Position.ParentID != nil {
				parent = *c.Position.ParentID
			}
			if _, err := q.ExecContext(ctx, insertCat,
				c.ID, c.Name, c.Slug, c.Type, c.Position.Left, c.Position.Right, parent,
				c.CreatedAt.UTC().Format(time.RFC3339Nano), c.UpdatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
				return errors.Wrapf(err, "restoring category %d", c.ID)
			}
		}

		insertAssoc := fmt.Sprintf("INSERT INTO %s (category_id, subject_id, subject_type) VALUES (?, ?, ?)", assocTable)
		for _, a := range assocs {
			if _, err := q.ExecContext(ctx, insertAssoc, a.CategoryID, a.Subject.ID, a.Subject.Type); err != nil {
				return errors.Wrapf(err, "restoring association %d -> %s", a.CategoryID, a.Subject)
			}
		}

		broken, err := b.tree.IsBroken(ctx, q)
		if err != nil {
			return err
		}
		if broken {
			b.logger.Warnw("Snapshot tree is broken, rebuilding", "id", m.ID)
			return b.tree.Fix(ctx, q)
		}
		return nil
	})
	if err != nil {
		return Manifest{}, err
	}

	b.logger.Infow("Snapshot imported",
		"id", m.ID,
		"dir", dir,
		"categories", len(cats),
		"associations", len(assocs))
	return m, nil
}
