package types

import (
	"regexp"

	"github.com/cockroachdb/errors"
)

// Config holds backend selection and parameters for Backend.Attach. It
// replaces ambient global configuration: table names, the bound category
// type, and policy switches are passed explicitly at construction time.
type Config struct {
	Backend string `json:"backend" yaml:"backend" mapstructure:"backend"`
	Driver  string `json:"driver" yaml:"driver,omitempty" mapstructure:"driver"`
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	Tables TableNames `json:"tables" yaml:"tables" mapstructure:"tables"`

	// DefaultCategoryType is assigned to categories created without a type.
	DefaultCategoryType string `json:"default_category_type" yaml:"default_category_type" mapstructure:"default_category_type"`

	AttachPolicy AttachPolicy `json:"attach_policy" yaml:"attach_policy" mapstructure:"attach_policy"`

	// CascadeDelete removes the association rows of a deleted category and
	// of its descendants in the same transaction as the category rows.
	CascadeDelete bool `json:"cascade_delete" yaml:"cascade_delete" mapstructure:"cascade_delete"`

	// Subjects maps a subject type discriminator to the table holding its
	// rows. The table must have an integer "id" column.
	Subjects map[string]string `json:"subjects" yaml:"subjects,omitempty" mapstructure:"subjects"`

	SlugLocale string `json:"slug_locale" yaml:"slug_locale" mapstructure:"slug_locale"`
}

// TableNames names the two tables owned by the backend.
type TableNames struct {
	Categories   string `json:"categories" yaml:"categories" mapstructure:"categories"`
	Associations string `json:"associations" yaml:"associations" mapstructure:"associations"`
}

// AttachPolicy decides what attaching an already attached category does.
//
// AttachDuplicate inserts another association row, so the same pair can
// appear several times and CategoriesIDs reports it once per row.
// AttachIgnore skips the insert when the (category, subject) pair already
// exists, making Attach idempotent.
type AttachPolicy string

const (
	AttachDuplicate AttachPolicy = "duplicate"
	AttachIgnore    AttachPolicy = "ignore"
)

// Supported backend and driver names.
const (
	BackendSQLite = "sqlite"

	// DriverSQLite is the pure-Go modernc.org/sqlite driver.
	DriverSQLite = "sqlite"
	// DriverSQLite3 is github.com/mattn/go-sqlite3, available in cgo builds.
	DriverSQLite3 = "sqlite3"
)

// Slug locales.
const (
	SlugLocalePersian = "persian"
	SlugLocaleASCII   = "ascii"
)

// Defaults for the persisted layout.
const (
	DefaultCategoriesTable   = "categories"
	DefaultAssociationsTable = "categories_models"
	DefaultCategoryType      = "default"
)

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrDriverUnknown       = errors.New("unknown driver")
	ErrAttachPolicyUnknown = errors.New("unknown attach policy")
	ErrSlugLocaleUnknown   = errors.New("unknown slug locale")
	ErrInvalidIdentifier   = errors.New("invalid SQL identifier")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be interpolated into SQL as a
// table name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// DefaultConfig returns a Config with every optional field populated.
func DefaultConfig() Config {
	return Config{
		Backend: BackendSQLite,
		Driver:  DriverSQLite,
		Tables: TableNames{
			Categories:   DefaultCategoriesTable,
			Associations: DefaultAssociationsTable,
		},
		DefaultCategoryType: DefaultCategoryType,
		AttachPolicy:        AttachDuplicate,
		CascadeDelete:       true,
		SlugLocale:          SlugLocalePersian,
	}
}

// WithDefaults fills empty optional fields from DefaultConfig. CascadeDelete
// is a plain bool and is left as given.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.Backend == "" {
		c.Backend = d.Backend
	}
	if c.Driver == "" {
		c.Driver = d.Driver
	}
	if c.Tables.Categories == "" {
		c.Tables.Categories = d.Tables.Categories
	}
	if c.Tables.Associations == "" {
		c.Tables.Associations = d.Tables.Associations
	}
	if c.DefaultCategoryType == "" {
		c.DefaultCategoryType = d.DefaultCategoryType
	}
	if c.AttachPolicy == "" {
		c.AttachPolicy = d.AttachPolicy
	}
	if c.SlugLocale == "" {
		c.SlugLocale = d.SlugLocale
	}
	return c
}

// Validate checks that the Config is well-formed. Empty optional fields are
// accepted; call WithDefaults first to populate them.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return errors.Wrapf(ErrBackendUnknown, "backend %q", c.Backend)
	}
	switch c.Driver {
	case "", DriverSQLite, DriverSQLite3:
	default:
		return errors.Wrapf(ErrDriverUnknown, "driver %q", c.Driver)
	}
	switch c.AttachPolicy {
	case "", AttachDuplicate, AttachIgnore:
	default:
		return errors.Wrapf(ErrAttachPolicyUnknown, "attach policy %q", c.AttachPolicy)
	}
	switch c.SlugLocale {
	case "", SlugLocalePersian, SlugLocaleASCII:
	default:
		return errors.Wrapf(ErrSlugLocaleUnknown, "slug locale %q", c.SlugLocale)
	}
	for _, name := range []string{c.Tables.Categories, c.Tables.Associations} {
		if name != "" && !ValidIdentifier(name) {
			return errors.Wrapf(ErrInvalidIdentifier, "table %q", name)
		}
	}
	if c.Tables.Categories != "" && c.Tables.Categories == c.Tables.Associations {
		return errors.Wrap(ErrInvalidIdentifier, "categories and associations tables must differ")
	}
	for kind, table := range c.Subjects {
		if kind == "" {
			return errors.Wrap(ErrInvalidIdentifier, "subject kind must not be empty")
		}
		if !ValidIdentifier(table) {
			return errors.Wrapf(ErrInvalidIdentifier, "subject %q table %q", kind, table)
		}
	}
	return nil
}
