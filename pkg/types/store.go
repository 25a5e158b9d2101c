package types

import "context"

// Store gives access to the category and association tables and the subject
// registry of one backend.
type Store interface {
	Categories() CategoryStore
	Associations() AssociationStore
	Subjects() SubjectRegistry

	// Atomic runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Calling Atomic on a transaction-bound Store runs fn in the same
	// transaction.
	Atomic(ctx context.Context, fn func(Store) error) error
}

// Backend is a Store with a lifecycle. Attach opens the storage described
// by config; Detach releases it and is idempotent.
type Backend interface {
	Store
	Attach(ctx context.Context, config Config) error
	Detach() error
}

// CategoryStore provides CRUD on category rows and passes hierarchy
// operations through to the tree engine.
type CategoryStore interface {
	// Create inserts c as the last root, derives its slug from its name
	// (unless c.Slug is set), and fills in ID, Type, timestamps and Position.
	Create(ctx context.Context, c *Category) error

	// FindByID returns a NotFoundError if no category has the id.
	FindByID(ctx context.Context, id int64) (*Category, error)

	// FindByName matches an exact name or an exact slug and returns the
	// first row in id order. Returns a NotFoundError if nothing matches.
	FindByName(ctx context.Context, name string) (*Category, error)

	// Update persists Name, Type and Slug. A changed name regenerates the
	// slug unless the caller also changed Slug.
	Update(ctx context.Context, c *Category) error

	// Delete removes the category and its descendants and returns their
	// ids. When cascading is enabled the association rows go with them.
	Delete(ctx context.Context, id int64) ([]int64, error)

	// All returns every category ordered by left bound.
	All(ctx context.Context) ([]Category, error)

	// Tree returns the nested representation rooted at every top-level
	// category.
	Tree(ctx context.Context) ([]*TreeNode, error)

	// FlatTree returns every category in depth-first order with its depth.
	FlatTree(ctx context.Context) ([]FlatNode, error)

	AncestorsOf(ctx context.Context, id int64) ([]Category, error)
	DescendantsOf(ctx context.Context, id int64) ([]Category, error)
	Siblings(ctx context.Context, id int64) ([]Category, error)

	// AppendChild moves child (with its subtree) to be the last child of
	// parent.
	AppendChild(ctx context.Context, parentID, childID int64) error

	// MakeRoot detaches the node from its parent and appends it as the last
	// root.
	MakeRoot(ctx context.Context, id int64) error

	CountErrors(ctx context.Context) (TreeErrors, error)
	IsBroken(ctx context.Context) (bool, error)
	FixTree(ctx context.Context) error
}

// AssociationStore provides raw operations on association rows keyed by
// (category_id, subject_type, subject_id). Rows are listed in insertion
// order.
type AssociationStore interface {
	// Insert adds one row. Under AttachIgnore an existing pair is left
	// alone and inserted reports false.
	Insert(ctx context.Context, a Association) (inserted bool, err error)

	// Delete removes every row for (categoryID, subject).
	Delete(ctx context.Context, categoryID int64, subject Subject) (int64, error)

	// DeleteSubject removes every row for the subject.
	DeleteSubject(ctx context.Context, subject Subject) (int64, error)

	// DeleteCategories removes every row pointing at any of the ids.
	DeleteCategories(ctx context.Context, categoryIDs []int64) (int64, error)

	List(ctx context.Context, subject Subject) ([]Association, error)

	// Categories joins the subject's rows with the category table, one
	// result per row.
	Categories(ctx context.Context, subject Subject) ([]Category, error)

	// Count returns the number of rows for the subject; a zero categoryID
	// counts across all categories.
	Count(ctx context.Context, categoryID int64, subject Subject) (int64, error)

	// Entries joins rows whose category id is in categoryIDs with the
	// subject table of kind.
	Entries(ctx context.Context, kind SubjectKind, categoryIDs []int64) ([]Entry, error)

	// All returns every row, for snapshots.
	All(ctx context.Context) ([]Association, error)
}

// SubjectRegistry records which subject kinds exist and where their rows
// live.
type SubjectRegistry interface {
	Register(kind SubjectKind) error

	// Lookup returns a ValidationError when the kind is not registered or
	// its table does not exist.
	Lookup(ctx context.Context, name string) (SubjectKind, error)

	Kinds() []SubjectKind
}
