package types

import "time"

// Category is a named, optionally hierarchical tag.
type Category struct {
	// ID is assigned by the store on creation.
	ID int64 `json:"id"`

	// Name is display text; it is not required to be unique.
	Name string `json:"name"`

	// Slug is derived from Name and unique across categories. A caller may
	// set it before Create or Update to override generation.
	Slug string `json:"slug"`

	// Type is a free-form discriminator, "default" unless configured.
	Type string `json:"type"`

	// Position is owned by the tree engine. Values set by callers are
	// ignored on write.
	Position Position `json:"position"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Position is the nested-set location of a category.
type Position struct {
	Left     int64  `json:"lft"`
	Right    int64  `json:"rgt"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.Position.ParentID == nil
}

// IsLeaf reports whether the category has no descendants.
func (c *Category) IsLeaf() bool {
	return c.Position.Right-c.Position.Left == 1
}

// IsAncestorOf reports whether c strictly contains other in the tree.
func (c *Category) IsAncestorOf(other *Category) bool {
	return c.Position.Left < other.Position.Left && other.Position.Right < c.Position.Right
}

// IsChildOf reports whether other is c's direct parent.
func (c *Category) IsChildOf(other *Category) bool {
	return c.Position.ParentID != nil && *c.Position.ParentID == other.ID
}

// CategoryLabel pairs a category id with its name, the shape used for
// dropdown-style listings.
type CategoryLabel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TreeNode is one category in the nested representation produced by Tree.
type TreeNode struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Slug     string      `json:"slug"`
	Type     string      `json:"type"`
	Depth    int         `json:"depth"`
	Children []*TreeNode `json:"children"`
}

// FlatNode is a category with its depth, in depth-first order.
type FlatNode struct {
	Category
	Depth int `json:"depth"`
}

// TreeErrors counts structural problems in the stored hierarchy.
type TreeErrors struct {
	// Oddness counts nodes whose left bound is not below their right bound.
	Oddness int `json:"oddness"`
	// Duplicates counts bound values used by more than one node.
	Duplicates int `json:"duplicates"`
	// WrongParent counts nodes whose bounds are not inside their parent's.
	WrongParent int `json:"wrong_parent"`
	// MissingParent counts nodes whose parent row does not exist.
	MissingParent int `json:"missing_parent"`
}

// Total returns the number of problems found.
func (e TreeErrors) Total() int {
	return e.Oddness + e.Duplicates + e.WrongParent + e.MissingParent
}
