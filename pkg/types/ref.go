package types

import (
	"fmt"
	"strconv"
	"strings"
)

// CategoryRef is a reference to a category: an ID, a Name (matched against
// name or slug), an already Resolved category, or a nested list of Refs.
// The interface is sealed; only the types in this file implement it.
type CategoryRef interface {
	isCategoryRef()
}

// ID references a category by its identity.
type ID int64

// Name references a category by exact name or exact slug.
type Name string

// Resolved wraps a category that is already loaded. Resolving it performs no
// store access.
type Resolved struct {
	Category *Category
}

// Refs is a list of references. Lists may contain lists; Flatten removes the
// nesting.
type Refs []CategoryRef

func (ID) isCategoryRef()       {}
func (Name) isCategoryRef()     {}
func (Resolved) isCategoryRef() {}
func (Refs) isCategoryRef()     {}

// Ref returns a Resolved reference to c.
func (c *Category) Ref() CategoryRef {
	return Resolved{Category: c}
}

// Names builds a Refs list of Name references.
func Names(names ...string) Refs {
	refs := make(Refs, 0, len(names))
	for _, n := range names {
		refs = append(refs, Name(n))
	}
	return refs
}

// IDs builds a Refs list of ID references.
func IDs(ids ...int64) Refs {
	refs := make(Refs, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, ID(id))
	}
	return refs
}

// Flatten expands nested Refs depth-first, preserving order. Nil entries are
// kept so the resolver can reject them.
func Flatten(refs ...CategoryRef) []CategoryRef {
	out := make([]CategoryRef, 0, len(refs))
	for _, r := range refs {
		if nested, ok := r.(Refs); ok {
			out = append(out, Flatten(nested...)...)
			continue
		}
		out = append(out, r)
	}
	return out
}

// ParseRef converts untyped input into a CategoryRef. Integers become ID,
// strings become Name, Category values become Resolved, and slices become
// nested Refs. Anything else is a ValidationError.
func ParseRef(v any) (CategoryRef, error) {
	switch val := v.(type) {
	case CategoryRef:
		return val, nil
	case int:
		return ID(val), nil
	case int32:
		return ID(val), nil
	case int64:
		return ID(val), nil
	case uint:
		return ID(val), nil
	case uint32:
		return ID(val), nil
	case uint64:
		return ID(val), nil
	case string:
		return Name(val), nil
	case *Category:
		return Resolved{Category: val}, nil
	case Category:
		return Resolved{Category: &val}, nil
	case []string:
		return Names(val...), nil
	case []int64:
		return IDs(val...), nil
	case []any:
		refs := make(Refs, 0, len(val))
		for i, elem := range val {
			r, err := ParseRef(elem)
			if err != nil {
				return nil, Invalidf(fmt.Sprintf("reference[%d]", i), "unsupported type %T", elem)
			}
			refs = append(refs, r)
		}
		return refs, nil
	default:
		return nil, Invalidf("reference", "unsupported type %T", v)
	}
}

// RefFromArg maps a command-line argument to a reference: integer
// arguments are ids, everything else is a name or slug.
func RefFromArg(arg string) CategoryRef {
	arg = strings.TrimSpace(arg)
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return ID(id)
	}
	return Name(arg)
}

// describeRef renders a reference for error messages.
func describeRef(ref CategoryRef) string {
	switch r := ref.(type) {
	case ID:
		return fmt.Sprintf("id=%d", int64(r))
	case Name:
		return fmt.Sprintf("name=%q", string(r))
	case Resolved:
		if r.Category == nil {
			return "resolved=<nil>"
		}
		return fmt.Sprintf("id=%d", r.Category.ID)
	case Refs:
		parts := make([]string, 0, len(r))
		for _, e := range r {
			parts = append(parts, describeRef(e))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<nil>"
	}
}
